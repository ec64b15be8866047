package wake

import (
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
)

// TypeFired is the event type published when a wake deadline is reached.
const TypeFired = "wake.fired"

// Event is the message envelope carrying a wake notification.
type Event struct {
	// ID is a unique identifier for this event instance
	ID string `json:"id"`

	// Type is a namespaced event type (e.g., "wake.fired")
	Type string `json:"type"`

	// Source identifies the originating component
	Source string `json:"source"`

	// Data contains the serialized payload (use codec to marshal/unmarshal)
	Data []byte `json:"data,omitempty"`
}

// Payload carries the details of a delivered wake.
type Payload struct {
	// DeadlineID is the scheduler-assigned ID of the deadline
	DeadlineID string `json:"deadline_id"`

	// Deadline is the requested absolute instant, in raw ticks
	Deadline uint32 `json:"deadline"`

	// FiredAt is the clock reading when the notification was delivered
	FiredAt uint32 `json:"fired_at"`

	// Synthetic is true when the deadline was already due at request time
	// and no hardware compare was involved
	Synthetic bool `json:"synthetic,omitempty"`
}

// Codec defines how to serialize and deserialize event payloads.
type Codec interface {
	// Marshal converts a payload struct to bytes
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a payload struct
	Unmarshal(data []byte, v any) error
}

// JSONCodec implements Codec using JSON.
type JSONCodec struct{}

// Marshal converts a payload to JSON bytes.
func (c JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes JSON bytes into a payload.
func (c JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewEvent creates a new event with a generated ID.
func NewEvent(eventType, source string, payload any, codec Codec) (*Event, error) {
	data, err := codec.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:     uuid.New().String(),
		Type:   eventType,
		Source: source,
		Data:   data,
	}, nil
}

// DecodePayload deserializes the event data into the provided struct.
func (e *Event) DecodePayload(v any, codec Codec) error {
	if len(e.Data) == 0 {
		return nil
	}
	return codec.Unmarshal(e.Data, v)
}
