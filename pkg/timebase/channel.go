package timebase

import "fmt"

// ChannelState is the explicit tagged state of the single compare channel.
// Keeping it as one variant rather than scattered flags makes the
// re-evaluation-on-overflow logic auditable independent of hardware timing.
type ChannelState uint8

const (
	// ChannelIdle: no compare target pending.
	ChannelIdle ChannelState = iota

	// ChannelStaged: a target is pending but its high word is still in the
	// future; the comparator is parked on the staging sentinel so the
	// channel revisits the target at each overflow.
	ChannelStaged

	// ChannelArmed: the target's high word matches the current epoch and
	// the precise low-bit compare is programmed.
	ChannelArmed

	// ChannelFired: transient state passed through while a notification is
	// being delivered.
	ChannelFired
)

// String returns the state name.
func (s ChannelState) String() string {
	switch s {
	case ChannelIdle:
		return "idle"
	case ChannelStaged:
		return "staged"
	case ChannelArmed:
		return "armed"
	case ChannelFired:
		return "fired"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// channelTransitions is the legality table for the compare channel:
//
//	Idle -> Staged | Armed | Fired(synthetic, already-due target)
//	Staged -> Armed | Idle(cancel)
//	Armed -> Fired | Idle(cancel)
//	Fired -> Idle
//
// Cancellation reaches Idle from every non-idle state. Supersession is
// modeled as cancel-then-arm, never as an in-place edit of the target.
var channelTransitions = map[ChannelState][]ChannelState{
	ChannelIdle:   {ChannelStaged, ChannelArmed, ChannelFired},
	ChannelStaged: {ChannelArmed, ChannelIdle},
	ChannelArmed:  {ChannelFired, ChannelIdle},
	ChannelFired:  {ChannelIdle},
}

// CanTransition reports whether moving from s to next is legal.
func (s ChannelState) CanTransition(next ChannelState) bool {
	for _, t := range channelTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
