package timebase

import (
	"testing"

	"github.com/BYTE-6D65/timebase/pkg/hw"
)

type fire struct {
	target    Instant
	synthetic bool
	at        Instant
}

func newTestClock() (*hw.SimTimer, *Clock, *[]fire) {
	sim := hw.NewSimTimer()
	clk := New(sim)

	fires := &[]fire{}
	clk.SetWakeFunc(func(target Instant, synthetic bool) {
		*fires = append(*fires, fire{target: target, synthetic: synthetic, at: clk.Now()})
	})
	return sim, clk, fires
}

func TestClock_NowTracksElapsedTicks(t *testing.T) {
	sim, clk, _ := newTestClock()

	i1 := clk.Now()
	sim.Advance(1)
	i2 := clk.Now()

	if i2 == i1 {
		t.Error("Now must change when at least one tick elapsed")
	}
	if d := i2.Sub(i1); d != 1 {
		t.Errorf("Elapsed = %d ticks, want 1", d)
	}

	sim.Advance(99999)
	i3 := clk.Now()
	if d := i3.Sub(i1); d != 100000 {
		t.Errorf("Elapsed = %d ticks, want 100000", d)
	}
}

func TestClock_CarryAcrossRollover(t *testing.T) {
	sim, clk, _ := newTestClock()
	sim.Preset(65530)

	sim.Advance(10)

	got := clk.Now()
	if got != 0x00010004 {
		t.Fatalf("Now = %s, want 0x00010004", got)
	}
	if got.High() != 1 {
		t.Errorf("High word = %d, want 1 after one overflow", got.High())
	}
	if got.Low() != 4 {
		t.Errorf("Low word = %d, want 4 after the wrap", got.Low())
	}
}

func TestClock_NowNeverStepsBackward(t *testing.T) {
	sim, clk, _ := newTestClock()
	sim.Preset(65000) // first rollover arrives quickly

	done := make(chan struct{})
	go func() {
		defer close(done)
		sim.Advance(3 * 65536)
	}()

	var prev Instant
	for {
		select {
		case <-done:
			if final := clk.Now(); uint32(final) < uint32(prev) {
				t.Errorf("Final reading %s below earlier reading %s", final, prev)
			}
			return
		default:
		}

		now := clk.Now()
		if uint32(now) < uint32(prev) {
			t.Fatalf("Backward jump: %s after %s", now, prev)
		}
		prev = now
	}
}

func TestClock_CompareSameEpoch(t *testing.T) {
	sim, clk, fires := newTestClock()

	target := clk.Now().Add(100)
	clk.SetCompare(target)

	if st := clk.ChannelState(); st != ChannelArmed {
		t.Fatalf("Channel = %s, want armed for a same-epoch target", st)
	}
	if got, ok := clk.PendingTarget(); !ok || got != target {
		t.Fatalf("PendingTarget = %s/%v, want %s", got, ok, target)
	}

	sim.Advance(99)
	if len(*fires) != 0 {
		t.Fatal("Fired before the target instant")
	}

	sim.Advance(1)
	if len(*fires) != 1 {
		t.Fatalf("Fires = %d, want 1", len(*fires))
	}
	f := (*fires)[0]
	if f.target != target || f.synthetic {
		t.Errorf("Fire = %+v, want hardware fire at %s", f, target)
	}
	if f.at != target {
		t.Errorf("Delivered at %s, want %s", f.at, target)
	}
	if st := clk.ChannelState(); st != ChannelIdle {
		t.Errorf("Channel = %s after fire, want idle", st)
	}
}

func TestClock_CompareStagedThroughOverflow(t *testing.T) {
	sim, clk, fires := newTestClock()

	target := clk.Now().Add(100000) // beyond the 16-bit range
	clk.SetCompare(target)

	if st := clk.ChannelState(); st != ChannelStaged {
		t.Fatalf("Channel = %s, want staged for a future-epoch target", st)
	}

	sim.Advance(65535)
	if st := clk.ChannelState(); st != ChannelStaged {
		t.Fatalf("Channel = %s before the overflow, want staged", st)
	}
	if len(*fires) != 0 {
		t.Fatal("Staging sentinel must not deliver a notification")
	}

	sim.Advance(1) // overflow: epoch now matches, precise compare armed
	if st := clk.ChannelState(); st != ChannelArmed {
		t.Fatalf("Channel = %s after the overflow, want armed", st)
	}

	sim.Advance(100000 - 65536)
	if len(*fires) != 1 {
		t.Fatalf("Fires = %d, want exactly 1", len(*fires))
	}
	if f := (*fires)[0]; f.target != target || f.at != target || f.synthetic {
		t.Errorf("Fire = %+v, want hardware fire at %s", f, target)
	}
}

func TestClock_CompareStagedMultipleEpochs(t *testing.T) {
	sim, clk, fires := newTestClock()

	d := Duration(3*65536 + 7)
	target := clk.Now().Add(d)
	clk.SetCompare(target)

	sim.Advance(uint32(d))

	if len(*fires) != 1 {
		t.Fatalf("Fires = %d, want 1 after three staged overflows", len(*fires))
	}
	if f := (*fires)[0]; f.at != target {
		t.Errorf("Delivered at %s, want %s", f.at, target)
	}
}

func TestClock_CompareFireOnRolloverTick(t *testing.T) {
	sim, clk, fires := newTestClock()
	sim.Advance(65535)

	target := clk.Now().Add(1) // 0x00010000: next epoch, low bits zero
	clk.SetCompare(target)
	if st := clk.ChannelState(); st != ChannelStaged {
		t.Fatalf("Channel = %s, want staged", st)
	}

	sim.Advance(1)
	if len(*fires) != 1 {
		t.Fatalf("Fires = %d, want 1 on the rollover tick itself", len(*fires))
	}
	if f := (*fires)[0]; f.target != target || f.at != target {
		t.Errorf("Fire = %+v, want delivery exactly at %s", f, target)
	}
}

func TestClock_CompareAlreadyDue(t *testing.T) {
	sim, clk, fires := newTestClock()
	sim.Advance(500)

	now := clk.Now()
	clk.SetCompare(now.Add(0xFFFFFFFF)) // now - 1 in wrapping arithmetic

	if len(*fires) != 1 {
		t.Fatalf("Fires = %d, want immediate synthetic fire", len(*fires))
	}
	f := (*fires)[0]
	if !f.synthetic {
		t.Error("Past target must be delivered synthetically")
	}
	if f.at != now {
		t.Errorf("Delivered at %s without advancing, want %s", f.at, now)
	}
	if st := clk.ChannelState(); st != ChannelIdle {
		t.Errorf("Channel = %s, want idle", st)
	}

	// A target equal to now is also already due.
	clk.SetCompare(clk.Now())
	if len(*fires) != 2 {
		t.Errorf("Fires = %d, want 2 after target == now", len(*fires))
	}
}

func TestClock_CompareSuperseded(t *testing.T) {
	sim, clk, fires := newTestClock()

	now := clk.Now()
	t1 := now.Add(50)
	t2 := now.Add(80)
	clk.SetCompare(t1)
	clk.SetCompare(t2)

	sim.Advance(200)

	if len(*fires) != 1 {
		t.Fatalf("Fires = %d, want 1 (T1 silently superseded)", len(*fires))
	}
	if f := (*fires)[0]; f.target != t2 {
		t.Errorf("Fired target = %s, want %s", f.target, t2)
	}
}

func TestClock_CompareSupersededAcrossPhases(t *testing.T) {
	sim, clk, fires := newTestClock()

	now := clk.Now()
	clk.SetCompare(now.Add(200000)) // staged
	clk.SetCompare(now.Add(10))     // supersedes with a direct arm

	if st := clk.ChannelState(); st != ChannelArmed {
		t.Fatalf("Channel = %s, want armed after supersession", st)
	}

	sim.Advance(300000)

	if len(*fires) != 1 {
		t.Fatalf("Fires = %d, want 1", len(*fires))
	}
	if f := (*fires)[0]; f.target != now.Add(10) {
		t.Errorf("Fired target = %s, want %s", f.target, now.Add(10))
	}
}

func TestClock_ClearCompare(t *testing.T) {
	sim, clk, fires := newTestClock()

	target := clk.Now().Add(100)
	clk.SetCompare(target)
	clk.ClearCompare()

	if st := clk.ChannelState(); st != ChannelIdle {
		t.Fatalf("Channel = %s after clear, want idle", st)
	}
	if _, ok := clk.PendingTarget(); ok {
		t.Error("PendingTarget should report nothing after clear")
	}

	sim.Advance(200)
	if len(*fires) != 0 {
		t.Error("Cancelled target must not deliver a notification")
	}
}

func TestClock_ClearCompareIdempotent(t *testing.T) {
	sim, clk, fires := newTestClock()

	clk.ClearCompare()
	clk.ClearCompare()

	clk.SetCompare(clk.Now().Add(100000)) // staged
	clk.ClearCompare()
	clk.ClearCompare()

	sim.Advance(200000)
	if len(*fires) != 0 {
		t.Errorf("Fires = %d, want 0 after cancellation", len(*fires))
	}
}

func TestClock_ExactlyOneFirePerTarget(t *testing.T) {
	durations := []Duration{1, 2, 100, 65535, 65536, 65537, 100000, 3 * 65536}

	for _, d := range durations {
		sim, clk, fires := newTestClock()
		sim.Advance(12345) // arbitrary offset so the epochs vary

		target := clk.Now().Add(d)
		clk.SetCompare(target)
		sim.Advance(uint32(d))

		if len(*fires) != 1 {
			t.Errorf("d=%d: fires = %d, want exactly 1", d, len(*fires))
			continue
		}
		f := (*fires)[0]
		if f.target != target {
			t.Errorf("d=%d: fired target = %s, want %s", d, f.target, target)
		}
		if f.at != target {
			t.Errorf("d=%d: delivered at %s, want %s", d, f.at, target)
		}

		// Nothing further may arrive for this target.
		sim.Advance(2 * 65536)
		if len(*fires) != 1 {
			t.Errorf("d=%d: late extra fire, total %d", d, len(*fires))
		}
	}
}

func TestClock_RearmFromWakeCallback(t *testing.T) {
	sim := hw.NewSimTimer()
	clk := New(sim)

	var delivered []Instant
	clk.SetWakeFunc(func(target Instant, synthetic bool) {
		delivered = append(delivered, target)
		if len(delivered) < 3 {
			clk.SetCompare(target.Add(100))
		}
	})

	clk.SetCompare(clk.Now().Add(100))
	sim.Advance(1000)

	if len(delivered) != 3 {
		t.Fatalf("Delivered = %d targets, want 3 from chained re-arming", len(delivered))
	}
	for i, target := range delivered {
		want := Instant(uint32(100 * (i + 1)))
		if target != want {
			t.Errorf("Delivery %d = %s, want %s", i, target, want)
		}
	}
}

func BenchmarkClock_Now(b *testing.B) {
	sim := hw.NewSimTimer()
	clk := New(sim)
	sim.Advance(123456)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = clk.Now()
	}
}
