package main

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BYTE-6D65/timebase/pkg/hw"
	"github.com/BYTE-6D65/timebase/pkg/telemetry"
	"github.com/BYTE-6D65/timebase/pkg/timebase"
	"github.com/BYTE-6D65/timebase/pkg/wake"
)

const defaultRunTicks = 300000

// runHeadless drives the simulated counter pair for a fixed number of ticks
// with a few representative wake deadlines and prints what happened.
func runHeadless(args []string) error {
	ticks := uint32(defaultRunTicks)
	if len(args) > 0 {
		n, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil || n == 0 {
			return fmt.Errorf("invalid tick count %q", args[0])
		}
		ticks = uint32(n)
	}

	cfg, err := hw.LoadSimConfigFromEnv()
	if err != nil {
		return err
	}
	log.Printf("starting headless run: %d ticks, %s", ticks, cfg.String())

	sim := hw.NewSimTimer()
	clk := timebase.New(sim)
	sim.Preset(cfg.StartCount)

	bus := wake.NewInMemoryBus(wake.WithBufferSize(1024))
	defer bus.Close()
	sub, err := bus.Subscribe(context.Background(), wake.Filter{Types: []string{"wake.*"}})
	if err != nil {
		return err
	}
	sched := wake.NewScheduler(clk, wake.WithBus(bus))

	// One deadline in the current epoch, one past the first rollover, one
	// already due, plus a cancelled one that must never fire.
	now := clk.Now()
	sched.Schedule(now.Add(100))
	sched.Schedule(now.Add(timebase.Duration(ticks / 2)))
	sched.Schedule(now) // delivered synthetically
	victim := sched.Schedule(now.Add(timebase.Duration(ticks * 2)))
	sched.Cancel(victim)

	timer := telemetry.NewTimer()
	sim.Advance(ticks)
	log.Printf("advanced %d ticks in %v", ticks, timer.Elapsed())

	final := clk.Now()
	fmt.Printf("\nFinal reading:   %s (high=%d low=%d)\n", final, final.High(), final.Low())
	fmt.Printf("Ticks driven:    %d\n", sim.Ticks())
	fmt.Printf("Elapsed at %d Hz: %v\n", cfg.TickHz, final.Sub(0).AtRate(cfg.TickHz))
	fmt.Printf("Still pending:   %d\n", sched.Pending())

	fmt.Println("\nDelivered wakes:")
	codec := wake.JSONCodec{}
	for {
		select {
		case evt := <-sub.Events():
			var p wake.Payload
			if err := evt.DecodePayload(&p, codec); err != nil {
				return err
			}
			fmt.Printf("  %s  deadline=0x%08X fired_at=0x%08X synthetic=%v\n",
				p.DeadlineID, p.Deadline, p.FiredAt, p.Synthetic)
		default:
			printMetrics()
			return nil
		}
	}
}

// printMetrics dumps the timebase counter families from the default registry.
func printMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return
	}
	fmt.Println("\nMetrics:")
	for _, fam := range families {
		name := fam.GetName()
		if len(name) < 9 || name[:9] != "timebase_" {
			continue
		}
		for _, m := range fam.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			value := 0.0
			if m.GetCounter() != nil {
				value = m.GetCounter().GetValue()
			} else if m.GetGauge() != nil {
				value = m.GetGauge().GetValue()
			}
			fmt.Printf("  %s%s = %g\n", name, labels, value)
		}
	}
}
