package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	// If no arguments or "demo", launch interactive TUI
	if len(os.Args) < 2 || os.Args[1] == "demo" {
		if err := startTUI(); err != nil {
			log.Fatalf("TUI error: %v", err)
		}
		return
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		if err := runHeadless(os.Args[2:]); err != nil {
			log.Fatalf("run error: %v", err)
		}
		return
	case "version":
		fmt.Printf("timebase v%s\n", version)
		fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return
	case "help", "-h", "--help":
		usage()
		return
	default:
		log.Fatalf("ERROR: unknown command %q (try 'timebase help')", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Timebase - 32-bit monotonic clock over chained 16-bit counters

Usage:
  timebase [demo]
      Launch the interactive simulation demo

  timebase run [ticks]
      Drive the simulated counters headless for the given number of
      ticks (default 300000) and print a summary

  timebase version
      Show version and platform information

  timebase help
      Show this help message

Environment:
  TIMEBASE_TICK_HZ        Nominal tick rate for reporting (default 32768)
  TIMEBASE_START_COUNT    Initial low counter value (default 0)
  TIMEBASE_ADVANCE_BATCH  Ticks advanced per demo frame (default 64)

About:
  Timebase composes two 16-bit counter halves into a gap-free 32-bit
  monotonic instant and multiplexes absolute wake deadlines onto the
  single hardware compare channel. The demo drives a simulated counter
  pair and shows the composition, the compare channel state machine,
  and wake delivery live.
`)
}
