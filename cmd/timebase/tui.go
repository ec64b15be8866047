package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BYTE-6D65/timebase/pkg/hw"
	"github.com/BYTE-6D65/timebase/pkg/timebase"
	"github.com/BYTE-6D65/timebase/pkg/wake"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			PaddingLeft(2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 2).
			MarginLeft(2).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00A9E0"))

	firedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB800"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingTop(1).
			PaddingLeft(2)
)

type frameMsg struct{}

// demoModel holds the state of the simulation TUI.
type demoModel struct {
	cfg   hw.SimConfig
	sim   *hw.SimTimer
	clk   *timebase.Clock
	sched *wake.Scheduler
	bus   *wake.InMemoryBus
	sub   wake.Subscription

	paused bool
	fires  []string
	width  int
	height int
}

func newDemoModel() (demoModel, error) {
	cfg, err := hw.LoadSimConfigFromEnv()
	if err != nil {
		return demoModel{}, err
	}

	sim := hw.NewSimTimer()
	clk := timebase.New(sim)
	sim.Preset(cfg.StartCount)

	bus := wake.NewInMemoryBus(wake.WithBufferSize(256))
	sub, err := bus.Subscribe(context.Background(), wake.Filter{Types: []string{"wake.*"}})
	if err != nil {
		return demoModel{}, err
	}
	sched := wake.NewScheduler(clk, wake.WithBus(bus))

	return demoModel{
		cfg:   cfg,
		sim:   sim,
		clk:   clk,
		sched: sched,
		bus:   bus,
		sub:   sub,
	}, nil
}

func startTUI() error {
	m, err := newDemoModel()
	if err != nil {
		return err
	}
	defer m.bus.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func (m demoModel) Init() tea.Cmd {
	return frame()
}

func frame() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg{}
	})
}

func (m demoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case frameMsg:
		if !m.paused {
			m.sim.Advance(m.cfg.AdvanceBatch)
		}
		m.drainFires()
		return m, frame()
	}

	return m, nil
}

func (m demoModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ":
		m.paused = !m.paused

	case "w":
		// Wake within the current epoch (usually a direct arm)
		m.sched.Schedule(m.clk.Now().Add(1000))

	case "e":
		// Wake past at least one rollover (always staged)
		m.sched.Schedule(m.clk.Now().Add(100000))

	case "s":
		// Already due: delivered synthetically, no hardware wait
		m.sched.Schedule(m.clk.Now())
		m.drainFires()

	case "c":
		if next, ok := m.sched.Next(); ok {
			m.sched.Cancel(next.ID)
		}
	}
	return m, nil
}

// drainFires pulls delivered wake events off the subscription without
// blocking the render loop.
func (m *demoModel) drainFires() {
	codec := wake.JSONCodec{}
	for {
		select {
		case evt := <-m.sub.Events():
			var p wake.Payload
			if evt.DecodePayload(&p, codec) != nil {
				continue
			}
			tag := ""
			if p.Synthetic {
				tag = " (synthetic)"
			}
			m.fires = append(m.fires, fmt.Sprintf("0x%08X fired at 0x%08X%s", p.Deadline, p.FiredAt, tag))
			if len(m.fires) > 8 {
				m.fires = m.fires[len(m.fires)-8:]
			}
		default:
			return
		}
	}
}

func (m demoModel) View() string {
	var b strings.Builder

	title := "Timebase Demo"
	if m.paused {
		title += pausedStyle.Render("  [paused]")
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	now := m.clk.Now()
	registers := fmt.Sprintf("%s %s\n%s %s\n%s %s\n%s %s",
		labelStyle.Render("low counter "), valueStyle.Render(fmt.Sprintf("%5d", now.Low())),
		labelStyle.Render("high word   "), valueStyle.Render(fmt.Sprintf("%5d", now.High())),
		labelStyle.Render("instant     "), valueStyle.Render(now.String()),
		labelStyle.Render("elapsed     "), valueStyle.Render(now.Sub(0).AtRate(m.cfg.TickHz).Round(time.Millisecond).String()),
	)
	b.WriteString(panelStyle.Render(registers))

	channel := fmt.Sprintf("%s %s",
		labelStyle.Render("channel"), valueStyle.Render(m.clk.ChannelState().String()))
	if target, ok := m.clk.PendingTarget(); ok {
		channel += fmt.Sprintf("\n%s %s",
			labelStyle.Render("target "), valueStyle.Render(target.String()))
	}
	channel += fmt.Sprintf("\n%s %d", labelStyle.Render("queued "), m.sched.Pending())
	b.WriteString(panelStyle.Render(channel))

	if len(m.fires) > 0 {
		b.WriteString(panelStyle.Render(firedStyle.Render(strings.Join(m.fires, "\n"))))
	}

	b.WriteString(helpStyle.Render(
		"w: wake +1000  e: wake +100000  s: wake now  c: cancel next  space: pause  q: quit"))
	b.WriteString("\n")

	return b.String()
}
