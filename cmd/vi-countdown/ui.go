package main

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/logger"

	"github.com/lixenwraith/vi-countdown/config"
	"github.com/lixenwraith/vi-countdown/core"
	"github.com/lixenwraith/vi-countdown/engine"
	"github.com/lixenwraith/vi-countdown/events"
	"github.com/lixenwraith/vi-countdown/status"
)

const (
	frameInterval = 33 * time.Millisecond
	adjustStep    = 60 // Seconds added or removed by +/-
	helpText      = "space pause/resume  r reset  +/- 1m  d metrics  q quit"
)

// soundPlayer is the part of audio.SoundManager the UI needs
type soundPlayer interface {
	PlayExpiry()
	PlayWarning()
}

type silentPlayer struct{}

func (silentPlayer) PlayExpiry()  {}
func (silentPlayer) PlayWarning() {}

// textLine is one positioned line of the frame
type textLine struct {
	x, y  int
	text  string
	style tcell.Style
}

// app owns the screen and drives one timer from the frame loop
// Timer events are drained on the loop goroutine, so handlers need no locking
type app struct {
	screen   tcell.Screen
	timer    *engine.Timer
	router   *events.Router[*app]
	registry *status.Registry
	sound    soundPlayer

	initial     int
	warnSeconds int
	total       int // Seconds spanned by the progress bar
	showMetrics bool
	message     string

	frames     *atomic.Int64
	dispatched *atomic.Int64
}

func newApp(screen tcell.Screen, timer *engine.Timer, queue *events.EventQueue, registry *status.Registry, sound soundPlayer, cfg *config.Config) *app {
	a := &app{
		screen:      screen,
		timer:       timer,
		router:      events.NewRouter[*app](queue),
		registry:    registry,
		sound:       sound,
		initial:     cfg.Timer.InitialSeconds,
		warnSeconds: cfg.Audio.WarnSeconds,
		total:       cfg.Timer.InitialSeconds,
		frames:      registry.Ints.Get("ui.frames"),
		dispatched:  registry.Ints.Get("ui.events"),
	}
	a.registerHandlers(cfg.Log.Events)
	return a
}

func (a *app) registerHandlers(logged []string) {
	a.router.Register(events.HandlerFunc[*app]{
		Types: []events.EventType{events.EventTimerTick},
		Fn: func(a *app, ev events.TimerEvent) {
			if a.warnSeconds > 0 && ev.Remaining > 0 && ev.Remaining <= a.warnSeconds {
				a.sound.PlayWarning()
			}
		},
	})
	a.router.Register(events.HandlerFunc[*app]{
		Types: []events.EventType{events.EventTimerExpired},
		Fn: func(a *app, ev events.TimerEvent) {
			a.sound.PlayExpiry()
			a.message = "time is up"
		},
	})
	a.router.Register(events.HandlerFunc[*app]{
		Types: []events.EventType{events.EventTimerReset},
		Fn: func(a *app, ev events.TimerEvent) {
			a.total = ev.Remaining
			a.message = ""
		},
	})
	a.router.Register(events.HandlerFunc[*app]{
		Types: []events.EventType{events.EventTimerPaused, events.EventTimerResumed},
		Fn: func(a *app, ev events.TimerEvent) {
			a.message = strings.ToLower(ev.Type.String())
		},
	})

	if len(logged) == 0 {
		return
	}
	types := make([]events.EventType, 0, len(logged))
	for _, name := range logged {
		if t, ok := events.ParseEventType(name); ok {
			types = append(types, t)
		}
	}
	a.router.Register(events.HandlerFunc[*app]{
		Types: types,
		Fn: func(_ *app, ev events.TimerEvent) {
			logger.Infof("event %s timer=%s remaining=%s state=%s", ev.Type, ev.TimerID, ev.Display, ev.State)
		},
	})
}

// handleRune applies a character key; returns false to quit
func (a *app) handleRune(r rune) bool {
	switch r {
	case 'q', 'Q':
		return false
	case ' ', 'p':
		a.timer.SetActive(!a.timer.Active())
	case 'r':
		a.timer.Reset(a.initial)
	case '+', '=':
		a.timer.Adjust(adjustStep)
	case '-', '_':
		a.timer.Adjust(-adjustStep)
	case 'd':
		a.showMetrics = !a.showMetrics
	}
	return true
}

// handleKey applies a special key; returns false to quit
func (a *app) handleKey(k tcell.Key) bool {
	switch k {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyEnter:
		a.timer.SetActive(!a.timer.Active())
	}
	return true
}

func (a *app) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyRune {
			return a.handleRune(ev.Rune())
		}
		return a.handleKey(ev.Key())
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

// update drains pending timer events through the router
func (a *app) update() int {
	n := a.router.DispatchAll(a)
	a.dispatched.Add(int64(n))
	return n
}

// layout positions the frame content for a width x height screen
func (a *app) layout(width, height int) []textLine {
	snap := a.timer.Snapshot()
	base := tcell.StyleDefault

	timeStyle := base.Bold(true)
	switch {
	case snap.State == engine.StatePaused:
		timeStyle = timeStyle.Foreground(tcell.ColorYellow)
	case snap.Remaining == 0:
		timeStyle = timeStyle.Foreground(tcell.ColorRed)
	case a.warnSeconds > 0 && snap.Remaining <= a.warnSeconds:
		timeStyle = timeStyle.Foreground(tcell.ColorOrange)
	default:
		timeStyle = timeStyle.Foreground(tcell.ColorGreen)
	}

	mid := height / 2
	lines := []textLine{
		centered(width, mid-1, snap.Display, timeStyle),
		centered(width, mid, snap.State.String(), base.Foreground(tcell.ColorGray)),
	}

	barWidth := min(width-4, 40)
	if barWidth > 0 {
		lines = append(lines, centered(width, mid+1, progressBar(snap.Remaining, a.total, barWidth), base))
	}
	if a.message != "" {
		lines = append(lines, centered(width, mid+3, a.message, base.Foreground(tcell.ColorRed)))
	}
	lines = append(lines, centered(width, height-1, helpText, base.Foreground(tcell.ColorGray)))

	if a.showMetrics {
		for i, line := range a.registry.Dump() {
			if i >= height-2 {
				break
			}
			lines = append(lines, textLine{x: 0, y: i, text: line, style: base.Foreground(tcell.ColorTeal)})
		}
	}
	return lines
}

func (a *app) draw() {
	a.screen.Clear()
	width, height := a.screen.Size()
	for _, l := range a.layout(width, height) {
		drawText(a.screen, l.x, l.y, width, l.text, l.style)
	}
	a.screen.Show()
	a.frames.Add(1)
}

// run blocks until the user quits or ctx is done
func (a *app) run(ctx context.Context) {
	eventChan := make(chan tcell.Event, 64)
	core.Go(func() {
		for {
			ev := a.screen.PollEvent()
			// Nil after Fini
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	})

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-eventChan:
			if !a.handleEvent(ev) {
				return
			}
			a.update()
			a.draw()
		case <-ticker.C:
			a.update()
			a.draw()
		}
	}
}

func centered(width, y int, text string, style tcell.Style) textLine {
	x := (width - len([]rune(text))) / 2
	if x < 0 {
		x = 0
	}
	return textLine{x: x, y: y, text: text, style: style}
}

// progressBar renders remaining/total as a bar of width cells
func progressBar(remaining, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = remaining * width / total
	}
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func drawText(s tcell.Screen, x, y, maxX int, text string, style tcell.Style) {
	for _, r := range text {
		if x >= maxX {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
