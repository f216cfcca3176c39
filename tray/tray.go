// Package tray shows the recording state as a system tray icon.
package tray

import (
	"context"
	_ "embed"
	"log/slog"
	"sync"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"
)

var (
	//go:embed icons/active.png
	activeIcon []byte
	//go:embed icons/inactive.png
	inactiveIcon []byte
)

const tooltip = "rimay"

// Command changes the indicator state.
type Command struct {
	Active bool
}

// Icon returns the embedded icon for a state.
func Icon(active bool) []byte {
	if active {
		return activeIcon
	}
	return inactiveIcon
}

// Loop applies commands to the icon until cmds is closed or ctx is done.
// It is the only writer of the icon; the inactive icon is set first and
// repeated commands for the current state are not re-applied.
func Loop(ctx context.Context, cmds <-chan Command, setIcon func([]byte)) {
	active := false
	setIcon(Icon(active))

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			if cmd.Active == active {
				continue
			}
			active = cmd.Active
			slog.Debug("tray state", "active", active)
			setIcon(Icon(active))
		}
	}
}

// Indicator owns the native application loop and its tray icon.
type Indicator struct {
	cmds    chan Command
	setIcon func([]byte)
	run     func() error
	quit    func()

	started   chan struct{}
	startOnce sync.Once
	stopped   chan struct{}
}

// New creates the indicator. onQuit is called when the user picks Quit
// from the tray menu; it should start the normal shutdown.
func New(onQuit func()) *Indicator {
	app := application.New(application.Options{
		Name:        "rimay",
		Description: "Push-to-talk dictation",
		// Signals are handled by the caller's context.
		DisableDefaultSignalHandler: true,
		Mac: application.MacOptions{
			ActivationPolicy: application.ActivationPolicyAccessory,
		},
	})

	systemTray := app.SystemTray.New()
	systemTray.SetTooltip(tooltip)

	menu := app.NewMenu()
	menu.Add("Quit").OnClick(func(*application.Context) {
		slog.Info("quit requested from tray")
		onQuit()
	})
	systemTray.SetMenu(menu)

	i := newIndicator(app.Run, app.Quit, func(icon []byte) { systemTray.SetIcon(icon) })
	app.Event.OnApplicationEvent(events.Common.ApplicationStarted, func(*application.ApplicationEvent) {
		slog.Debug("tray started")
		i.markStarted()
	})
	return i
}

func newIndicator(run func() error, quit func(), setIcon func([]byte)) *Indicator {
	return &Indicator{
		cmds:    make(chan Command, 32),
		setIcon: setIcon,
		run:     run,
		quit:    quit,
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (i *Indicator) markStarted() {
	i.startOnce.Do(func() { close(i.started) })
}

// Commands returns the channel consumed by the tray loop.
func (i *Indicator) Commands() chan<- Command {
	return i.cmds
}

// Run blocks in the native event loop and must be called from the main
// goroutine. It returns after Quit, or with an error if the loop fails.
func (i *Indicator) Run(ctx context.Context) error {
	defer close(i.stopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go Loop(ctx, i.cmds, i.setIcon)

	return i.run()
}

// Quit stops the native event loop. A native loop stops only once it is
// running, so Quit waits until it has started, or until Run has returned
// without starting it.
func (i *Indicator) Quit() {
	select {
	case <-i.started:
		i.quit()
	case <-i.stopped:
	}
}
