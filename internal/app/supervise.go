package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Supervise runs fn in a new goroutine. If fn returns an error, returns
// nil before ctx is done, or panics, a fatal error naming the task is sent
// on fatal. Reports are dropped once fatal is full, since the first one
// already stops the coordinator.
func Supervise(ctx context.Context, name string, fatal chan<- error, fn func(ctx context.Context) error) {
	go func() {
		err := run(ctx, fn)
		switch {
		case err != nil:
		case ctx.Err() != nil:
			return
		default:
			err = errors.New("exited unexpectedly")
		}

		ferr := NewFatal(name, err)
		select {
		case fatal <- ferr:
		default:
			slog.Error("drop fatal report", "task", name, "error", err)
		}
	}()
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in supervised task", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
