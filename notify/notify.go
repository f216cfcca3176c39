// Package notify shows desktop notifications.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const title = "rimay"

// Fatal tells the user the daemon stopped because of err.
func Fatal(err error) {
	if err == nil {
		return
	}
	if nerr := beeep.Notify(title, "Stopped: "+err.Error(), ""); nerr != nil {
		slog.Warn("desktop notification", "error", nerr)
	}
}
