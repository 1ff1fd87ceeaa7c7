// Package notify delivers best-effort desktop notifications. Delivery
// failures are never surfaced to callers; a missed toast must not affect
// clipboard processing.
package notify

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

const appName = "clipstage"

// Notifier posts a notification.
type Notifier interface {
	Notify(title, body string)
}

// New returns the platform notifier, or a no-op one when disabled.
func New(enabled bool) Notifier {
	if !enabled {
		return nopNotifier{}
	}
	return desktopNotifier{}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// desktopNotifier shells out to the platform notification tool: osascript on
// macOS, notify-send on Linux. Elsewhere the notification only reaches the
// log.
type desktopNotifier struct{}

func (desktopNotifier) Notify(title, body string) {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q subtitle %q", body, appName, title)
		if err := exec.Command("osascript", "-e", script).Run(); err != nil {
			slog.Debug("notification failed", "err", err)
		}
	case "linux":
		if err := exec.Command("notify-send", appName, title+"\n"+body).Run(); err != nil {
			slog.Debug("notification failed", "err", err)
		}
	default:
		slog.Info("notification", "title", title, "body", body)
	}
}
