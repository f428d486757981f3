// Package notify carries short transient notifications from the state
// layers to whatever surface displays them.
package notify

import "github.com/harborchat/harbor-client/internal/fault"

// Notification is one transient user-visible message.
type Notification struct {
	Severity fault.Severity
	Text     string
}

// Notifier receives notifications. The UI supplies an implementation that
// forwards them to the running program.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops all notifications.
var Discard = Func(func(Notification) {})

// ForCategory picks the user-facing text for a classified fault. The text
// is driven by what broke, not by how urgent it is.
func ForCategory(cat fault.Category, f *fault.Fault) string {
	switch cat {
	case fault.CategoryNetwork:
		return "Connection issue detected. Retrying..."
	case fault.CategoryServer:
		return "The server had a problem. Please try again in a moment."
	case fault.CategoryClient:
		return "Request rejected. Please check your input."
	default:
		return f.Message
	}
}
