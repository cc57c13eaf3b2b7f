// ABOUTME: Notification channel for reporting mutation outcomes to the user
// ABOUTME: Defines severity levels and a default log-backed notifier
package sync

import "log"

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notifier receives human-readable outcome messages. The UI layer (toast,
// CLI output, HTTP response) decides how to present them.
type Notifier interface {
	Notify(severity Severity, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(severity Severity, message string)

func (f NotifierFunc) Notify(severity Severity, message string) {
	f(severity, message)
}

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(severity Severity, message string) {
	if severity == SeverityError {
		log.Printf("✗ %s", message)
		return
	}
	log.Printf("✓ %s", message)
}
