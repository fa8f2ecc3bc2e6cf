package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// Notifier handles desktop notifications for long-running downloads
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a new Notifier based on the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	default:
		sender = nil
	}

	return &Notifier{sender: sender}
}

// SendNotification sends a desktop notification and prints to console
func (n *Notifier) SendNotification(title, message string) {
	fmt.Printf("\n%s: %s\n", Cyan(title), Yellow(message))

	if n.sender != nil {
		// Notifications are best effort
		_ = n.sender.Send(title, message)
	}
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Printf("\n%s: %s\n", Red(title), Red(message))

	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Printf("\n%s: %s\n", Green(title), Green(message))

	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
