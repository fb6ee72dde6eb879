package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(ctx context.Context, title, message string) error
}

type commandSender func(title, message string) (string, []string)

func (c commandSender) Send(ctx context.Context, title, message string) error {
	name, args := c(title, message)
	return exec.CommandContext(ctx, name, args...).Run()
}

var (
	linuxSender = commandSender(func(title, message string) (string, []string) {
		return "notify-send", []string{"--app-name=reelproxy", title, message}
	})
	macSender = commandSender(func(title, message string) (string, []string) {
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		return "osascript", []string{"-e", script}
	})
	windowsSender = commandSender(func(title, message string) (string, []string) {
		quote := func(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }
		script := "[reflection.assembly]::loadwithpartialname('System.Windows.Forms') | Out-Null;" +
			"$n = New-Object System.Windows.Forms.NotifyIcon;" +
			"$n.Icon = [System.Drawing.SystemIcons]::Information;" +
			"$n.Visible = $true;" +
			"$n.ShowBalloonTip(5000, " + quote(title) + ", " + quote(message) + ", 'Info')"
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", script}
	})
)

// Notifier prints a message and mirrors it as a desktop notification when
// the platform supports one. Delivery failures are ignored.
type Notifier struct {
	sender  NotificationSender
	timeout time.Duration
}

// NewNotifier picks the sender for the current platform
func NewNotifier() *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = linuxSender
	case "darwin":
		sender = macSender
	case "windows":
		sender = windowsSender
	}
	return NewNotifierWithSender(sender)
}

// NewNotifierWithSender uses sender, which may be nil for console only
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, timeout: 5 * time.Second}
}

func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(Output, "%s: %s\n", Green(title), message)
	n.deliver(title, message)
}

func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(Output, "%s: %s\n", Red(title), Red(message))
	n.deliver(title, message)
}

func (n *Notifier) deliver(title, message string) {
	if n.sender == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	_ = n.sender.Send(ctx, title, message)
}
