package remote

import (
	"context"
	"strings"
)

// Systemd controls one unit on the current host.
type Systemd struct {
	Unit string
}

// Enable reloads unit files and enables the unit.
func (s Systemd) Enable(ctx context.Context) error {
	if err := Execute(ctx, "sudo", "systemctl", "daemon-reload"); err != nil {
		return err
	}
	return Execute(ctx, "sudo", "systemctl", "enable", s.Unit)
}

func (s Systemd) Start(ctx context.Context) error {
	return Execute(ctx, "sudo", "systemctl", "start", s.Unit)
}

func (s Systemd) Stop(ctx context.Context) error {
	return Execute(ctx, "sudo", "systemctl", "stop", s.Unit)
}

func (s Systemd) Restart(ctx context.Context) error {
	return Execute(ctx, "sudo", "systemctl", "restart", s.Unit)
}

func (s Systemd) Disable(ctx context.Context) error {
	return Execute(ctx, "sudo", "systemctl", "disable", s.Unit)
}

// Status returns `systemctl status` output. A stopped unit exits non-zero;
// that is not an error here.
func (s Systemd) Status(ctx context.Context) (string, error) {
	return CaptureAllowFailure(ctx, "sudo", "systemctl", "status", s.Unit)
}

// IsActiveRunning reports whether status output describes a running unit.
func IsActiveRunning(status string) bool {
	return strings.Contains(status, "active (running)")
}
