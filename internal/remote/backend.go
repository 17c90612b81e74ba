package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// Result is the outcome of one remote command.
type Result struct {
	ExitStatus int
	Output     string
}

// Transport is the remote execution primitive. Run returns an error only when
// the command could not be run at all; a non-zero exit is reported through
// Result.ExitStatus.
type Transport interface {
	Run(ctx context.Context, id Identity, command string) (Result, error)
	Upload(ctx context.Context, id Identity, content []byte, dest string) error
}

// Backend issues commands against a single host.
type Backend interface {
	Identity() Identity
	// Execute runs the command and fails with *ExecError on a non-zero exit.
	Execute(ctx context.Context, args ...string) error
	// Capture runs the command and returns its trimmed output.
	Capture(ctx context.Context, args ...string) (string, error)
	// CaptureAllowFailure is Capture that tolerates a non-zero exit.
	CaptureAllowFailure(ctx context.Context, args ...string) (string, error)
	// Test reports whether the command exited zero.
	Test(ctx context.Context, args ...string) (bool, error)
	Upload(ctx context.Context, content []byte, dest string) error
}

// HostBackend is the Backend bound to one Identity over a Transport.
type HostBackend struct {
	transport Transport
	id        Identity
}

// NewBackend returns a backend for id.
func NewBackend(transport Transport, id Identity) *HostBackend {
	return &HostBackend{transport: transport, id: id}
}

// Command joins args into the command line sent to the remote shell.
func Command(args ...string) string {
	return strings.Join(args, " ")
}

func (b *HostBackend) Identity() Identity { return b.id }

func (b *HostBackend) run(ctx context.Context, args []string) (string, Result, error) {
	cmd := Command(args...)
	logr.FromContextOrDiscard(ctx).V(1).Info("running command", "host", b.id.String(), "command", cmd)

	res, err := b.transport.Run(ctx, b.id, cmd)
	if err != nil {
		return cmd, res, fmt.Errorf("failed to run %q on %s: %w", cmd, b.id, err)
	}
	return cmd, res, nil
}

func (b *HostBackend) Execute(ctx context.Context, args ...string) error {
	_, err := b.Capture(ctx, args...)
	return err
}

func (b *HostBackend) Capture(ctx context.Context, args ...string) (string, error) {
	cmd, res, err := b.run(ctx, args)
	if err != nil {
		return "", err
	}
	if res.ExitStatus != 0 {
		return "", &ExecError{
			Host:       b.id.String(),
			Command:    cmd,
			ExitStatus: res.ExitStatus,
			Output:     res.Output,
		}
	}
	return strings.TrimSpace(res.Output), nil
}

func (b *HostBackend) CaptureAllowFailure(ctx context.Context, args ...string) (string, error) {
	_, res, err := b.run(ctx, args)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Output), nil
}

func (b *HostBackend) Test(ctx context.Context, args ...string) (bool, error) {
	_, res, err := b.run(ctx, args)
	if err != nil {
		return false, err
	}
	return res.ExitStatus == 0, nil
}

func (b *HostBackend) Upload(ctx context.Context, content []byte, dest string) error {
	logr.FromContextOrDiscard(ctx).V(1).Info("uploading file", "host", b.id.String(), "dest", dest, "bytes", len(content))

	if err := b.transport.Upload(ctx, b.id, content, dest); err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", dest, b.id, err)
	}
	return nil
}
