package remote

import (
	"context"
	"fmt"
)

// Frame binds a host identity to the backend used to reach it.
type Frame struct {
	Identity Identity
	Backend  Backend

	parent *Frame
	depth  int
}

// Parent returns the enclosing frame, or nil for the outermost one.
func (f *Frame) Parent() *Frame { return f.parent }

type frameKey struct{}

// WithFrame returns a child context whose innermost frame binds id to b.
// The parent context is unchanged.
func WithFrame(ctx context.Context, id Identity, b Backend) context.Context {
	parent, _ := FrameFrom(ctx)
	depth := 1
	if parent != nil {
		depth = parent.depth + 1
	}
	return context.WithValue(ctx, frameKey{}, &Frame{
		Identity: id,
		Backend:  b,
		parent:   parent,
		depth:    depth,
	})
}

// FrameFrom returns the innermost frame on ctx.
func FrameFrom(ctx context.Context) (*Frame, bool) {
	f, ok := ctx.Value(frameKey{}).(*Frame)
	return f, ok && f != nil
}

// Depth returns the number of active frames on ctx.
func Depth(ctx context.Context) int {
	if f, ok := FrameFrom(ctx); ok {
		return f.depth
	}
	return 0
}

func mustFrame(ctx context.Context, what string) *Frame {
	f, ok := FrameFrom(ctx)
	if !ok {
		panic(fmt.Sprintf("remote: %s called outside a host visit", what))
	}
	return f
}

// CurrentHost returns the innermost host. It panics outside a host visit.
func CurrentHost(ctx context.Context) Identity {
	return mustFrame(ctx, "CurrentHost").Identity
}

// CurrentLabel returns the innermost host's display name. It panics
// outside a host visit.
func CurrentLabel(ctx context.Context) string {
	return mustFrame(ctx, "CurrentLabel").Identity.DisplayName()
}

// CurrentBackend returns the innermost backend. It panics outside a host visit.
func CurrentBackend(ctx context.Context) Backend {
	return mustFrame(ctx, "CurrentBackend").Backend
}

func backendFrom(ctx context.Context) (Backend, error) {
	f, ok := FrameFrom(ctx)
	if !ok || f.Backend == nil {
		return nil, ErrNoBackendAvailable
	}
	return f.Backend, nil
}

// Execute runs a command on the current backend.
func Execute(ctx context.Context, args ...string) error {
	b, err := backendFrom(ctx)
	if err != nil {
		return err
	}
	return b.Execute(ctx, args...)
}

// Capture runs a command on the current backend and returns its output.
func Capture(ctx context.Context, args ...string) (string, error) {
	b, err := backendFrom(ctx)
	if err != nil {
		return "", err
	}
	return b.Capture(ctx, args...)
}

// CaptureAllowFailure is Capture tolerating a non-zero exit.
func CaptureAllowFailure(ctx context.Context, args ...string) (string, error) {
	b, err := backendFrom(ctx)
	if err != nil {
		return "", err
	}
	return b.CaptureAllowFailure(ctx, args...)
}

// Test reports whether a command on the current backend exits zero.
func Test(ctx context.Context, args ...string) (bool, error) {
	b, err := backendFrom(ctx)
	if err != nil {
		return false, err
	}
	return b.Test(ctx, args...)
}

// Upload writes content to dest on the current backend.
func Upload(ctx context.Context, content []byte, dest string) error {
	b, err := backendFrom(ctx)
	if err != nil {
		return err
	}
	return b.Upload(ctx, content, dest)
}
