package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	commands []string
	result   Result
}

func (s *stubTransport) Run(_ context.Context, _ Identity, command string) (Result, error) {
	s.commands = append(s.commands, command)
	return s.result, nil
}

func (s *stubTransport) Upload(_ context.Context, _ Identity, _ []byte, _ string) error {
	return nil
}

func TestFrames_NestingAndScope(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Equal(t, 0, Depth(ctx))
	_, ok := FrameFrom(ctx)
	assert.False(t, ok)

	outerID := Identity{User: "u", Host: "outer"}
	innerID := Identity{User: "u", Host: "inner", Label: "db"}
	outer := WithFrame(ctx, outerID, NewBackend(&stubTransport{}, outerID))
	inner := WithFrame(outer, innerID, NewBackend(&stubTransport{}, innerID))

	assert.Equal(t, 1, Depth(outer))
	assert.Equal(t, 2, Depth(inner))
	assert.Equal(t, 0, Depth(ctx))

	assert.Equal(t, "outer", CurrentHost(outer).Host)
	assert.Equal(t, "inner", CurrentHost(inner).Host)
	assert.Equal(t, "db", CurrentLabel(inner))
	assert.Equal(t, "outer", CurrentLabel(outer))
	assert.Equal(t, innerID, CurrentBackend(inner).Identity())

	f, ok := FrameFrom(inner)
	require.True(t, ok)
	assert.Equal(t, outerID, f.Parent().Identity)
	assert.Nil(t, f.Parent().Parent())
}

func TestFrames_LookupsPanicOutsideVisit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Panics(t, func() { CurrentHost(ctx) })
	assert.Panics(t, func() { CurrentLabel(ctx) })
	assert.Panics(t, func() { CurrentBackend(ctx) })
}

func TestDelegation_NoBackendAvailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.ErrorIs(t, Execute(ctx, "true"), ErrNoBackendAvailable)
	_, err := Capture(ctx, "true")
	assert.ErrorIs(t, err, ErrNoBackendAvailable)
	_, err = CaptureAllowFailure(ctx, "true")
	assert.ErrorIs(t, err, ErrNoBackendAvailable)
	_, err = Test(ctx, "true")
	assert.ErrorIs(t, err, ErrNoBackendAvailable)
	assert.ErrorIs(t, Upload(ctx, []byte("x"), "/tmp/x"), ErrNoBackendAvailable)
	assert.ErrorIs(t, InstallPackage(ctx, "redis-server"), ErrNoBackendAvailable)
	assert.ErrorIs(t, Systemd{Unit: "redis-server"}.Start(ctx), ErrNoBackendAvailable)
}

func TestDelegation_UsesInnermostBackend(t *testing.T) {
	t.Parallel()

	outerT := &stubTransport{}
	innerT := &stubTransport{}
	outerID := Identity{User: "u", Host: "outer"}
	innerID := Identity{User: "u", Host: "inner"}

	ctx := WithFrame(context.Background(), outerID, NewBackend(outerT, outerID))
	ctx = WithFrame(ctx, innerID, NewBackend(innerT, innerID))

	require.NoError(t, Execute(ctx, "echo", "hi"))
	assert.Empty(t, outerT.commands)
	assert.Equal(t, []string{"echo hi"}, innerT.commands)
}

func TestHostBackend_ExitStatus(t *testing.T) {
	t.Parallel()

	id := Identity{User: "u", Host: "h"}
	tr := &stubTransport{result: Result{ExitStatus: 3, Output: "boom\n"}}
	b := NewBackend(tr, id)
	ctx := context.Background()

	err := b.Execute(ctx, "false")
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 3, execErr.ExitStatus)
	assert.Equal(t, "u@h", execErr.Host)
	assert.Contains(t, err.Error(), "boom")

	out, err := b.CaptureAllowFailure(ctx, "false")
	require.NoError(t, err)
	assert.Equal(t, "boom", out)

	ok, err := b.Test(ctx, "false")
	require.NoError(t, err)
	assert.False(t, ok)

	tr.result = Result{Output: " active (running) \n"}
	out, err = b.Capture(ctx, "systemctl", "status", "x")
	require.NoError(t, err)
	assert.Equal(t, "active (running)", out)
	assert.True(t, IsActiveRunning(out))
	assert.False(t, IsActiveRunning("inactive (dead)"))
}
