package remote_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/remote"
	testutil "github.com/imamik/boringsvc/internal/testing"
)

func TestRunOnHosts_EmptyList(t *testing.T) {
	t.Parallel()

	exec := remote.NewExecutor(testutil.NewRecordingTransport(), remote.Defaults{User: "ubuntu"})
	calls := 0
	err := exec.RunOnHosts(context.Background(), nil, func(context.Context) error {
		calls++
		return nil
	})

	require.ErrorIs(t, err, remote.ErrNoHosts)
	assert.Zero(t, calls)
}

func TestRunOnHosts_VisitsInOrderWithFrames(t *testing.T) {
	t.Parallel()

	exec := remote.NewExecutor(testutil.NewRecordingTransport(), remote.Defaults{User: "deploy"})
	hosts := []config.HostTarget{{Host: "h1"}, {Host: "h2", User: "admin", Label: "second"}, {Host: "h3"}}

	var seen []string
	var depths []int
	err := exec.RunOnHosts(context.Background(), hosts, func(ctx context.Context) error {
		seen = append(seen, remote.CurrentHost(ctx).String()+"/"+remote.CurrentLabel(ctx))
		depths = append(depths, remote.Depth(ctx))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"deploy@h1/h1", "admin@h2/second", "deploy@h3/h3"}, seen)
	assert.Equal(t, []int{1, 1, 1}, depths)
}

func TestRunOnHosts_DepthInvariant(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name  string
		hosts []config.HostTarget
		fail  bool
	}{
		{name: "none", hosts: nil},
		{name: "one ok", hosts: testutil.Hosts("h1")},
		{name: "three ok", hosts: testutil.Hosts("h1", "h2", "h3")},
		{name: "three failing", hosts: testutil.Hosts("h1", "h2", "h3"), fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := remote.NewExecutor(testutil.NewRecordingTransport(), remote.Defaults{})
			outerID := remote.Identity{User: "u", Host: "outer"}
			ctx := remote.WithFrame(context.Background(), outerID, remote.NewBackend(testutil.NewRecordingTransport(), outerID))
			before := remote.Depth(ctx)

			_ = exec.RunOnHosts(ctx, tt.hosts, func(inner context.Context) error {
				assert.Equal(t, before+1, remote.Depth(inner))
				if tt.fail {
					return boom
				}
				return nil
			})

			assert.Equal(t, before, remote.Depth(ctx))
			assert.Equal(t, "outer", remote.CurrentHost(ctx).Host)
		})
	}
}

func TestRunOnHosts_FailureDoesNotStopLaterHosts(t *testing.T) {
	t.Parallel()

	rt := testutil.NewRecordingTransport()
	rt.RespondOn("h2", "apt-get install", remote.Result{ExitStatus: 100, Output: "E: Unable to locate package"})
	exec := remote.NewExecutor(rt, remote.Defaults{User: "ubuntu"})

	err := exec.RunOnHosts(context.Background(), testutil.Hosts("h1", "h2", "h3"), func(ctx context.Context) error {
		return remote.InstallPackage(ctx, "memcached")
	})

	require.Error(t, err)
	hostErrs := remote.HostErrors(err)
	require.Len(t, hostErrs, 1)
	assert.Equal(t, "ubuntu@h2", hostErrs[0].Host)

	var execErr *remote.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 100, execErr.ExitStatus)

	assert.Len(t, rt.CommandsOn("ubuntu@h1"), 2)
	assert.Len(t, rt.CommandsOn("ubuntu@h3"), 2)
}

func TestRunOnHosts_InvalidTargetIsPerHost(t *testing.T) {
	t.Parallel()

	exec := remote.NewExecutor(testutil.NewRecordingTransport(), remote.Defaults{})
	var visited []string
	err := exec.RunOnHosts(context.Background(), []config.HostTarget{{User: "root"}, {Host: "h2"}}, func(ctx context.Context) error {
		visited = append(visited, remote.CurrentHost(ctx).Host)
		return nil
	})

	require.ErrorIs(t, err, remote.ErrMissingHost)
	assert.Equal(t, []string{"h2"}, visited)
}

func TestRunOnHosts_Parallel(t *testing.T) {
	t.Parallel()

	rt := testutil.NewRecordingTransport()
	rt.Unreachable("h3", errors.New("connection refused"))
	exec := remote.NewExecutor(rt, remote.Defaults{User: "ubuntu"}, remote.WithParallelism(4))
	assert.Equal(t, 4, exec.Parallelism())

	var mu sync.Mutex
	seen := map[string]int{}
	var active, peak int32

	err := exec.RunOnHosts(context.Background(), testutil.Hosts("h1", "h2", "h3", "h4", "h5"), func(ctx context.Context) error {
		n := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}

		mu.Lock()
		seen[remote.CurrentHost(ctx).Host] = remote.Depth(ctx)
		mu.Unlock()

		return remote.Execute(ctx, "uptime")
	})

	require.Error(t, err)
	hostErrs := remote.HostErrors(err)
	require.Len(t, hostErrs, 1)
	assert.Equal(t, "ubuntu@h3", hostErrs[0].Host)

	assert.Len(t, seen, 5)
	for host, depth := range seen {
		assert.Equal(t, 1, depth, host)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestRunOnHosts_CancelledContext(t *testing.T) {
	t.Parallel()

	exec := remote.NewExecutor(testutil.NewRecordingTransport(), remote.Defaults{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := exec.RunOnHosts(ctx, testutil.Hosts("h1", "h2"), func(context.Context) error {
		calls++
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
	assert.Len(t, remote.HostErrors(err), 2)
}

func TestOnHost(t *testing.T) {
	t.Parallel()

	rt := testutil.NewRecordingTransport()
	exec := remote.NewExecutor(rt, remote.Defaults{User: "ubuntu"})

	err := exec.OnHost(context.Background(), config.HostTarget{Host: "h1"}, func(ctx context.Context) error {
		return remote.Systemd{Unit: "nginx"}.Enable(ctx)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"sudo systemctl daemon-reload",
		"sudo systemctl enable nginx",
	}, rt.CommandsOn("ubuntu@h1"))
}
