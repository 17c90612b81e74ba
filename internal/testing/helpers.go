package testing

import (
	"context"
	"strings"
	"testing"
	"time"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// IndexOf returns the index of the first command containing substr, or -1.
func IndexOf(commands []string, substr string) int {
	for i, cmd := range commands {
		if strings.Contains(cmd, substr) {
			return i
		}
	}
	return -1
}
