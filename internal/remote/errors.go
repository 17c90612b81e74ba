package remote

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoHosts is returned when an operation is asked to run on an empty host list.
	ErrNoHosts = errors.New("no hosts defined")

	// ErrNoBackendAvailable is returned by the delegating helpers when no host
	// visit is active on the context.
	ErrNoBackendAvailable = errors.New("no backend available: call within a host visit")
)

// ExecError describes a remote command that exited non-zero.
type ExecError struct {
	Host       string
	Command    string
	ExitStatus int
	Output     string
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q failed on %s with exit status %d", e.Command, e.Host, e.ExitStatus)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// HostError attributes an error to the host it happened on.
type HostError struct {
	Host string
	Err  error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s: %v", e.Host, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// HostErrors returns every HostError contained in err, in order, looking
// through wrapping and errors.Join.
func HostErrors(err error) []*HostError {
	switch e := err.(type) {
	case nil:
		return nil
	case *HostError:
		return []*HostError{e}
	case interface{ Unwrap() []error }:
		var out []*HostError
		for _, inner := range e.Unwrap() {
			out = append(out, HostErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return HostErrors(e.Unwrap())
	default:
		return nil
	}
}
