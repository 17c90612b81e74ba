package secrets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrMissingEnvVar is returned when a $NAME reference names an unset variable.
	ErrMissingEnvVar = errors.New("environment variable not set")

	// ErrCommandFailed is returned when a $(command) reference exits non-zero.
	ErrCommandFailed = errors.New("command failed")
)

// Kind classifies a secret reference.
type Kind int

const (
	KindEmpty Kind = iota
	KindLiteral
	KindEnv
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLiteral:
		return "literal"
	case KindEnv:
		return "env"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Reference is a parsed secret value.
type Reference struct {
	Kind Kind
	// Value is the literal text, the variable name or the command line,
	// depending on Kind.
	Value string
}

// Parse classifies a raw configuration value.
func Parse(raw string) Reference {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return Reference{Kind: KindEmpty}
	case strings.HasPrefix(value, "$(") && strings.HasSuffix(value, ")"):
		return Reference{Kind: KindCommand, Value: strings.TrimSpace(value[2 : len(value)-1])}
	case strings.HasPrefix(value, "$") && !strings.HasPrefix(value, "$("):
		return Reference{Kind: KindEnv, Value: value[1:]}
	default:
		return Reference{Kind: KindLiteral, Value: value}
	}
}

// Error describes a failed resolution. The reference is kept but never the
// resolved value.
type Error struct {
	Ref Reference
	Err error
}

func (e *Error) Error() string {
	switch e.Ref.Kind {
	case KindEnv:
		return fmt.Sprintf("secret $%s: %v", e.Ref.Value, e.Err)
	case KindCommand:
		return fmt.Sprintf("secret $(%s): %v", e.Ref.Value, e.Err)
	default:
		return fmt.Sprintf("secret: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CommandRunner runs a shell command and returns its stdout.
type CommandRunner func(ctx context.Context, command string) (stdout []byte, err error)

// Resolver resolves secret references. The zero value is not usable; use
// [NewResolver].
type Resolver struct {
	lookupEnv func(string) (string, bool)
	run       CommandRunner
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Resolver) {
		r.lookupEnv = fn
	}
}

// WithCommandRunner replaces the `sh -c` runner.
func WithCommandRunner(fn CommandRunner) Option {
	return func(r *Resolver) {
		r.run = fn
	}
}

// NewResolver creates a Resolver backed by the process environment and the
// local shell.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lookupEnv: os.LookupEnv,
		run:       runShell,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns a raw configuration value into its concrete string.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	ref := Parse(raw)
	switch ref.Kind {
	case KindEmpty:
		return "", nil
	case KindEnv:
		value, ok := r.lookupEnv(ref.Value)
		if !ok {
			return "", &Error{Ref: ref, Err: ErrMissingEnvVar}
		}
		return value, nil
	case KindCommand:
		out, err := r.run(ctx, ref.Value)
		if err != nil {
			return "", &Error{Ref: ref, Err: fmt.Errorf("%w: %v", ErrCommandFailed, err)}
		}
		return strings.TrimSpace(string(out)), nil
	default:
		return ref.Value, nil
	}
}

// ResolveKey resolves the named entry of an environment's secrets map.
// A missing key resolves to "".
func (r *Resolver) ResolveKey(ctx context.Context, values map[string]string, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	value, err := r.Resolve(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret %q: %w", key, err)
	}
	return value, nil
}

func runShell(ctx context.Context, command string) ([]byte, error) {
	// #nosec G204 -- the command comes from the operator's own config file
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
