package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/imamik/boringsvc/internal/remote"
	"github.com/imamik/boringsvc/internal/util/retry"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second

	// MethodPublicKey, MethodPassword and MethodAgent name the supported
	// authentication methods.
	MethodPublicKey = "publickey"
	MethodPassword  = "password"
	MethodAgent     = "agent"
)

// Config holds SSH client configuration shared by every host.
type Config struct {
	// PrivateKey is a PEM encoded key used by the publickey method.
	PrivateKey []byte
	// Password is used by the password method.
	Password string
	// AuthMethods lists methods in the order they are offered.
	// If empty, publickey is used.
	AuthMethods []string
	// UseAgent offers the local agent's keys even when "agent" is not listed.
	UseAgent bool
	// ForwardAgent forwards the local agent into remote sessions.
	ForwardAgent bool
	// AgentSocket overrides SSH_AUTH_SOCK.
	AgentSocket string

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// CommandTimeout bounds a single command. Zero means no bound beyond ctx.
	CommandTimeout time.Duration

	// MaxRetries is the maximum number of connection retry attempts.
	// If zero, defaultMaxRetries is used.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback

	// Logger receives dial retries and agent warnings.
	Logger logr.Logger
}

// Client runs commands on remote hosts via SSH. It is safe for concurrent use.
type Client struct {
	config *Config
	signer ssh.Signer
	agent  agent.ExtendedAgent

	mu    sync.Mutex
	conns map[string]*ssh.Client
}

var _ remote.Transport = (*Client)(nil)

// NewClient creates a new SSH client and validates its credentials.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg
	configCopy.AuthMethods = append([]string(nil), cfg.AuthMethods...)

	if len(configCopy.AuthMethods) == 0 {
		configCopy.AuthMethods = []string{MethodPublicKey}
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.MaxRetries == 0 {
		configCopy.MaxRetries = defaultMaxRetries
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Opt-in verification via HostKeyCallback
	}
	if configCopy.Logger.GetSink() == nil {
		configCopy.Logger = logr.Discard()
	}

	c := &Client{
		config: &configCopy,
		conns:  make(map[string]*ssh.Client),
	}

	if c.wants(MethodPublicKey) {
		if len(configCopy.PrivateKey) == 0 {
			return nil, fmt.Errorf("config private key cannot be empty for %s auth", MethodPublicKey)
		}
		signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		c.signer = signer
	}

	if c.wants(MethodPassword) && configCopy.Password == "" {
		return nil, fmt.Errorf("password auth requires a password")
	}

	if c.wants(MethodAgent) || configCopy.UseAgent || configCopy.ForwardAgent {
		ag, err := dialAgent(configCopy.AgentSocket)
		switch {
		case err == nil:
			c.agent = ag
		case c.wants(MethodAgent) || configCopy.UseAgent:
			return nil, fmt.Errorf("failed to connect to ssh-agent: %w", err)
		default:
			configCopy.Logger.Info("agent forwarding disabled: no ssh-agent available", "error", err.Error())
		}
	}

	return c, nil
}

func (c *Client) wants(method string) bool {
	for _, m := range c.config.AuthMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func dialAgent(socket string) (agent.ExtendedAgent, error) {
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, err
	}
	return agent.NewClient(conn), nil
}

func (c *Client) authMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	agentOffered := false
	for _, m := range c.config.AuthMethods {
		switch strings.ToLower(m) {
		case MethodPublicKey:
			if c.signer != nil {
				methods = append(methods, ssh.PublicKeys(c.signer))
			}
		case MethodPassword:
			methods = append(methods, ssh.Password(c.config.Password))
		case MethodAgent:
			if c.agent != nil && !agentOffered {
				methods = append(methods, ssh.PublicKeysCallback(c.agent.Signers))
				agentOffered = true
			}
		}
	}
	if c.config.UseAgent && c.agent != nil && !agentOffered {
		methods = append(methods, ssh.PublicKeysCallback(c.agent.Signers))
	}
	return methods
}

// Run executes command on id. A non-zero exit is reported in the result.
func (c *Client) Run(ctx context.Context, id remote.Identity, command string) (remote.Result, error) {
	out, err := c.session(ctx, id, command, nil)
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return remote.Result{ExitStatus: exitErr.ExitStatus(), Output: string(out)}, nil
		}
		return remote.Result{Output: string(out)}, err
	}
	return remote.Result{Output: string(out)}, nil
}

// Upload writes content to dest on id.
func (c *Client) Upload(ctx context.Context, id remote.Identity, content []byte, dest string) error {
	out, err := c.session(ctx, id, "cat > "+shellQuote(dest), bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("upload to %s failed: %w: %s", dest, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close closes every cached connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, conn := range c.conns {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
		delete(c.conns, key)
	}
	return errors.Join(errs...)
}

type outcome struct {
	out []byte
	err error
}

func (c *Client) session(ctx context.Context, id remote.Identity, command string, stdin *bytes.Reader) ([]byte, error) {
	if c.config.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CommandTimeout)
		defer cancel()
	}

	session, err := c.newSession(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	if c.config.ForwardAgent && c.agent != nil {
		if err := agent.RequestAgentForwarding(session); err != nil {
			c.config.Logger.V(1).Info("agent forwarding refused", "host", id.String(), "error", err.Error())
		}
	}
	if stdin != nil {
		session.Stdin = stdin
	}

	done := make(chan outcome, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- outcome{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return nil, fmt.Errorf("command on %s interrupted: %w", id, ctx.Err())
	case o := <-done:
		return o.out, o.err
	}
}

// newSession opens a session on the cached connection, redialing once if
// the cached connection has gone away.
func (c *Client) newSession(ctx context.Context, id remote.Identity) (*ssh.Session, error) {
	client, err := c.connection(ctx, id)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err == nil {
		return session, nil
	}

	c.drop(id, client)
	client, err = c.connection(ctx, id)
	if err != nil {
		return nil, err
	}
	session, err = client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH session on %s: %w", id, err)
	}
	return session, nil
}

func connKey(id remote.Identity) string {
	return id.User + "@" + id.Address()
}

func (c *Client) connection(ctx context.Context, id remote.Identity) (*ssh.Client, error) {
	key := connKey(id)

	c.mu.Lock()
	if client, ok := c.conns[key]; ok {
		c.mu.Unlock()
		return client, nil
	}
	c.mu.Unlock()

	client, err := c.connect(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.conns[key]; ok {
		// Another worker won the race.
		_ = client.Close()
		return existing, nil
	}
	c.conns[key] = client

	if c.config.ForwardAgent && c.agent != nil {
		if err := agent.ForwardToAgent(client, c.agent); err != nil {
			c.config.Logger.V(1).Info("failed to set up agent forwarding", "host", id.String(), "error", err.Error())
		}
	}
	return client, nil
}

func (c *Client) drop(id remote.Identity, client *ssh.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[connKey(id)] == client {
		delete(c.conns, connKey(id))
	}
	_ = client.Close()
}

// connect establishes SSH connection with retry logic.
func (c *Client) connect(ctx context.Context, id remote.Identity) (*ssh.Client, error) {
	methods := c.authMethods()
	if len(methods) == 0 {
		return nil, fmt.Errorf("no usable SSH auth methods for %s", id)
	}

	config := &ssh.ClientConfig{
		User:            id.User,
		Auth:            methods,
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := id.Address()
	dialer := &net.Dialer{Timeout: c.config.DialTimeout}
	var client *ssh.Client

	policy := retry.Policy{
		Retries:    c.config.MaxRetries,
		Initial:    c.config.RetryDelay,
		Max:        defaultMaxDelay,
		Multiplier: retry.Default.Multiplier,
		Notify: func(attempt int, err error, next time.Duration) {
			c.config.Logger.Info("SSH dial failed, retrying", "host", id.String(), "attempt", attempt, "next", next.String(), "error", err.Error())
		},
	}
	err := policy.Do(ctx, func(int) error {
		conn, dialErr := dialer.DialContext(ctx, "tcp", addr)
		if dialErr != nil {
			return dialErr
		}
		sshConn, chans, reqs, dialErr := ssh.NewClientConn(conn, addr, config)
		if dialErr != nil {
			_ = conn.Close()
			if isAuthError(dialErr) {
				return retry.Fatal(dialErr)
			}
			return dialErr
		}
		client = ssh.NewClient(sshConn, chans, reqs)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", id, err)
	}

	return client, nil
}

func isAuthError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}

// shellQuote single-quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ReadPrivateKey reads a private key file, expanding a leading "~/".
func ReadPrivateKey(path string) ([]byte, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key %s: %w", path, err)
	}
	return data, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
