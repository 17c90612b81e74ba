package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/imamik/boringsvc/internal/remote"
	"github.com/imamik/boringsvc/internal/util/keygen"
)

// generateTestKey generates a test RSA key pair for use in tests.
func generateTestKey(t *testing.T) *keygen.KeyPair {
	t.Helper()
	keyPair, err := keygen.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	return keyPair
}

// testServer is a minimal SSH server that understands "exit N",
// "echo ...", and "cat > 'path'".
type testServer struct {
	addr string

	mu     sync.Mutex
	files  map[string][]byte
	dials  int
	execed []string
}

func startTestServer(t *testing.T, authorized ssh.PublicKey, password string) *testServer {
	t.Helper()

	hostKey := generateTestKey(t)
	hostSigner, err := ssh.ParsePrivateKey(hostKey.PrivateKey)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if authorized != nil && bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if password != "" && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("wrong password")
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	srv := &testServer{addr: ln.Addr().String(), files: map[string][]byte{}}
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			srv.mu.Lock()
			srv.dials++
			srv.mu.Unlock()
			go srv.serve(nc, cfg)
		}
	}()
	return srv
}

func (s *testServer) serve(nc net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		_ = nc.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs)
	}
}

func (s *testServer) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()
	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}
		var payload struct{ Command string }
		_ = ssh.Unmarshal(req.Payload, &payload)
		_ = req.Reply(true, nil)

		status := s.exec(payload.Command, ch)
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{uint32(status)}))
		return
	}
}

func (s *testServer) exec(command string, ch ssh.Channel) int {
	s.mu.Lock()
	s.execed = append(s.execed, command)
	s.mu.Unlock()

	switch {
	case strings.HasPrefix(command, "cat > "):
		dest := strings.Trim(strings.TrimPrefix(command, "cat > "), "'")
		data, _ := io.ReadAll(ch)
		s.mu.Lock()
		s.files[dest] = data
		s.mu.Unlock()
		return 0
	case strings.HasPrefix(command, "exit "):
		n, _ := strconv.Atoi(strings.TrimPrefix(command, "exit "))
		_, _ = io.WriteString(ch.Stderr(), "failing on purpose\n")
		return n
	case strings.HasPrefix(command, "echo "):
		_, _ = io.WriteString(ch, strings.TrimPrefix(command, "echo ")+"\n")
		return 0
	case command == "sleep":
		time.Sleep(2 * time.Second)
		return 0
	default:
		return 127
	}
}

func (s *testServer) identity(t *testing.T, user string) remote.Identity {
	t.Helper()
	host, portStr, err := net.SplitHostPort(s.addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return remote.Identity{User: user, Host: host, Port: port}
}

func newKeyClient(t *testing.T) (*Client, ssh.PublicKey) {
	t.Helper()
	keyPair := generateTestKey(t)
	client, err := NewClient(&Config{
		PrivateKey: keyPair.PrivateKey,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, client.signer.PublicKey()
}

func TestNewClient_NilConfig(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
	assert.Equal(t, "config cannot be nil", err.Error())
}

func TestNewClient_Defaults(t *testing.T) {
	keyPair := generateTestKey(t)

	client, err := NewClient(&Config{PrivateKey: keyPair.PrivateKey})
	require.NoError(t, err)

	assert.Equal(t, []string{MethodPublicKey}, client.config.AuthMethods)
	assert.Equal(t, defaultDialTimeout, client.config.DialTimeout)
	assert.Equal(t, defaultMaxRetries, client.config.MaxRetries)
	assert.Equal(t, defaultRetryDelay, client.config.RetryDelay)
	assert.NotNil(t, client.signer)
}

func TestNewClient_ConfigNotMutated(t *testing.T) {
	keyPair := generateTestKey(t)
	cfg := &Config{PrivateKey: keyPair.PrivateKey}

	_, err := NewClient(cfg)
	require.NoError(t, err)

	assert.Empty(t, cfg.AuthMethods)
	assert.Zero(t, cfg.DialTimeout)
	assert.Zero(t, cfg.MaxRetries)
	assert.Zero(t, cfg.RetryDelay)
}

func TestNewClient_CredentialErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name:    "publickey without key",
			cfg:     &Config{},
			wantErr: "config private key cannot be empty",
		},
		{
			name:    "invalid key",
			cfg:     &Config{PrivateKey: []byte("invalid key")},
			wantErr: "failed to parse private key",
		},
		{
			name:    "password without password",
			cfg:     &Config{AuthMethods: []string{MethodPassword}},
			wantErr: "password auth requires a password",
		},
		{
			name:    "agent without socket",
			cfg:     &Config{AuthMethods: []string{MethodAgent}, AgentSocket: "/nonexistent/agent.sock"},
			wantErr: "failed to connect to ssh-agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewClient_ForwardAgentWithoutAgentIsNotFatal(t *testing.T) {
	keyPair := generateTestKey(t)

	client, err := NewClient(&Config{
		PrivateKey:   keyPair.PrivateKey,
		ForwardAgent: true,
		AgentSocket:  "/nonexistent/agent.sock",
	})
	require.NoError(t, err)
	assert.Nil(t, client.agent)
}

func TestClient_RunAndUpload(t *testing.T) {
	client, pub := newKeyClient(t)
	srv := startTestServer(t, pub, "")
	id := srv.identity(t, "deploy")
	ctx := context.Background()

	res, err := client.Run(ctx, id, "echo hello")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "hello\n", res.Output)

	res, err = client.Run(ctx, id, "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitStatus)
	assert.Contains(t, res.Output, "failing on purpose")

	require.NoError(t, client.Upload(ctx, id, []byte("maxmemory 128mb\n"), "/tmp/redis.conf"))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "maxmemory 128mb\n", string(srv.files["/tmp/redis.conf"]))
	assert.Equal(t, 1, srv.dials, "connection should be reused")
}

func TestClient_PasswordAuth(t *testing.T) {
	client, err := NewClient(&Config{
		AuthMethods: []string{MethodPassword},
		Password:    "s3cret",
		MaxRetries:  1,
		RetryDelay:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	srv := startTestServer(t, nil, "s3cret")
	res, err := client.Run(context.Background(), srv.identity(t, "root"), "echo ok")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", res.Output)
}

func TestClient_AuthFailureIsNotRetried(t *testing.T) {
	client, _ := newKeyClient(t)
	other := generateTestKey(t)
	otherSigner, err := ssh.ParsePrivateKey(other.PrivateKey)
	require.NoError(t, err)

	srv := startTestServer(t, otherSigner.PublicKey(), "")
	_, err = client.Run(context.Background(), srv.identity(t, "deploy"), "echo hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to authenticate")

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, 1, srv.dials)
}

func TestClient_ContextCancellation(t *testing.T) {
	client, pub := newKeyClient(t)
	srv := startTestServer(t, pub, "")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Run(ctx, srv.identity(t, "deploy"), "sleep")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_DialFailure(t *testing.T) {
	client, _ := newKeyClient(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	_, err = client.Run(context.Background(), remote.Identity{User: "deploy", Host: "127.0.0.1", Port: addr.Port}, "echo hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to establish SSH connection")
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'/etc/nginx/sites-available/default'`, shellQuote("/etc/nginx/sites-available/default"))
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	got, err := ExpandHome("~/.ssh/id_rsa")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.ssh/id_rsa", got)

	got, err = ExpandHome("/etc/keys/id_rsa")
	require.NoError(t, err)
	assert.Equal(t, "/etc/keys/id_rsa", got)
}
