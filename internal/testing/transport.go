package testing

import (
	"context"
	"strings"
	"sync"

	"github.com/imamik/boringsvc/internal/remote"
)

// Call is one recorded transport interaction.
type Call struct {
	Host    string // user@host
	Command string // empty for uploads
	Dest    string // upload destination, empty for commands
	Content []byte
}

// IsUpload reports whether the call was an upload.
func (c Call) IsUpload() bool { return c.Dest != "" }

type rule struct {
	host   string // matches Identity.Host; empty matches every host
	substr string
	result remote.Result
	err    error
}

// RecordingTransport is an in-memory remote.Transport. Every command
// succeeds with empty output unless a rule registered with Respond,
// RespondOn, or FailOn matches. Rules are checked newest first.
// It is safe for concurrent use.
type RecordingTransport struct {
	mu          sync.Mutex
	calls       []Call
	rules       []rule
	uploadErr   map[string]error
	unreachable map[string]error
}

// NewRecordingTransport returns an empty RecordingTransport.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{
		uploadErr:   make(map[string]error),
		unreachable: make(map[string]error),
	}
}

// Respond returns result for every command containing substr.
func (t *RecordingTransport) Respond(substr string, result remote.Result) *RecordingTransport {
	return t.RespondOn("", substr, result)
}

// RespondOn is Respond limited to one host.
func (t *RecordingTransport) RespondOn(host, substr string, result remote.Result) *RecordingTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, rule{host: host, substr: substr, result: result})
	return t
}

// FailOn makes commands containing substr on host fail at the transport level.
// An empty host matches every host.
func (t *RecordingTransport) FailOn(host, substr string, err error) *RecordingTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules = append(t.rules, rule{host: host, substr: substr, err: err})
	return t
}

// Unreachable makes every command and upload on host fail with err.
func (t *RecordingTransport) Unreachable(host string, err error) *RecordingTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unreachable[host] = err
	return t
}

// FailUpload makes uploads to dest fail with err.
func (t *RecordingTransport) FailUpload(dest string, err error) *RecordingTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploadErr[dest] = err
	return t
}

// Run implements remote.Transport.
func (t *RecordingTransport) Run(_ context.Context, id remote.Identity, command string) (remote.Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, Call{Host: id.String(), Command: command})

	if err, ok := t.unreachable[id.Host]; ok {
		return remote.Result{}, err
	}
	for i := len(t.rules) - 1; i >= 0; i-- {
		r := t.rules[i]
		if r.host != "" && r.host != id.Host {
			continue
		}
		if strings.Contains(command, r.substr) {
			return r.result, r.err
		}
	}
	return remote.Result{}, nil
}

// Upload implements remote.Transport.
func (t *RecordingTransport) Upload(_ context.Context, id remote.Identity, content []byte, dest string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data := make([]byte, len(content))
	copy(data, content)
	t.calls = append(t.calls, Call{Host: id.String(), Dest: dest, Content: data})

	if err, ok := t.unreachable[id.Host]; ok {
		return err
	}
	return t.uploadErr[dest]
}

// Calls returns a copy of every recorded call in order.
func (t *RecordingTransport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, len(t.calls))
	copy(out, t.calls)
	return out
}

// Commands returns recorded command lines in order.
func (t *RecordingTransport) Commands() []string {
	var out []string
	for _, c := range t.Calls() {
		if !c.IsUpload() {
			out = append(out, c.Command)
		}
	}
	return out
}

// CommandsOn returns recorded command lines for one user@host.
func (t *RecordingTransport) CommandsOn(host string) []string {
	var out []string
	for _, c := range t.Calls() {
		if !c.IsUpload() && c.Host == host {
			out = append(out, c.Command)
		}
	}
	return out
}

// Uploads returns recorded uploads in order.
func (t *RecordingTransport) Uploads() []Call {
	var out []Call
	for _, c := range t.Calls() {
		if c.IsUpload() {
			out = append(out, c)
		}
	}
	return out
}

// UploadTo returns the content of the last upload to dest.
func (t *RecordingTransport) UploadTo(dest string) (string, bool) {
	uploads := t.Uploads()
	for i := len(uploads) - 1; i >= 0; i-- {
		if uploads[i].Dest == dest {
			return string(uploads[i].Content), true
		}
	}
	return "", false
}

// Count returns how many recorded commands contain substr.
func (t *RecordingTransport) Count(substr string) int {
	n := 0
	for _, cmd := range t.Commands() {
		if strings.Contains(cmd, substr) {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps rules.
func (t *RecordingTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
}
