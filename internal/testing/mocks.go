package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/boringsvc/internal/remote"
)

// MockTransport is a testify mock of remote.Transport.
type MockTransport struct {
	mock.Mock
}

// Run records the call and returns the configured result.
func (m *MockTransport) Run(ctx context.Context, id remote.Identity, command string) (remote.Result, error) {
	args := m.Called(ctx, id, command)
	return args.Get(0).(remote.Result), args.Error(1)
}

// Upload records the call and returns the configured error.
func (m *MockTransport) Upload(ctx context.Context, id remote.Identity, content []byte, dest string) error {
	args := m.Called(ctx, id, content, dest)
	return args.Error(0)
}

// NewMockTransport creates a MockTransport with no expectations.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// WithCommand expects command on any host and returns result.
func (m *MockTransport) WithCommand(command string, result remote.Result) *MockTransport {
	m.On("Run", mock.Anything, mock.Anything, command).Return(result, nil)
	return m
}

// WithUpload expects an upload to dest on any host.
func (m *MockTransport) WithUpload(dest string) *MockTransport {
	m.On("Upload", mock.Anything, mock.Anything, mock.Anything, dest).Return(nil)
	return m
}
