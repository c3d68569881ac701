package streaming

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// mockToken implements mqtt.Token for testing, always completed.
type mockToken struct {
	err error
	mu  sync.RWMutex
}

func newMockToken(err error) *mockToken {
	return &mockToken{err: err}
}

func (t *mockToken) Wait() bool                          { return t.WaitTimeout(30 * time.Second) }
func (t *mockToken) WaitTimeout(time.Duration) bool       { return true }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *mockToken) Error() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// mockPublisher implements the narrow Publisher contract via testify/mock.
type mockPublisher struct {
	mock.Mock
	mu        sync.RWMutex
	connected bool
}

func newMockPublisher() *mockPublisher {
	m := &mockPublisher{connected: true}
	m.On("IsConnected").Return(true).Maybe()
	m.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(newMockToken(nil)).Maybe()
	return m
}

func (m *mockPublisher) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockPublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	if t, ok := args.Get(0).(mqtt.Token); ok {
		return t
	}
	return newMockToken(nil)
}

func (m *mockPublisher) setConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *mockPublisher) publishedPayloads() [][]byte {
	var out [][]byte
	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}
		switch v := call.Arguments.Get(3).(type) {
		case []byte:
			out = append(out, v)
		case string:
			out = append(out, []byte(v))
		}
	}
	return out
}
