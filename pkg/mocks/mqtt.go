// Package mocks provides in-memory stand-ins for the broker, for tests.
package mocks

import (
	"errors"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type message struct {
	topic   string
	qos     byte
	payload []byte
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return m.qos }
func (m *message) Retained() bool    { return false }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 0 }
func (m *message) Payload() []byte   { return m.payload }
func (m *message) Ack()              {}

// token is already complete when handed out.
type token struct{ err error }

var closed = func() chan struct{} { c := make(chan struct{}); close(c); return c }()

func (t *token) Wait() bool                     { return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Done() <-chan struct{}          { return closed }
func (t *token) Error() error                   { return t.err }

// ErrPublish is returned by tokens once FailPublish is set.
var ErrPublish = errors.New("mock publish failure")

// MockMqtt implements paho.Client and delivers every publish synchronously
// to the matching subscriptions.
type MockMqtt struct {
	mu          sync.Mutex
	router      map[string][]paho.MessageHandler
	published   map[string][][]byte
	connected   bool
	failPublish bool
}

var _ paho.Client = (*MockMqtt)(nil)

func NewMockMqtt() *MockMqtt {
	return &MockMqtt{
		router:    make(map[string][]paho.MessageHandler),
		published: make(map[string][][]byte),
		connected: true,
	}
}

func (m *MockMqtt) SetConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// FailPublish makes every later Publish return ErrPublish.
func (m *MockMqtt) FailPublish(v bool) {
	m.mu.Lock()
	m.failPublish = v
	m.mu.Unlock()
}

func (m *MockMqtt) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMqtt) IsConnectionOpen() bool { return m.IsConnected() }
func (m *MockMqtt) Connect() paho.Token    { m.SetConnected(true); return &token{} }
func (m *MockMqtt) Disconnect(uint)        { m.SetConnected(false) }

func (m *MockMqtt) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	var data []byte
	switch p := payload.(type) {
	case string:
		data = []byte(p)
	case []byte:
		data = p
	default:
		panic("invalid message type")
	}

	m.mu.Lock()
	if m.failPublish {
		m.mu.Unlock()
		return &token{err: ErrPublish}
	}
	m.published[topic] = append(m.published[topic], data)
	var callbacks []paho.MessageHandler
	for filter, cbs := range m.router {
		if match(filter, topic) {
			callbacks = append(callbacks, cbs...)
		}
	}
	m.mu.Unlock()

	for _, callback := range callbacks {
		callback(m, &message{topic: topic, qos: qos, payload: data})
	}
	return &token{}
}

func (m *MockMqtt) Subscribe(topic string, _ byte, callback paho.MessageHandler) paho.Token {
	m.mu.Lock()
	m.router[topic] = append(m.router[topic], callback)
	m.mu.Unlock()
	return &token{}
}

func (m *MockMqtt) SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token {
	for topic, qos := range filters {
		m.Subscribe(topic, qos, callback)
	}
	return &token{}
}

func (m *MockMqtt) Unsubscribe(topics ...string) paho.Token {
	m.mu.Lock()
	for _, t := range topics {
		delete(m.router, t)
	}
	m.mu.Unlock()
	return &token{}
}

func (m *MockMqtt) AddRoute(topic string, callback paho.MessageHandler) {
	m.Subscribe(topic, 0, callback)
}

func (m *MockMqtt) OptionsReader() paho.ClientOptionsReader {
	return paho.ClientOptionsReader{}
}

// Published returns the payloads sent to topic, oldest first.
func (m *MockMqtt) Published(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.published[topic]...)
}

// match implements the MQTT + and # wildcards.
func match(filter, topic string) bool {
	if filter == topic {
		return true
	}
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
