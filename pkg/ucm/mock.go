package ucm

import (
	"sync"

	"github.com/dougsko/audiohal/pkg/routing"
)

// MockBackend implements routing.Backend without touching hardware. It keeps
// the last applied verb and device list and every call it received.
type MockBackend struct {
	card string
	log  routing.Logger

	mu          sync.RWMutex
	initialized bool
	failWith    routing.Status
	verb        string
	devices     []string
	calls       []Call
}

// NewMockBackend creates a mock backend for card
func NewMockBackend(card string, logger routing.Logger) *MockBackend {
	return &MockBackend{card: card, log: logger}
}

// Init opens the mock card
func (m *MockBackend) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initialized = true
	if m.log != nil {
		m.log.Infof("MockUCM: opened card %s", m.card)
	}
	return nil
}

// Deinit closes the mock card
func (m *MockBackend) Deinit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return routing.StatusErrInvalidState
	}
	m.initialized = false
	m.verb = ""
	m.devices = nil
	if m.log != nil {
		m.log.Infof("MockUCM: closed card %s", m.card)
	}
	return nil
}

// SetDevices records the request and, unless told to fail, applies it
func (m *MockBackend) SetDevices(verb string, devices []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Verb: verb, Devices: append([]string(nil), devices...)})

	if !m.initialized {
		return routing.StatusErrInvalidState
	}
	if m.failWith != routing.StatusOK {
		return m.failWith
	}

	m.verb = verb
	m.devices = append([]string(nil), devices...)
	if m.log != nil {
		m.log.Infof("MockUCM: verb %s, devices %v", verb, devices)
	}
	return nil
}

// FailWith makes every later SetDevices return status; StatusOK clears it
func (m *MockBackend) FailWith(status routing.Status) {
	m.mu.Lock()
	m.failWith = status
	m.mu.Unlock()
}

// Applied returns the verb and devices currently programmed
func (m *MockBackend) Applied() (string, []string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.verb, append([]string(nil), m.devices...)
}

// Calls returns every SetDevices request so far
func (m *MockBackend) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Call(nil), m.calls...)
}

// IsInitialized reports whether Init has been called without a later Deinit
func (m *MockBackend) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}
