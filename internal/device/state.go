package device

import (
	"sync"

	"github.com/helgesson/go-battgw/internal/decoder"
)

// StateStore holds the accumulated decoded state per device and sub-message.
// Frames update the stored state incrementally so sparse reports keep
// previously seen values.
type StateStore struct {
	mu     sync.Mutex
	states map[string]map[string]decoder.DeviceState
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]map[string]decoder.DeviceState)}
}

// Update applies fn to the state for a device's sub-message, creating it on
// first use, and returns a deep copy of the result.
func (s *StateStore) Update(deviceID, subMessage string, fn func(decoder.DeviceState)) decoder.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMsg, exists := s.states[deviceID]
	if !exists {
		byMsg = make(map[string]decoder.DeviceState)
		s.states[deviceID] = byMsg
	}
	state, exists := byMsg[subMessage]
	if !exists {
		state = decoder.NewDeviceState()
		byMsg[subMessage] = state
	}
	fn(state)
	return state.Clone()
}

// Get returns a deep copy of the state for a device's sub-message.
func (s *StateStore) Get(deviceID, subMessage string) (decoder.DeviceState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMsg, exists := s.states[deviceID]
	if !exists {
		return nil, false
	}
	state, exists := byMsg[subMessage]
	if !exists {
		return nil, false
	}
	return state.Clone(), true
}

// States returns deep copies of all sub-message states for a device.
func (s *StateStore) States(deviceID string) map[string]decoder.DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	byMsg, exists := s.states[deviceID]
	if !exists {
		return nil
	}
	out := make(map[string]decoder.DeviceState, len(byMsg))
	for name, state := range byMsg {
		out[name] = state.Clone()
	}
	return out
}
