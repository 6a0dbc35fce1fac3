// Package device keeps track of bridged devices: identity, last contact and
// online/offline availability derived from frame arrival timeouts.
package device

import (
	"sync"
	"time"
)

// Status represents the availability of a device.
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Info contains bookkeeping for one device.
type Info struct {
	ID             string
	Type           string
	Name           string
	Status         Status
	LastSeen       time.Time
	FramesReceived int64
	CommandsSent   int64
}

// Registry tracks devices and their availability. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Info
	timeout time.Duration
}

// NewRegistry creates a registry; devices that stay silent for timeout are
// marked offline by the next sweep.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		devices: make(map[string]*Info),
		timeout: timeout,
	}
}

// Register adds a device if it is not yet known.
func (r *Registry) Register(id, deviceType, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[id]; exists {
		return
	}
	r.devices[id] = &Info{ID: id, Type: deviceType, Name: name}
}

// Touch records frame arrival for a device and reports whether it just came
// online (first frame, or first after being marked offline).
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[id]
	if !exists {
		d = &Info{ID: id}
		r.devices[id] = d
	}
	d.LastSeen = time.Now()
	d.FramesReceived++

	cameOnline := d.Status != StatusOnline
	d.Status = StatusOnline
	return cameOnline
}

// RecordCommand counts a command sent to a device.
func (r *Registry) RecordCommand(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, exists := r.devices[id]; exists {
		d.CommandsSent++
	}
}

// Get retrieves a snapshot of a device's bookkeeping.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.devices[id]
	if !exists {
		return Info{}, false
	}
	return *d, true
}

// All returns snapshots of all devices.
func (r *Registry) All() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	return out
}

// SweepExpired marks devices offline whose last frame is older than the
// timeout and returns the devices that transitioned on this sweep.
func (r *Registry) SweepExpired(now time.Time) []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []Info
	for _, d := range r.devices {
		if d.Status != StatusOnline {
			continue
		}
		if d.LastSeen.IsZero() || now.Sub(d.LastSeen) >= r.timeout {
			d.Status = StatusOffline
			expired = append(expired, *d)
		}
	}
	return expired
}
