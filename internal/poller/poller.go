// Package poller periodically requests telemetry from configured devices.
// The vendor firmware only reports on request, so without polling the
// gateway would go silent between app sessions.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Target is one device the poller requests telemetry from.
type Target struct {
	DeviceID string
	Topic    string
	Command  string
}

// PublishFunc sends a raw command frame to a topic.
type PublishFunc func(ctx context.Context, topic string, payload string) error

// Poller publishes each target's poll command on a fixed interval.
type Poller struct {
	targets  []Target
	interval time.Duration
	publish  PublishFunc
	logger   zerolog.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// New creates a poller for the given targets.
func New(targets []Target, interval time.Duration, publish PublishFunc) *Poller {
	return &Poller{
		targets:  targets,
		interval: interval,
		publish:  publish,
		logger:   log.With().Str("component", "poller").Logger(),
	}
}

// Start begins polling. The first round goes out immediately so state is
// available right after startup.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("poller is already running")
	}
	p.stopChan = make(chan struct{})
	p.running = true

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.Info().
		Dur("interval", p.interval).
		Int("targets", len(p.targets)).
		Msg("Poller started")
	return nil
}

// Stop shuts the poller down and waits for the loop to exit.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return fmt.Errorf("poller is not running")
	}
	close(p.stopChan)
	p.wg.Wait()
	p.running = false

	p.logger.Info().Msg("Poller stopped")
	return nil
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	for _, target := range p.targets {
		if err := p.publish(ctx, target.Topic, target.Command); err != nil {
			p.logger.Warn().
				Err(err).
				Str("device_id", target.DeviceID).
				Msg("Failed to publish poll command")
			continue
		}
		p.logger.Debug().
			Str("device_id", target.DeviceID).
			Str("topic", target.Topic).
			Msg("Poll command sent")
	}
}
