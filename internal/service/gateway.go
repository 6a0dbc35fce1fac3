// Package service wires the gateway together: frames arriving on vendor
// report topics are parsed, decoded per matching sub-message and republished
// as state JSON, commands flow the other way, and Home Assistant discovery
// and availability ride along.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helgesson/go-battgw/internal/api"
	"github.com/helgesson/go-battgw/internal/broker"
	"github.com/helgesson/go-battgw/internal/catalog"
	"github.com/helgesson/go-battgw/internal/config"
	"github.com/helgesson/go-battgw/internal/decoder"
	"github.com/helgesson/go-battgw/internal/device"
	"github.com/helgesson/go-battgw/internal/homeassistant"
	"github.com/helgesson/go-battgw/internal/poller"
	"github.com/helgesson/go-battgw/internal/pubsub"
)

// Gateway is the top-level service binding transport, decoding and
// presentation together.
type Gateway struct {
	config    *config.Config
	client    pubsub.Client
	catalog   *catalog.Catalog
	registry  *device.Registry
	states    *device.StateStore
	discovery *homeassistant.AutoDiscovery
	broker    *broker.Broker
	poller    *poller.Poller
	apiServer *api.Server
	logger    zerolog.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool

	discMu       sync.Mutex
	discoveredAt map[string]time.Time
}

// NewGateway creates a gateway from configuration. The pubsub client is
// injected so tests can substitute a fake.
func NewGateway(cfg *config.Config, client pubsub.Client) (*Gateway, error) {
	cat, err := catalog.BuiltIn()
	if err != nil {
		return nil, fmt.Errorf("failed to build device catalog: %w", err)
	}

	g := &Gateway{
		config:       cfg,
		client:       client,
		catalog:      cat,
		registry:     device.NewRegistry(time.Duration(cfg.Availability.TimeoutSeconds) * time.Second),
		states:       device.NewStateStore(),
		logger:       log.With().Str("component", "gateway").Logger(),
		discoveredAt: make(map[string]time.Time),
	}

	for _, dc := range cfg.Devices {
		if _, ok := cat.Lookup(dc.Type); !ok {
			return nil, fmt.Errorf("device %q has unknown type %q", dc.ID, dc.Type)
		}
		g.registry.Register(dc.ID, dc.Type, dc.Name)
	}

	if cfg.HomeAssistant.Enabled {
		g.discovery, err = homeassistant.New(homeassistant.Config{
			DiscoveryPrefix: cfg.HomeAssistant.DiscoveryPrefix,
			RetainDiscovery: cfg.HomeAssistant.RetainDiscovery,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init Home Assistant discovery: %w", err)
		}
	}

	if cfg.Broker.Enabled {
		g.broker, err = broker.New(cfg.Broker.Host, cfg.Broker.Port)
		if err != nil {
			return nil, fmt.Errorf("failed to init embedded broker: %w", err)
		}
	}

	if cfg.API.Enabled {
		g.apiServer = api.NewServer(cfg, g)
	}

	return g, nil
}

// Start brings the gateway up: embedded broker first so the client has
// something to attach to, then subscriptions, polling, availability sweeps
// and the API.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return fmt.Errorf("gateway is already running")
	}

	if g.broker != nil {
		g.broker.Start()
	}

	if err := g.client.Connect(ctx); err != nil {
		return err
	}

	for _, dc := range g.config.Devices {
		if err := g.subscribeDevice(dc); err != nil {
			return err
		}
	}

	if g.discovery != nil && g.config.HomeAssistant.ListenToBirthMessage {
		birthTopic := fmt.Sprintf("%s/status", g.config.HomeAssistant.DiscoveryPrefix)
		if err := g.client.Subscribe(birthTopic, g.handleBirthMessage); err != nil {
			return err
		}
	}

	if g.config.Poll.Enabled {
		g.poller = poller.New(g.pollTargets(),
			time.Duration(g.config.Poll.IntervalSeconds)*time.Second,
			func(ctx context.Context, topic, payload string) error {
				return g.client.Publish(ctx, topic, false, payload)
			})
		if err := g.poller.Start(ctx); err != nil {
			return err
		}
	}

	if g.apiServer != nil {
		if err := g.apiServer.Start(ctx); err != nil {
			return err
		}
	}

	g.stopChan = make(chan struct{})
	g.wg.Add(1)
	go g.availabilityLoop(ctx)

	g.running = true
	g.logger.Info().Int("devices", len(g.config.Devices)).Msg("Gateway started")
	return nil
}

// Stop shuts the gateway down in reverse start order.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return fmt.Errorf("gateway is not running")
	}

	close(g.stopChan)
	g.wg.Wait()

	if g.poller != nil {
		if err := g.poller.Stop(); err != nil {
			g.logger.Warn().Err(err).Msg("Poller stop failed")
		}
	}
	if g.apiServer != nil {
		if err := g.apiServer.Stop(ctx); err != nil {
			g.logger.Warn().Err(err).Msg("API stop failed")
		}
	}

	// Leave retained offline markers so the automation platform does not
	// show stale live values.
	for _, d := range g.registry.All() {
		topic := g.config.AvailabilityTopic(d.ID)
		if err := g.client.Publish(ctx, topic, true, "offline"); err != nil {
			g.logger.Debug().Err(err).Str("device_id", d.ID).Msg("Offline publish failed")
		}
	}

	if err := g.client.Close(); err != nil {
		g.logger.Warn().Err(err).Msg("MQTT close failed")
	}
	if g.broker != nil {
		if err := g.broker.Close(); err != nil {
			g.logger.Warn().Err(err).Msg("Embedded broker close failed")
		}
	}

	g.running = false
	g.logger.Info().Msg("Gateway stopped")
	return nil
}

// subscribeDevice wires one device's report and command topics.
func (g *Gateway) subscribeDevice(dc config.DeviceConfig) error {
	reportTopic := g.config.ReportTopic(dc.Type, dc.ID)
	if err := g.client.Subscribe(reportTopic, func(_ string, payload []byte) {
		g.handleFrame(dc, payload)
	}); err != nil {
		return err
	}

	commandFilter := g.config.CommandTopic(dc.ID, "+")
	return g.client.Subscribe(commandFilter, func(topic string, payload []byte) {
		g.handleCommand(dc, topic, payload)
	})
}

// handleFrame processes one raw telemetry frame from a device.
func (g *Gateway) handleFrame(dc config.DeviceConfig, payload []byte) {
	ctx := context.Background()
	frame := string(payload)

	if cameOnline := g.registry.Touch(dc.ID); cameOnline {
		g.publishAvailability(ctx, dc.ID, true)
	}
	g.maybePublishDiscovery(ctx, dc)

	flat := decoder.ParseFrame(frame)
	if len(flat) == 0 {
		g.logger.Debug().Str("device_id", dc.ID).Msg("Frame had no usable pairs")
		return
	}

	model, ok := g.catalog.Lookup(dc.Type)
	if !ok {
		return
	}

	matched := 0
	for _, sub := range model.SubMessages {
		if !sub.Matches(flat) {
			continue
		}
		matched++
		state := g.states.Update(dc.ID, sub.Name, func(s decoder.DeviceState) {
			sub.Decode(flat, s)
		})

		topic := g.config.StateTopic(dc.ID, sub.Name)
		if err := g.client.Publish(ctx, topic, false, state); err != nil {
			g.logger.Warn().
				Err(err).
				Str("device_id", dc.ID).
				Str("sub_message", sub.Name).
				Msg("State publish failed")
		}
	}

	g.logger.Debug().
		Str("device_id", dc.ID).
		Int("pairs", len(flat)).
		Int("matched", matched).
		Msg("Frame processed")
}

// handleCommand maps a text command from the automation platform onto a
// vendor frame and publishes it to the device's control topic.
func (g *Gateway) handleCommand(dc config.DeviceConfig, topic string, payload []byte) {
	name := topic[strings.LastIndex(topic, "/")+1:]

	model, ok := g.catalog.Lookup(dc.Type)
	if !ok {
		return
	}
	cmd, ok := model.Command(name)
	if !ok {
		g.logger.Warn().
			Str("device_id", dc.ID).
			Str("command", name).
			Msg("Unknown command")
		return
	}

	frame := cmd.Build(string(payload))
	ctx := context.Background()
	if err := g.client.Publish(ctx, g.config.ControlTopic(dc.Type, dc.ID), false, frame); err != nil {
		g.logger.Warn().
			Err(err).
			Str("device_id", dc.ID).
			Str("command", name).
			Msg("Command publish failed")
		return
	}

	g.registry.RecordCommand(dc.ID)
	g.logger.Info().
		Str("device_id", dc.ID).
		Str("command", name).
		Msg("Command forwarded")
}

// handleBirthMessage reacts to the automation platform coming online by
// republishing every device's discovery configuration.
func (g *Gateway) handleBirthMessage(_ string, payload []byte) {
	if string(payload) != "online" {
		return
	}
	g.logger.Info().Msg("Home Assistant came online, refreshing discovery")

	g.discMu.Lock()
	g.discoveredAt = make(map[string]time.Time)
	g.discMu.Unlock()

	ctx := context.Background()
	for _, dc := range g.config.Devices {
		g.maybePublishDiscovery(ctx, dc)
	}
}

// maybePublishDiscovery publishes a device's discovery configs when none
// have been published yet or the rediscovery interval has elapsed.
func (g *Gateway) maybePublishDiscovery(ctx context.Context, dc config.DeviceConfig) {
	if g.discovery == nil {
		return
	}

	g.discMu.Lock()
	last, seen := g.discoveredAt[dc.ID]
	interval := time.Duration(g.config.HomeAssistant.RediscoveryInterval) * time.Hour
	due := !seen || (interval > 0 && time.Since(last) >= interval)
	if due {
		g.discoveredAt[dc.ID] = time.Now()
	}
	g.discMu.Unlock()
	if !due {
		return
	}

	model, ok := g.catalog.Lookup(dc.Type)
	if !ok {
		return
	}
	target := homeassistant.Target{
		ID:                dc.ID,
		Name:              dc.Name,
		ReportTopic:       g.config.ReportTopic(dc.Type, dc.ID),
		AvailabilityTopic: g.config.AvailabilityTopic(dc.ID),
	}

	messages, err := g.discovery.DeviceMessages(model, target)
	if err != nil {
		g.logger.Error().Err(err).Str("device_id", dc.ID).Msg("Discovery generation failed")
		return
	}
	for topic, msg := range messages {
		if err := g.client.Publish(ctx, topic, g.discovery.Retain(), msg); err != nil {
			g.logger.Warn().Err(err).Str("topic", topic).Msg("Discovery publish failed")
		}
	}

	g.logger.Info().
		Str("device_id", dc.ID).
		Int("entities", len(messages)).
		Msg("Discovery published")
}

// publishAvailability publishes a retained online/offline marker.
func (g *Gateway) publishAvailability(ctx context.Context, deviceID string, online bool) {
	payload := "offline"
	if online {
		payload = "online"
	}
	topic := g.config.AvailabilityTopic(deviceID)
	if err := g.client.Publish(ctx, topic, true, payload); err != nil {
		g.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Availability publish failed")
		return
	}
	g.logger.Info().Str("device_id", deviceID).Str("status", payload).Msg("Availability changed")
}

// availabilityLoop periodically expires devices that stopped reporting.
func (g *Gateway) availabilityLoop(ctx context.Context) {
	defer g.wg.Done()

	interval := time.Duration(g.config.Availability.SweepIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stopChan:
			return
		case <-ticker.C:
			for _, d := range g.registry.SweepExpired(time.Now()) {
				g.publishAvailability(ctx, d.ID, false)
			}
		}
	}
}

// pollTargets builds the poller's target list from configured devices.
func (g *Gateway) pollTargets() []poller.Target {
	targets := make([]poller.Target, 0, len(g.config.Devices))
	for _, dc := range g.config.Devices {
		model, ok := g.catalog.Lookup(dc.Type)
		if !ok || model.PollCommand == "" {
			continue
		}
		targets = append(targets, poller.Target{
			DeviceID: dc.ID,
			Topic:    g.config.ControlTopic(dc.Type, dc.ID),
			Command:  model.PollCommand,
		})
	}
	return targets
}

// Devices implements api.StateProvider.
func (g *Gateway) Devices() []device.Info {
	return g.registry.All()
}

// Device implements api.StateProvider.
func (g *Gateway) Device(id string) (device.Info, bool) {
	return g.registry.Get(id)
}

// DeviceStates implements api.StateProvider.
func (g *Gateway) DeviceStates(id string) map[string]decoder.DeviceState {
	return g.states.States(id)
}
