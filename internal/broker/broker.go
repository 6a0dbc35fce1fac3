// Package broker runs an optional embedded MQTT broker. Fleets of vendor
// devices all connect with the same hardcoded client ID, which makes shared
// brokers drop sessions; the embedded broker accepts them without kicking
// each other off when no external broker is available.
package broker

import (
	"fmt"

	mqttserver "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/rs/zerolog/log"
)

// Broker wraps an embedded MQTT server.
type Broker struct {
	server  *mqttserver.Server
	address string
}

// New creates an embedded broker listening on the given host and port.
// All clients are accepted without authentication.
func New(host string, port int) (*Broker, error) {
	server := mqttserver.New(&mqttserver.Options{
		InlineClient: true,
	})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add auth hook: %w", err)
	}

	address := fmt.Sprintf("%s:%d", host, port)
	tcp := listeners.NewTCP(listeners.Config{
		ID:      "battgw-tcp",
		Address: address,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("failed to add TCP listener: %w", err)
	}

	return &Broker{server: server, address: address}, nil
}

// Start begins serving MQTT clients in the background.
func (b *Broker) Start() {
	go func() {
		if err := b.server.Serve(); err != nil {
			log.Error().Err(err).Msg("Embedded MQTT broker stopped")
		}
	}()
	log.Info().Str("address", b.address).Msg("Embedded MQTT broker listening")
}

// Close shuts down the broker.
func (b *Broker) Close() error {
	return b.server.Close()
}
