// Package main provides the entry point for the go-battgw gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helgesson/go-battgw/internal/config"
	"github.com/helgesson/go-battgw/internal/pubsub"
	"github.com/helgesson/go-battgw/internal/service"
)

var Version = "unknown" // overridden by build flags

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("go-battgw %s\n", Version)
		return 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return 1
	}

	initLogger(cfg.LogLevel)

	log.Info().Str("version", Version).Msg("Starting go-battgw gateway")
	cfg.Print()

	if len(cfg.Devices) == 0 {
		log.Error().Msg("No devices configured")
		return 1
	}

	host, port := cfg.MQTT.Host, cfg.MQTT.Port
	if cfg.Broker.Enabled {
		host, port = cfg.Broker.Host, cfg.Broker.Port
	}
	client := pubsub.NewMQTTClient(pubsub.Options{
		Host:     host,
		Port:     port,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	})

	gateway, err := service.NewGateway(cfg, client)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create gateway")
		return 1
	}

	if err := gateway.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start gateway")
		return 1
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signalChan
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := gateway.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping gateway")
		return 1
	}

	log.Info().Msg("Gateway stopped")
	return 0
}

// initLogger configures the global zerolog logger.
func initLogger(level string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		fmt.Printf("Invalid log level '%s', defaulting to 'info'\n", level)
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)
	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}
