// Command device-sim emulates a vendor battery device on MQTT: it answers
// poll requests on the control topic with synthetic telemetry frames, which
// is enough to exercise the gateway end to end without hardware.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	prefix := flag.String("prefix", "hame_energy", "Vendor topic prefix")
	deviceType := flag.String("type", "HMB", "Device type token")
	deviceID := flag.String("id", "simdev001", "Device identifier")
	interval := flag.Duration("interval", 0, "Unsolicited report interval (0 = report only when polled)")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	reportTopic := fmt.Sprintf("%s/%s/device/%s/ctrl", *prefix, *deviceType, *deviceID)
	controlTopic := fmt.Sprintf("%s/%s/App/%s/ctrl", *prefix, *deviceType, *deviceID)

	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID(fmt.Sprintf("device-sim-%s", *deviceID)).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("Failed to connect to broker")
	}
	defer client.Disconnect(250)

	publishReport := func() {
		frame := runtimeFrame()
		if token := client.Publish(reportTopic, 0, false, frame); token.Wait() && token.Error() != nil {
			log.Warn().Err(token.Error()).Msg("Report publish failed")
			return
		}
		log.Info().Str("topic", reportTopic).Str("frame", frame).Msg("Report sent")
	}

	token := client.Subscribe(controlTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		frame := string(msg.Payload())
		log.Info().Str("frame", frame).Msg("Command received")
		if strings.HasPrefix(frame, "cd=1") {
			publishReport()
		}
	})
	if token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("Failed to subscribe to control topic")
	}
	log.Info().Str("topic", controlTopic).Msg("Listening for commands")

	if *interval > 0 {
		go func() {
			ticker := time.NewTicker(*interval)
			defer ticker.Stop()
			for range ticker.C {
				publishReport()
			}
		}()
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan
}

// runtimeFrame builds a plausible HMB runtime report with mild jitter so
// successive reports differ.
func runtimeFrame() string {
	soc := 40 + rand.Intn(40)
	w1 := 100 + rand.Intn(200)
	w2 := 80 + rand.Intn(200)
	g1 := 50 + rand.Intn(150)
	g2 := rand.Intn(100)
	temp := 20 + rand.Intn(15)

	pairs := []string{
		fmt.Sprintf("pe=%d", soc),
		"kn=2240",
		fmt.Sprintf("w1=%d", w1),
		fmt.Sprintf("w2=%d", w2),
		fmt.Sprintf("g1=%d", g1),
		fmt.Sprintf("g2=%d", g2),
		"o1=1",
		"o2=0",
		"sg=1",
		"cs=1",
		"lv=100",
		"do=85",
		fmt.Sprintf("tc=%d", temp),
		fmt.Sprintf("tf=%d", temp+2),
		fmt.Sprintf("m0=%d|%d|%d", 300+rand.Intn(50), 10+rand.Intn(20), w1*10),
		fmt.Sprintf("m1=%d|%d|%d", 290+rand.Intn(50), 10+rand.Intn(20), w2*10),
		"d1=9|0|17|30|62|250|1",
		"d2=18|0|22|0|127|400|1",
	}
	return strings.Join(pairs, ",")
}
