// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gnss_status/internal/config"
	"github.com/relabs-tech/gnss_status/internal/gps"
	"github.com/relabs-tech/gnss_status/internal/logging"
	"github.com/relabs-tech/gnss_status/internal/status"
)

// RunConsoleMQTT subscribes to the status topic and prints every message
// until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	logger := logging.Module("console")

	client, err := ConnectMQTT(cfg.MQTT, cfg.MQTT.ClientID+"-console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.MQTT.Topic, cfg.MQTT.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		var s status.Snapshot
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			logger.Warn().Err(err).Msg("status unmarshal error")
			return
		}
		fmt.Println(FormatStatus(s))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	logger.Info().Str("topic", cfg.MQTT.Topic).Msg("subscribed")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	return nil
}

// FormatStatus renders a snapshot as one console line.
func FormatStatus(s status.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[GNSS] lat=%s lon=%s alt=%s", optFloat(s.Latitude, 6), optFloat(s.Longitude, 6), optFloat(s.Altitude, 1))

	quality, fix := "-", "-"
	if s.FixQuality != nil {
		quality = string(*s.FixQuality)
	}
	if s.FixStatus != nil {
		fix = string(*s.FixStatus)
	}
	fmt.Fprintf(&b, " quality=%s fix=%s sats=%d", quality, fix, s.TotalSatellites())
	for _, c := range gps.Constellations() {
		if n, ok := s.SatelliteCount[c]; ok {
			fmt.Fprintf(&b, " %s=%d", c.Name(), n)
		}
	}
	fmt.Fprintf(&b, " acc=%sm rx_h=%sm rx_v=%sm",
		optFloat(s.CalculatedHorizontalAccuracy, 2),
		optFloat(s.ReceiverHorizontalAccuracy, 2),
		optFloat(s.ReceiverVerticalAccuracy, 2))
	return b.String()
}

func optFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}
