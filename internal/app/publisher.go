// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/gnss_status/internal/aggregator"
	"github.com/relabs-tech/gnss_status/internal/config"
	"github.com/relabs-tech/gnss_status/internal/logging"
)

// Publisher is the part of mqtt.Client the status publisher needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// StatusPublisher publishes every status change, retained, so a late
// subscriber immediately gets the current status.
type StatusPublisher struct {
	client Publisher
	topic  string
	qos    byte
	logger zerolog.Logger
}

func NewStatusPublisher(client Publisher, topic string, qos byte) *StatusPublisher {
	return &StatusPublisher{client: client, topic: topic, qos: qos, logger: logging.Module("mqtt")}
}

func (p *StatusPublisher) StatusChanged(ev aggregator.Event) {
	payload, err := json.Marshal(ev.Status)
	if err != nil {
		p.logger.Error().Err(err).Msg("status JSON marshal error")
		return
	}
	token := p.client.Publish(p.topic, p.qos, true, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			p.logger.Warn().Str("topic", p.topic).Msg("status publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warn().Err(err).Str("topic", p.topic).Msg("status publish error")
		}
	}()
}

// ConnectMQTT connects a client to the configured broker.
func ConnectMQTT(cfg config.MQTTConfig, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	logger := logging.Module("mqtt")
	logger.Info().Str("broker", cfg.Broker).Str("client_id", clientID).Msg("connected to MQTT broker")
	return client, nil
}
