// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gnss_status/internal/aggregator"
	"github.com/relabs-tech/gnss_status/internal/config"
	"github.com/relabs-tech/gnss_status/internal/logging"
)

// RunMonitor reads the receiver on the configured serial port, serves the
// HTTP API and, when enabled, publishes status changes to MQTT. It returns
// when ctx is done or the stream fails.
func RunMonitor(ctx context.Context, cfg *config.Config) error {
	logger := logging.Module("monitor")

	var opts []aggregator.Option
	if cfg.MQTT.Enable {
		client, err := ConnectMQTT(cfg.MQTT, cfg.MQTT.ClientID)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		opts = append(opts, aggregator.WithListener(NewStatusPublisher(client, cfg.MQTT.Topic, cfg.MQTT.QoS)))
	}

	mon, err := NewMonitor(cfg.Accuracy, opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           NewRouter(mon.Aggregator, mon.Hub, mon.Registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Web.Addr).Msg("web server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	serialOpts := serial.OpenOptions{
		PortName:              cfg.Serial.Port,
		BaudRate:              uint(cfg.Serial.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	logger.Info().Str("port", serialOpts.PortName).Uint("baud", serialOpts.BaudRate).Msg("GNSS serial port opened")

	runErr := make(chan error, 1)
	go func() { runErr <- mon.Pipeline.Run(ctx, port) }()

	select {
	case err := <-srvErr:
		return err
	case err := <-runErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}
