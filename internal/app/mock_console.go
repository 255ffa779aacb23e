// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/gnss_status/internal/aggregator"
	"github.com/relabs-tech/gnss_status/internal/config"
	"github.com/relabs-tech/gnss_status/internal/receiver"
)

// Mock receiver centre: Kailua-Kona, Hawaii.
const (
	mockLat = 19.65767
	mockLon = -155.94929
)

// RunMockConsole drives the pipeline from the simulated receiver, one epoch
// per second, and prints each status change.
func RunMockConsole(ctx context.Context, cfg *config.Config) error {
	return runMock(ctx, cfg.Accuracy, receiver.NewMock(mockLat, mockLon, time.Now().UnixNano()), time.Second, -1, os.Stdout)
}

// runMock stops after epochs epochs, or never when epochs < 0.
func runMock(ctx context.Context, cfg config.AccuracyConfig, src receiver.Source, interval time.Duration, epochs int, out io.Writer) error {
	printer := aggregator.ListenerFunc(func(ev aggregator.Event) {
		fmt.Fprintln(out, FormatStatus(ev.Status))
	})
	mon, err := NewMonitor(cfg, aggregator.WithListener(printer))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; epochs < 0 || n < epochs; n++ {
		lines, err := src.Next()
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := mon.Pipeline.Process(l); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
