// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/relabs-tech/gnss_status/internal/config"
	"github.com/relabs-tech/gnss_status/internal/gps"
	"github.com/relabs-tech/gnss_status/internal/status"
)

// Report is what a replay prints once the log is consumed.
type Report struct {
	Status     status.Snapshot                       `json:"status"`
	Satellites map[gps.Constellation][]gps.Satellite `json:"satellites"`
}

// Replay runs r through a fresh monitor and writes the final status and
// satellite table as JSON to out.
func Replay(ctx context.Context, cfg config.AccuracyConfig, r io.Reader, out io.Writer) error {
	mon, err := NewMonitor(cfg)
	if err != nil {
		return err
	}
	if err := mon.Pipeline.Run(ctx, r); err != nil {
		return err
	}
	mon.Aggregator.Reconcile()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(Report{
		Status:     mon.Aggregator.Status(),
		Satellites: mon.Aggregator.Satellites(),
	})
}

// RunReplay replays the NMEA log at path to stdout.
func RunReplay(ctx context.Context, cfg *config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Replay(ctx, cfg.Accuracy, f, os.Stdout)
}
