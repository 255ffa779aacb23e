// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/gnss_status/internal/accuracy"
	"github.com/relabs-tech/gnss_status/internal/aggregator"
	"github.com/relabs-tech/gnss_status/internal/config"
	"github.com/relabs-tech/gnss_status/internal/metrics"
	"github.com/relabs-tech/gnss_status/internal/satellites"
	"github.com/relabs-tech/gnss_status/internal/status"
)

// Monitor owns one receiver's state and everything that reads or feeds it.
type Monitor struct {
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Aggregator *aggregator.Aggregator
	Pipeline   *Pipeline
	Hub        *Hub
}

func NewMonitor(cfg config.AccuracyConfig, opts ...aggregator.Option) (*Monitor, error) {
	est, err := accuracy.NewEstimator(accuracy.Config{
		Capacity:  cfg.Capacity,
		Threshold: cfg.Threshold,
		Digits:    cfg.Digits,
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := NewHub()

	opts = append([]aggregator.Option{aggregator.WithMetrics(m), aggregator.WithListener(hub)}, opts...)
	agg := aggregator.New(status.NewStore(), satellites.NewTable(), est, opts...)

	return &Monitor{
		Registry:   reg,
		Metrics:    m,
		Aggregator: agg,
		Pipeline:   NewPipeline(agg, m),
		Hub:        hub,
	}, nil
}
