// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// Metrics groups the monitor's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	sentences       *prometheus.CounterVec
	decodeErrors    prometheus.Counter
	rejectedBatches prometheus.Counter
	statusChanges   prometheus.Counter

	calculatedAccuracy prometheus.Gauge
	geodesicAccuracy   prometheus.Gauge
	receiverHorizontal prometheus.Gauge
	receiverVertical   prometheus.Gauge
	navigationStatus   *prometheus.GaugeVec
	satellites         *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sentences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gnss_sentences_total",
			Help: "Decoded NMEA sentences by sentence type.",
		}, []string{"type"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gnss_decode_errors_total",
			Help: "Lines that could not be decoded.",
		}),
		rejectedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gnss_rejected_batches_total",
			Help: "Satellites-in-view batches rejected as protocol violations.",
		}),
		statusChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gnss_status_changes_total",
			Help: "Structural status changes emitted.",
		}),
		calculatedAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gnss_accuracy_calculated_meters",
			Help: "Horizontal accuracy derived from recent fixes.",
		}),
		geodesicAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gnss_accuracy_geodesic_meters",
			Help: "Great-circle distance across the same fixes, unrounded.",
		}),
		receiverHorizontal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gnss_accuracy_receiver_horizontal_meters",
			Help: "Receiver reported horizontal accuracy.",
		}),
		receiverVertical: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gnss_accuracy_receiver_vertical_meters",
			Help: "Receiver reported vertical accuracy.",
		}),
		navigationStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gnss_navigation_status",
			Help: "Receiver reported navigation status; the current one is 1.",
		}, []string{"status"}),
		satellites: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gnss_satellites",
			Help: "Satellites in view per constellation.",
		}, []string{"constellation"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.sentences, m.decodeErrors, m.rejectedBatches, m.statusChanges,
			m.calculatedAccuracy, m.geodesicAccuracy, m.receiverHorizontal, m.receiverVertical,
			m.navigationStatus, m.satellites,
		)
	}
	return m
}

func (m *Metrics) Sentence(sentenceType string) {
	if m == nil {
		return
	}
	m.sentences.WithLabelValues(sentenceType).Inc()
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) RejectedBatch() {
	if m == nil {
		return
	}
	m.rejectedBatches.Inc()
}

func (m *Metrics) StatusChanged() {
	if m == nil {
		return
	}
	m.statusChanges.Inc()
}

func (m *Metrics) CalculatedAccuracy(horizontal, geodesic float64) {
	if m == nil {
		return
	}
	m.calculatedAccuracy.Set(horizontal)
	m.geodesicAccuracy.Set(geodesic)
}

// ReceiverAccuracy sets whichever of the two values is present.
func (m *Metrics) ReceiverAccuracy(horizontal, vertical *float64) {
	if m == nil {
		return
	}
	if horizontal != nil {
		m.receiverHorizontal.Set(*horizontal)
	}
	if vertical != nil {
		m.receiverVertical.Set(*vertical)
	}
}

// NavigationStatus marks status as the only current one.
func (m *Metrics) NavigationStatus(status string) {
	if m == nil {
		return
	}
	m.navigationStatus.Reset()
	m.navigationStatus.WithLabelValues(status).Set(1)
}

func (m *Metrics) Satellites(c gps.Constellation, n int) {
	if m == nil {
		return
	}
	m.satellites.WithLabelValues(string(c)).Set(float64(n))
}
