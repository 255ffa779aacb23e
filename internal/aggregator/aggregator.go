// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package aggregator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gnss_status/internal/accuracy"
	"github.com/relabs-tech/gnss_status/internal/gps"
	"github.com/relabs-tech/gnss_status/internal/logging"
	"github.com/relabs-tech/gnss_status/internal/metrics"
	"github.com/relabs-tech/gnss_status/internal/satellites"
	"github.com/relabs-tech/gnss_status/internal/status"
)

// Event is emitted once per structural status change. The total satellite
// count travels inside Status.
type Event struct {
	Status status.Snapshot `json:"status"`
	At     time.Time       `json:"at"`
}

// Listener receives status-changed events. It is called synchronously on the
// ingest path and must not block.
type Listener interface {
	StatusChanged(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) StatusChanged(ev Event) { f(ev) }

// Aggregator is the only writer of the status store and the satellite table.
// Apply calls are serialized; readers go straight to the store and table.
type Aggregator struct {
	store     *status.Store
	table     *satellites.Table
	estimator *accuracy.Estimator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	mu        sync.Mutex
	listeners []Listener
	digest    uint64
}

type Option func(*Aggregator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithListener(l Listener) Option {
	return func(a *Aggregator) { a.listeners = append(a.listeners, l) }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(store *status.Store, table *satellites.Table, estimator *accuracy.Estimator, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:     store,
		table:     table,
		estimator: estimator,
		logger:    logging.Module("aggregator"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.digest = store.Snapshot().Digest()
	return a
}

// AddListener registers l for subsequent events.
func (a *Aggregator) AddListener(l Listener) {
	a.mu.Lock()
	a.listeners = append(a.listeners, l)
	a.mu.Unlock()
}

// Status returns a copy of the current snapshot.
func (a *Aggregator) Status() status.Snapshot { return a.store.Snapshot() }

// Satellites returns a copy of the satellite table.
func (a *Aggregator) Satellites() map[gps.Constellation][]gps.Satellite {
	return a.table.Satellites()
}

// Apply routes one decoded sentence. Every kind except a satellites-in-view
// batch first closes the open satellite sweep.
//
// Errors are either a *ProtocolError (the sentence was rejected, state is
// untouched) or a *ConfigurationError (the stream should stop).
func (a *Aggregator) Apply(s gps.Sentence) error {
	if s == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if s.Kind() != gps.KindSatellitesInView {
		a.reconcileLocked()
	}

	var err error
	switch v := s.(type) {
	case gps.PositionFix:
		err = a.applyPositionFix(v)
	case gps.SatelliteStatus:
		a.store.SetFixStatus(v.FixStatus)
	case gps.SatellitesInView:
		err = a.applySatellitesInView(v)
	case gps.ReceiverAccuracy:
		a.applyReceiverAccuracy(v)
	case gps.Other:
	default:
		return &ProtocolError{Kind: s.Kind(), Reason: fmt.Sprintf("no handler for %T", s)}
	}

	var perr *ProtocolError
	if errors.As(err, &perr) {
		return err
	}
	a.detectChangeLocked()
	return err
}

func (a *Aggregator) ApplyPositionFix(fix gps.PositionFix) error { return a.Apply(fix) }

func (a *Aggregator) ApplySatelliteStatus(st gps.SatelliteStatus) error { return a.Apply(st) }

func (a *Aggregator) ApplySatellitesInView(batch gps.SatellitesInView) error { return a.Apply(batch) }

func (a *Aggregator) ApplyReceiverAccuracy(r gps.ReceiverAccuracy) error { return a.Apply(r) }

// Reconcile closes the satellite sweep without applying a sentence.
func (a *Aggregator) Reconcile() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconcileLocked()
}

func (a *Aggregator) reconcileLocked() {
	for _, c := range a.table.Reconcile() {
		a.logger.Info().Str("constellation", string(c)).Msg("constellation stopped reporting, satellites removed")
	}
}

func (a *Aggregator) applyPositionFix(fix gps.PositionFix) error {
	if fix.Position != nil {
		a.store.SetPosition(fix.Position.Latitude, fix.Position.Longitude)
	}
	a.store.SetAltitude(fix.Altitude)
	a.store.SetFixQuality(fix.FixQuality)

	if fix.Position == nil {
		return nil
	}
	est, ok, err := a.estimator.Observe(fix.Position.Latitude, fix.Position.Longitude)
	if err != nil {
		return &ConfigurationError{Err: err}
	}
	if ok {
		a.store.SetCalculatedAccuracy(est.HorizontalMeters)
		a.metrics.CalculatedAccuracy(est.HorizontalMeters, est.GeodesicMeters)
	}
	return nil
}

func (a *Aggregator) applyReceiverAccuracy(r gps.ReceiverAccuracy) {
	a.store.SetReceiverAccuracy(r.Horizontal, r.Vertical)
	a.metrics.ReceiverAccuracy(r.Horizontal, r.Vertical)

	e := a.logger.Debug()
	if r.Horizontal != nil {
		e = e.Float64("horizontal_m", *r.Horizontal)
	}
	if r.Vertical != nil {
		e = e.Float64("vertical_m", *r.Vertical)
	}
	if r.NavStatus != nil {
		a.metrics.NavigationStatus(*r.NavStatus)
		e = e.Str("nav_status", *r.NavStatus)
	}
	e.Msg("receiver accuracy")
}

func (a *Aggregator) applySatellitesInView(batch gps.SatellitesInView) error {
	if len(batch.Parts) == 0 {
		return a.reject(&ProtocolError{Kind: batch.Kind(), Reason: "empty batch"})
	}

	var (
		seen  []gps.Constellation
		count int
		sats  []gps.Satellite
	)
	for i, part := range batch.Parts {
		c, err := gps.FromTalker(part.Talker)
		if err != nil {
			return a.reject(&ProtocolError{Kind: batch.Kind(), Reason: fmt.Sprintf("part %d", i+1), Err: err})
		}
		if !contains(seen, c) {
			seen = append(seen, c)
		}
		count = max(count, part.InView)
		for _, info := range part.Satellites {
			sats = append(sats, gps.Satellite{
				Constellation: c,
				ID:            info.ID,
				Elevation:     info.Elevation,
				Azimuth:       info.Azimuth,
				Noise:         info.Noise,
			})
		}
	}
	if len(seen) > 1 {
		return a.reject(&ProtocolError{Kind: batch.Kind(), Reason: "batch mixes constellations", Constellations: seen})
	}

	constellation := seen[0]
	a.table.Replace(constellation, sats)
	a.store.SetSatelliteCount(constellation, count)
	a.metrics.Satellites(constellation, count)
	return nil
}

func (a *Aggregator) reject(err *ProtocolError) error {
	a.metrics.RejectedBatch()
	a.logger.Warn().Err(err).Str("kind", string(err.Kind)).Msg("sentence rejected")
	return err
}

func (a *Aggregator) detectChangeLocked() {
	snap := a.store.Snapshot()
	d := snap.Digest()
	if d == a.digest {
		return
	}
	a.digest = d

	ev := Event{Status: snap, At: a.now()}
	a.logStatus(ev)
	a.metrics.StatusChanged()
	for _, l := range a.listeners {
		l.StatusChanged(ev)
	}
}

func (a *Aggregator) logStatus(ev Event) {
	s := ev.Status
	e := a.logger.Info()
	optFloat := func(key string, v *float64) {
		if v != nil {
			e = e.Float64(key, *v)
		} else {
			e = e.Interface(key, nil)
		}
	}
	optFloat("latitude", s.Latitude)
	optFloat("longitude", s.Longitude)
	optFloat("altitude", s.Altitude)
	if s.FixQuality != nil {
		e = e.Str("fix_quality", string(*s.FixQuality))
	}
	if s.FixStatus != nil {
		e = e.Str("fix_status", string(*s.FixStatus))
	}
	counts := zerolog.Dict()
	for _, c := range gps.Constellations() {
		if n, ok := s.SatelliteCount[c]; ok {
			counts = counts.Int(string(c), n)
		}
	}
	optFloat("calculated_horizontal_accuracy_m", s.CalculatedHorizontalAccuracy)
	optFloat("receiver_horizontal_accuracy_m", s.ReceiverHorizontalAccuracy)
	optFloat("receiver_vertical_accuracy_m", s.ReceiverVerticalAccuracy)
	e.Dict("satellite_count", counts).
		Int("total_satellites", s.TotalSatellites()).
		Msg("gnss status changed")
}

func contains(cs []gps.Constellation, c gps.Constellation) bool {
	for _, v := range cs {
		if v == c {
			return true
		}
	}
	return false
}
