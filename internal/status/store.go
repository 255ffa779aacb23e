// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"sync"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// Store owns the live Snapshot. Every setter is its own critical section, so
// a concurrent reader may see fields from different updates; a single field
// is never torn.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{snap: Snapshot{SatelliteCount: map[gps.Constellation]int{}}}
}

// Snapshot returns a deep copy of the current state.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap.Clone()
}

func (st *Store) SetPosition(lat, lon float64) {
	st.mu.Lock()
	st.snap.Latitude = &lat
	st.snap.Longitude = &lon
	st.mu.Unlock()
}

func (st *Store) SetAltitude(v *float64) {
	v = cloneFloat(v)
	st.mu.Lock()
	st.snap.Altitude = v
	st.mu.Unlock()
}

func (st *Store) SetFixQuality(q *gps.FixQuality) {
	if q != nil {
		c := *q
		q = &c
	}
	st.mu.Lock()
	st.snap.FixQuality = q
	st.mu.Unlock()
}

func (st *Store) SetFixStatus(s *gps.FixStatus) {
	if s != nil {
		c := *s
		s = &c
	}
	st.mu.Lock()
	st.snap.FixStatus = s
	st.mu.Unlock()
}

func (st *Store) SetSatelliteCount(c gps.Constellation, n int) {
	st.mu.Lock()
	st.snap.SatelliteCount[c] = n
	st.mu.Unlock()
}

func (st *Store) SetCalculatedAccuracy(meters float64) {
	st.mu.Lock()
	st.snap.CalculatedHorizontalAccuracy = &meters
	st.mu.Unlock()
}

func (st *Store) SetReceiverAccuracy(horizontal, vertical *float64) {
	horizontal, vertical = cloneFloat(horizontal), cloneFloat(vertical)
	st.mu.Lock()
	st.snap.ReceiverHorizontalAccuracy = horizontal
	st.snap.ReceiverVerticalAccuracy = vertical
	st.mu.Unlock()
}
