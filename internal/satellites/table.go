// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package satellites

import (
	"sort"
	"sync"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// Table holds the satellites in view per constellation.
//
// A constellation's set is replaced wholesale by each complete GSV batch and
// never merged. Constellations that stop reporting are dropped by Reconcile,
// which runs at the end of a sweep (the first non-GSV sentence after a run
// of batches). Replace and Reconcile share one write lock.
type Table struct {
	mu sync.RWMutex

	sats map[gps.Constellation][]gps.Satellite

	// seen collects constellations replaced since the last reconcile.
	seen       map[gps.Constellation]struct{}
	reconciled bool
}

func NewTable() *Table {
	return &Table{
		sats:       make(map[gps.Constellation][]gps.Satellite),
		seen:       make(map[gps.Constellation]struct{}),
		reconciled: true,
	}
}

// Replace installs sats as the complete set for c and marks c as seen in the
// current sweep.
func (t *Table) Replace(c gps.Constellation, sats []gps.Satellite) {
	set := gps.SatelliteSet(sats)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sats[c] = set
	t.seen[c] = struct{}{}
	t.reconciled = false
}

// Reconcile closes the current sweep: every constellation not replaced
// since the previous sweep is removed. It returns the removed constellations
// in a stable order. Calling it again before another Replace is a no-op.
func (t *Table) Reconcile() []gps.Constellation {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.reconciled {
		return nil
	}
	var removed []gps.Constellation
	for c := range t.sats {
		if _, ok := t.seen[c]; !ok {
			delete(t.sats, c)
			removed = append(removed, c)
		}
	}
	clear(t.seen)
	t.reconciled = true

	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

// Satellites returns a copy of the whole table.
func (t *Table) Satellites() map[gps.Constellation][]gps.Satellite {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[gps.Constellation][]gps.Satellite, len(t.sats))
	for c, set := range t.sats {
		out[c] = append([]gps.Satellite(nil), set...)
	}
	return out
}
