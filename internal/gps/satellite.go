// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "sort"

// Satellite is one satellite-in-view record. Records are values; nothing
// mutates them after construction.
type Satellite struct {
	Constellation Constellation `json:"constellation"`
	ID            string        `json:"id"`
	Elevation     int           `json:"elevation"` // degrees
	Azimuth       int           `json:"azimuth"`   // degrees
	Noise         int           `json:"noise"`     // SNR, dB-Hz
}

// SatelliteSet orders records by id and drops later duplicates of the same id.
func SatelliteSet(in []Satellite) []Satellite {
	out := make([]Satellite, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
