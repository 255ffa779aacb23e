// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
	"math"
	"sort"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// Snapshot is the receiver status. Nil pointers are fields that have not been
// reported (or were last reported as not available).
type Snapshot struct {
	Latitude   *float64        `json:"latitude"`
	Longitude  *float64        `json:"longitude"`
	Altitude   *float64        `json:"altitude"`
	FixQuality *gps.FixQuality `json:"fix_quality"`
	FixStatus  *gps.FixStatus  `json:"fix_status"`

	SatelliteCount map[gps.Constellation]int `json:"satellite_count"`

	CalculatedHorizontalAccuracy *float64 `json:"calculated_horizontal_accuracy_m"`
	ReceiverHorizontalAccuracy   *float64 `json:"receiver_horizontal_accuracy_m"`
	ReceiverVerticalAccuracy     *float64 `json:"receiver_vertical_accuracy_m"`
}

// TotalSatellites sums the per-constellation counts.
func (s Snapshot) TotalSatellites() int {
	total := 0
	for _, n := range s.SatelliteCount {
		total += n
	}
	return total
}

// MarshalJSON adds the derived total_satellites figure.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		TotalSatellites int `json:"total_satellites"`
	}{plain(s), s.TotalSatellites()})
}

// Clone returns a deep copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Latitude:                     cloneFloat(s.Latitude),
		Longitude:                    cloneFloat(s.Longitude),
		Altitude:                     cloneFloat(s.Altitude),
		CalculatedHorizontalAccuracy: cloneFloat(s.CalculatedHorizontalAccuracy),
		ReceiverHorizontalAccuracy:   cloneFloat(s.ReceiverHorizontalAccuracy),
		ReceiverVerticalAccuracy:     cloneFloat(s.ReceiverVerticalAccuracy),
		SatelliteCount:               make(map[gps.Constellation]int, len(s.SatelliteCount)),
	}
	if s.FixQuality != nil {
		q := *s.FixQuality
		out.FixQuality = &q
	}
	if s.FixStatus != nil {
		st := *s.FixStatus
		out.FixStatus = &st
	}
	for c, n := range s.SatelliteCount {
		out.SatelliteCount[c] = n
	}
	return out
}

// Digest is a structural hash over every field. Two snapshots with equal
// field values always produce the same digest; map iteration order does not
// leak in.
func (s Snapshot) Digest() uint64 {
	h := fnv.New64a()
	var buf [8]byte

	writeFloat := func(v *float64) {
		if v == nil {
			h.Write([]byte{0})
			return
		}
		h.Write([]byte{1})
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(*v))
		h.Write(buf[:])
	}
	writeString := func(present bool, v string) {
		if !present {
			h.Write([]byte{0})
			return
		}
		h.Write([]byte{1})
		binary.BigEndian.PutUint64(buf[:], uint64(len(v)))
		h.Write(buf[:])
		h.Write([]byte(v))
	}

	writeFloat(s.Latitude)
	writeFloat(s.Longitude)
	writeFloat(s.Altitude)
	if s.FixQuality != nil {
		writeString(true, string(*s.FixQuality))
	} else {
		writeString(false, "")
	}
	if s.FixStatus != nil {
		writeString(true, string(*s.FixStatus))
	} else {
		writeString(false, "")
	}

	keys := make([]string, 0, len(s.SatelliteCount))
	for c := range s.SatelliteCount {
		keys = append(keys, string(c))
	}
	sort.Strings(keys)
	binary.BigEndian.PutUint64(buf[:], uint64(len(keys)))
	h.Write(buf[:])
	for _, k := range keys {
		writeString(true, k)
		binary.BigEndian.PutUint64(buf[:], uint64(int64(s.SatelliteCount[gps.Constellation(k)])))
		h.Write(buf[:])
	}

	writeFloat(s.CalculatedHorizontalAccuracy)
	writeFloat(s.ReceiverHorizontalAccuracy)
	writeFloat(s.ReceiverVerticalAccuracy)
	return h.Sum64()
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
