// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sentence

import (
	"errors"
	"fmt"
	"sort"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// ErrBatchSequence is returned when a GSV part does not continue the batch
// it belongs to. The partial batch is discarded.
var ErrBatchSequence = errors.New("sentence: gsv part out of sequence")

type batchKey struct {
	talker   string
	signalID string
}

type pending struct {
	total int
	parts []gps.SatellitesInViewPart
}

// assembler groups GSV parts into complete satellites-in-view batches.
//
// Receivers that send one batch per signal (NMEA 4.10 signal ids) have the
// latest batch of every signal of a talker merged into the batch handed out,
// so each result covers the whole constellation. A signal that was not
// refreshed during a sweep is forgotten when the sweep ends.
type assembler struct {
	open map[batchKey]*pending

	signals   map[string]map[string][]gps.SatellitesInViewPart
	refreshed map[batchKey]struct{}
}

func newAssembler() *assembler {
	return &assembler{
		open:      make(map[batchKey]*pending),
		signals:   make(map[string]map[string][]gps.SatellitesInViewPart),
		refreshed: make(map[batchKey]struct{}),
	}
}

// add returns the finished batch once its last part arrives, nil otherwise.
func (a *assembler) add(m nmea.GSV) (*gps.SatellitesInView, error) {
	part := toPart(m)
	key := batchKey{talker: m.Talker, signalID: signalID(m.BaseSentence)}

	p, ok := a.open[key]
	switch {
	case part.MessageNumber == 1:
		p = &pending{total: part.TotalMessages}
		a.open[key] = p
	case !ok || part.MessageNumber != len(p.parts)+1 || part.TotalMessages != p.total:
		delete(a.open, key)
		return nil, fmt.Errorf("%w: %s part %d of %d", ErrBatchSequence, m.Talker, part.MessageNumber, part.TotalMessages)
	}

	p.parts = append(p.parts, part)
	if len(p.parts) < p.total {
		return nil, nil
	}
	delete(a.open, key)
	return a.merge(key, p.parts), nil
}

func (a *assembler) merge(key batchKey, parts []gps.SatellitesInViewPart) *gps.SatellitesInView {
	bySignal, ok := a.signals[key.talker]
	if !ok {
		bySignal = make(map[string][]gps.SatellitesInViewPart)
		a.signals[key.talker] = bySignal
	}
	bySignal[key.signalID] = parts
	a.refreshed[key] = struct{}{}

	if len(bySignal) == 1 {
		return &gps.SatellitesInView{Parts: parts}
	}
	ids := make([]string, 0, len(bySignal))
	for id := range bySignal {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var merged []gps.SatellitesInViewPart
	for _, id := range ids {
		merged = append(merged, bySignal[id]...)
	}
	return &gps.SatellitesInView{Parts: merged}
}

// endSweep drops every signal batch not refreshed since the previous call.
func (a *assembler) endSweep() {
	for talker, bySignal := range a.signals {
		for id := range bySignal {
			if _, ok := a.refreshed[batchKey{talker: talker, signalID: id}]; !ok {
				delete(bySignal, id)
			}
		}
		if len(bySignal) == 0 {
			delete(a.signals, talker)
		}
	}
	clear(a.refreshed)
}

// pendingBatches is the number of batches waiting for more parts.
func (a *assembler) pendingBatches() int { return len(a.open) }

func toPart(m nmea.GSV) gps.SatellitesInViewPart {
	part := gps.SatellitesInViewPart{
		Talker:        m.Talker,
		MessageNumber: int(m.MessageNumber),
		TotalMessages: int(m.TotalMessages),
		InView:        int(m.NumberSVsInView),
	}
	for i, info := range m.Info {
		id := fmt.Sprintf("%02d", info.SVPRNNumber)
		if f := 3 + 4*i; present(m.Fields, f) {
			id = m.Fields[f]
		}
		part.Satellites = append(part.Satellites, gps.SatelliteInfo{
			ID:        id,
			Elevation: int(info.Elevation),
			Azimuth:   int(info.Azimuth),
			Noise:     int(info.SNR),
		})
	}
	return part
}

// signalID is the trailing NMEA 4.10 signal id field, or "" for older
// receivers that do not send it.
func signalID(s nmea.BaseSentence) string {
	n := len(s.Fields)
	if n > 3 && (n-3)%4 == 1 {
		return s.Fields[n-1]
	}
	return ""
}
