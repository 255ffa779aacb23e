// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sentence turns raw NMEA lines into the records the aggregator
// consumes.
package sentence

import (
	"fmt"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// GGA raw field positions.
const (
	ggaLatitude   = 1
	ggaLatDir     = 2
	ggaLongitude  = 3
	ggaLonDir     = 4
	ggaFixQuality = 5
	ggaAltitude   = 8
)

// GSA raw field position of the fix type.
const gsaFixType = 1

// Decoder is stateful: GSV parts are buffered until their batch completes.
type Decoder struct {
	parser nmea.SentenceParser

	mu   sync.Mutex
	gsvs *assembler
}

func NewDecoder() *Decoder {
	return &Decoder{
		parser: nmea.SentenceParser{
			CustomParsers: map[string]nmea.ParserFunc{
				TypeUBX: parsePUBX,
			},
		},
		gsvs: newAssembler(),
	}
}

// Decode parses one line. It returns (nil, nil) for a GSV part that does not
// yet complete its batch. Sentence types the aggregator does not use decode
// to gps.Other. Any decoded sentence other than GSV ends the satellite sweep.
func (d *Decoder) Decode(line string) (gps.Sentence, error) {
	s, err := d.decode(strings.TrimSpace(line))
	if s != nil && s.Kind() != gps.KindSatellitesInView {
		d.mu.Lock()
		d.gsvs.endSweep()
		d.mu.Unlock()
	}
	return s, err
}

func (d *Decoder) decode(line string) (gps.Sentence, error) {
	s, err := d.parser.Parse(line)
	if err != nil {
		// go-nmea rejects some well-formed sentences, e.g. a GGA without a
		// fix on some versions or a type it has no parser for.
		base, ok := splitBase(line)
		if !ok {
			return nil, err
		}
		switch base.Type {
		case nmea.TypeGGA:
			return positionFix(base)
		case nmea.TypeGSA:
			return satelliteStatus(base)
		case nmea.TypeGSV, TypeUBX:
			return nil, err
		}
		return gps.Other{Type: base.Type}, nil
	}

	switch m := s.(type) {
	case nmea.GGA:
		return positionFix(m.BaseSentence)
	case nmea.GSA:
		return satelliteStatus(m.BaseSentence)
	case nmea.GSV:
		d.mu.Lock()
		batch, err := d.gsvs.add(m)
		d.mu.Unlock()
		if err != nil || batch == nil {
			return nil, err
		}
		return *batch, nil
	case PUBX:
		if m.MsgID != "00" {
			return gps.Other{Type: TypeUBX + "," + m.MsgID}, nil
		}
		return gps.ReceiverAccuracy{Horizontal: m.HAcc, Vertical: m.VAcc, NavStatus: m.NavStatus}, nil
	}
	return gps.Other{Type: s.DataType()}, nil
}

// Pending is the number of GSV batches still waiting for parts.
func (d *Decoder) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gsvs.pendingBatches()
}

func positionFix(s nmea.BaseSentence) (gps.Sentence, error) {
	var fix gps.PositionFix
	p := nmea.NewParser(s)
	f := s.Fields
	if present(f, ggaLatitude) && present(f, ggaLatDir) && present(f, ggaLongitude) && present(f, ggaLonDir) {
		fix.Position = &gps.Position{
			Latitude:  p.LatLong(ggaLatitude, ggaLatDir, "latitude"),
			Longitude: p.LatLong(ggaLongitude, ggaLonDir, "longitude"),
		}
	}
	if present(f, ggaAltitude) {
		alt := p.Float64(ggaAltitude, "altitude")
		fix.Altitude = &alt
	}
	if present(f, ggaFixQuality) {
		q, ok := gps.FixQualityFromCode(p.String(ggaFixQuality, "fix quality"))
		if !ok {
			return nil, fmt.Errorf("sentence: GGA fix quality %q", f[ggaFixQuality])
		}
		fix.FixQuality = &q
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return fix, nil
}

func satelliteStatus(s nmea.BaseSentence) (gps.Sentence, error) {
	var st gps.SatelliteStatus
	if present(s.Fields, gsaFixType) {
		fs, ok := gps.FixStatusFromCode(s.Fields[gsaFixType])
		if !ok {
			return nil, fmt.Errorf("sentence: GSA fix type %q", s.Fields[gsaFixType])
		}
		st.FixStatus = &fs
	}
	return st, nil
}

// splitBase splits a checksum-valid line into its go-nmea base sentence.
func splitBase(line string) (nmea.BaseSentence, bool) {
	start := strings.IndexAny(line, "$!")
	star := strings.LastIndex(line, "*")
	if start < 0 || star < start || len(line) < star+3 {
		return nmea.BaseSentence{}, false
	}
	body := line[start+1 : star]
	sum := line[star+1 : star+3]
	if !strings.EqualFold(nmea.Checksum(body), sum) {
		return nmea.BaseSentence{}, false
	}
	fields := strings.Split(body, ",")
	prefix := fields[0]
	base := nmea.BaseSentence{Fields: fields[1:], Checksum: sum, Raw: line[start:]}
	switch {
	case strings.HasPrefix(prefix, "P") && len(prefix) > 1:
		base.Talker, base.Type = "P", prefix[1:]
	case len(prefix) > 2:
		base.Talker, base.Type = prefix[:2], prefix[2:]
	default:
		return nmea.BaseSentence{}, false
	}
	return base, true
}
