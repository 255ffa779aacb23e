// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package receiver simulates a u-blox style receiver for demos and tests.
package receiver

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// Source yields the NMEA lines of one receiver epoch per call.
type Source interface {
	Next() ([]string, error)
}

type sat struct {
	id        string
	elevation int
	azimuth   int
}

type mockSource struct {
	lat, lon float64
	rnd      *rand.Rand
	epoch    int

	gps     []sat
	glonass []sat
}

// NewMock creates a source that reports positions jittering a few meters
// around the given centre. The same seed gives the same stream.
func NewMock(centerLat, centerLon float64, seed int64) Source {
	rnd := rand.New(rand.NewSource(seed))
	return &mockSource{
		lat: centerLat,
		lon: centerLon,
		rnd: rnd,
		gps: []sat{
			{"02", 17, 308}, {"05", 59, 290}, {"07", 61, 98}, {"08", 54, 157},
			{"10", 63, 137}, {"13", 22, 228}, {"27", 33, 265}, {"30", 8, 45},
		},
		glonass: []sat{{"65", 40, 83}, {"66", 12, 344}, {"72", 51, 190}},
	}
}

func (m *mockSource) Next() ([]string, error) {
	m.epoch++
	utc := fmt.Sprintf("%02d%02d%02d.00", (m.epoch/3600)%24, (m.epoch/60)%60, m.epoch%60)

	// about +-2 m of noise
	lat := m.lat + m.rnd.NormFloat64()*1.5e-5
	lon := m.lon + m.rnd.NormFloat64()*1.5e-5
	alt := 10 + m.rnd.NormFloat64()*0.5
	hAcc := 1.5 + m.rnd.Float64()
	vAcc := 2.5 + m.rnd.Float64()

	latS, ns := dm(lat, 2, "N", "S")
	lonS, ew := dm(lon, 3, "E", "W")

	lines := []string{
		frame(fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,%02d,0.9,%.1f,M,46.9,M,,", utc, latS, ns, lonS, ew, len(m.gps), alt)),
		frame("GPGSA,A,3," + gsaIDs(m.gps) + ",2.5,1.3,2.1"),
	}
	lines = append(lines, m.gsv("GP", m.gps)...)
	lines = append(lines, m.gsv("GL", m.glonass)...)
	lines = append(lines, frame(fmt.Sprintf(
		"PUBX,00,%s,%s,%s,%s,%s,%.3f,G3,%.1f,%.1f,0.007,77.52,0.007,,0.92,1.19,0.77,%d,0,0",
		utc, latS, ns, lonS, ew, alt, hAcc, vAcc, len(m.gps)+len(m.glonass))))
	return lines, nil
}

// gsv splits sats into parts of four satellites each.
func (m *mockSource) gsv(talker string, sats []sat) []string {
	total := (len(sats) + 3) / 4
	var out []string
	for part := 0; part < total; part++ {
		var b strings.Builder
		fmt.Fprintf(&b, "%sGSV,%d,%d,%02d", talker, total, part+1, len(sats))
		for i := part * 4; i < len(sats) && i < part*4+4; i++ {
			s := sats[i]
			snr := 20 + m.rnd.Intn(30)
			fmt.Fprintf(&b, ",%s,%02d,%03d,%02d", s.id, s.elevation, s.azimuth, snr)
		}
		out = append(out, frame(b.String()))
	}
	return out
}

// gsaIDs renders the twelve used-satellite slots of a GSA sentence.
func gsaIDs(sats []sat) string {
	ids := make([]string, 12)
	for i := 0; i < len(sats) && i < len(ids); i++ {
		ids[i] = sats[i].id
	}
	return strings.Join(ids, ",")
}

// dm formats decimal degrees as NMEA degrees and minutes.
func dm(v float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
		v = -v
	}
	deg := math.Floor(v)
	minutes := (v - deg) * 60
	return fmt.Sprintf("%0*d%08.5f", degDigits, int(deg), minutes), hemi
}

func frame(body string) string {
	return "$" + body + "*" + nmea.Checksum(body)
}
