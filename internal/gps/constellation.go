// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"strings"
)

// Constellation identifies one GNSS provider. The value is the stable internal
// identifier and is also what shows up in JSON.
type Constellation string

const (
	GPS     Constellation = "GPS"
	GLONASS Constellation = "GLONASS"
	Galileo Constellation = "GALILEO"
	BeiDou  Constellation = "BEIDOU"
)

// ErrUnknownTalker is returned when a talker code maps to no constellation.
var ErrUnknownTalker = errors.New("gps: unknown talker code")

var talkers = map[string]Constellation{
	"GP": GPS,
	"GL": GLONASS,
	"GA": Galileo,
	"GB": BeiDou,
}

var names = map[Constellation]string{
	GPS:     "GPS",
	GLONASS: "GLONASS",
	Galileo: "Galileo",
	BeiDou:  "BeiDou",
}

// Constellations lists every known constellation in a fixed order.
func Constellations() []Constellation {
	return []Constellation{GPS, GLONASS, Galileo, BeiDou}
}

// FromTalker maps a two-letter NMEA talker code to its constellation.
func FromTalker(code string) (Constellation, error) {
	c, ok := talkers[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTalker, code)
	}
	return c, nil
}

// Talker returns the two-letter talker code, or "" for an unknown value.
func (c Constellation) Talker() string {
	for code, v := range talkers {
		if v == c {
			return code
		}
	}
	return ""
}

// Name is the human readable provider name ("Galileo", "BeiDou", ...).
func (c Constellation) Name() string {
	if n, ok := names[c]; ok {
		return n
	}
	return string(c)
}
