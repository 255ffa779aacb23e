// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Position is a WGS84 fix in decimal degrees.
type Position struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// FixQuality is the GGA fix quality indicator.
type FixQuality string

const (
	FixInvalid    FixQuality = "INVALID"
	FixGPS        FixQuality = "GPS"
	FixDGPS       FixQuality = "DGPS"
	FixPPS        FixQuality = "PPS"
	FixRTK        FixQuality = "RTK"
	FixFloatRTK   FixQuality = "FLOAT_RTK"
	FixEstimated  FixQuality = "ESTIMATED"
	FixManual     FixQuality = "MANUAL"
	FixSimulation FixQuality = "SIMULATION"
)

var fixQualityCodes = map[string]FixQuality{
	"0": FixInvalid,
	"1": FixGPS,
	"2": FixDGPS,
	"3": FixPPS,
	"4": FixRTK,
	"5": FixFloatRTK,
	"6": FixEstimated,
	"7": FixManual,
	"8": FixSimulation,
}

// FixQualityFromCode maps the single digit GGA indicator.
func FixQualityFromCode(code string) (FixQuality, bool) {
	q, ok := fixQualityCodes[code]
	return q, ok
}

// FixStatus is the GSA fix type.
type FixStatus string

const (
	FixStatusNone FixStatus = "NONE"
	FixStatus2D   FixStatus = "2D"
	FixStatus3D   FixStatus = "3D"
)

// FixStatusFromCode maps the GSA fix type digit ("1", "2", "3").
func FixStatusFromCode(code string) (FixStatus, bool) {
	switch code {
	case "1":
		return FixStatusNone, true
	case "2":
		return FixStatus2D, true
	case "3":
		return FixStatus3D, true
	}
	return "", false
}
