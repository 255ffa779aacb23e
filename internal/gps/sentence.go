// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Kind tags a decoded sentence for dispatch.
type Kind string

const (
	KindPositionFix      Kind = "position-fix"
	KindSatelliteStatus  Kind = "satellite-status"
	KindSatellitesInView Kind = "satellites-in-view"
	KindReceiverAccuracy Kind = "receiver-accuracy"
	KindOther            Kind = "other"
)

// Sentence is a decoded record handed to the aggregator. Optional fields are
// pointers; nil means the receiver reported the field as not available.
type Sentence interface {
	Kind() Kind
}

// PositionFix is the GGA equivalent.
type PositionFix struct {
	Position   *Position
	Altitude   *float64 // meters above mean sea level
	FixQuality *FixQuality
}

func (PositionFix) Kind() Kind { return KindPositionFix }

// SatelliteStatus is the GSA equivalent.
type SatelliteStatus struct {
	FixStatus *FixStatus
}

func (SatelliteStatus) Kind() Kind { return KindSatelliteStatus }

// SatelliteInfo is one satellite block inside a GSV part.
type SatelliteInfo struct {
	ID        string
	Elevation int
	Azimuth   int
	Noise     int
}

// SatellitesInViewPart is one GSV sentence.
type SatellitesInViewPart struct {
	Talker        string
	MessageNumber int
	TotalMessages int
	// InView is the total number of satellites in view for the talker, as
	// repeated in every part.
	InView     int
	Satellites []SatelliteInfo
}

// SatellitesInView is a complete GSV batch for exactly one constellation.
type SatellitesInView struct {
	Parts []SatellitesInViewPart
}

func (SatellitesInView) Kind() Kind { return KindSatellitesInView }

// ReceiverAccuracy is the receiver's own accuracy estimate (u-blox PUBX,00).
type ReceiverAccuracy struct {
	Horizontal *float64 // meters
	Vertical   *float64 // meters
	NavStatus  *string
}

func (ReceiverAccuracy) Kind() Kind { return KindReceiverAccuracy }

// Other is any sentence the aggregator has no handler for. It still closes a
// satellite sweep.
type Other struct {
	Type string
}

func (Other) Kind() Kind { return KindOther }
