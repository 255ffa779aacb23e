// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accuracy

import (
	"errors"
	"fmt"
	"math"
)

// ErrProjection means the geodetic to planar transform could not be set up
// or applied. The estimator cannot produce anything useful after it.
var ErrProjection = errors.New("accuracy: projection failed")

// WGS84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
)

// maxLonSpan bounds the distance from the central meridian. The series
// below stays sub-millimetre well inside it.
const maxLonSpan = 30.0

// TransverseMercator is a local ellipsoidal transverse Mercator projection
// (Snyder, USGS PP 1395, eq. 8-9 / 8-10) with unit scale on the central
// meridian, so planar distances near the origin are ground distances.
type TransverseMercator struct {
	lat0, lon0 float64 // degrees
	e2, ep2    float64
	m0         float64
}

// NewTransverseMercator centres the projection on (lat0, lon0).
func NewTransverseMercator(lat0, lon0 float64) (*TransverseMercator, error) {
	if err := checkGeodetic(lat0, lon0); err != nil {
		return nil, fmt.Errorf("%w: origin: %v", ErrProjection, err)
	}
	e2 := wgs84F * (2 - wgs84F)
	tm := &TransverseMercator{
		lat0: lat0,
		lon0: lon0,
		e2:   e2,
		ep2:  e2 / (1 - e2),
	}
	tm.m0 = tm.meridianArc(lat0 * math.Pi / 180)
	return tm, nil
}

// Forward projects a geodetic point to easting/northing in meters relative
// to the origin.
func (tm *TransverseMercator) Forward(lat, lon float64) (x, y float64, err error) {
	if err := checkGeodetic(lat, lon); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrProjection, err)
	}
	dlon := math.Mod(lon-tm.lon0+540, 360) - 180
	if math.Abs(dlon) > maxLonSpan {
		return 0, 0, fmt.Errorf("%w: longitude %.6f is %.1f° from central meridian %.6f", ErrProjection, lon, dlon, tm.lon0)
	}

	phi := lat * math.Pi / 180
	sinPhi, cosPhi := math.Sincos(phi)
	tanPhi := math.Tan(phi)

	n := wgs84A / math.Sqrt(1-tm.e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := tm.ep2 * cosPhi * cosPhi
	a := dlon * math.Pi / 180 * cosPhi
	m := tm.meridianArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x = n * (a + (1-t+c)*a3/6 + (5-18*t+t*t+72*c-58*tm.ep2)*a5/120)
	y = m - tm.m0 + n*tanPhi*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*tm.ep2)*a6/720)
	return x, y, nil
}

func (tm *TransverseMercator) meridianArc(phi float64) float64 {
	e2 := tm.e2
	e4 := e2 * e2
	e6 := e4 * e2
	return wgs84A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

func checkGeodetic(lat, lon float64) error {
	switch {
	case math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0):
		return fmt.Errorf("non-finite coordinate (%v, %v)", lat, lon)
	case lat <= -90 || lat >= 90:
		return fmt.Errorf("latitude %v out of range", lat)
	case lon < -180 || lon > 180:
		return fmt.Errorf("longitude %v out of range", lon)
	}
	return nil
}
