// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accuracy

import (
	"fmt"
	"math"
	"sync"

	geo "github.com/kellydunn/golang-geo"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/gnss_status/internal/gps"
	"github.com/relabs-tech/gnss_status/internal/logging"
)

const (
	DefaultCapacity  = 100
	DefaultThreshold = 20
	DefaultDigits    = 7
)

type Config struct {
	// Capacity caps the recent-fix cache.
	Capacity int
	// Threshold is the cache size that must be exceeded before the estimate
	// is recomputed.
	Threshold int
	// Digits is the number of decimal places used to quantize fixes.
	Digits int
}

// Estimate is one recomputation result.
type Estimate struct {
	// HorizontalMeters is the planar distance between the farthest boundary
	// points of the enclosing circle, rounded half up to centimetres.
	HorizontalMeters float64 `json:"horizontal_m"`
	// GeodesicMeters is the great-circle distance between the same points,
	// unrounded.
	GeodesicMeters float64      `json:"geodesic_m"`
	Center         gps.Position `json:"center"`
	Samples        int          `json:"samples"`
}

// Estimator keeps the recent-fix cache and derives a horizontal accuracy
// figure from it.
type Estimator struct {
	cfg    Config
	logger zerolog.Logger

	mu    sync.Mutex
	cache *Cache
}

func NewEstimator(cfg Config) (*Estimator, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Digits <= 0 {
		cfg.Digits = DefaultDigits
	}
	if cfg.Threshold >= cfg.Capacity {
		return nil, fmt.Errorf("accuracy: threshold %d must be below capacity %d", cfg.Threshold, cfg.Capacity)
	}
	cache, err := NewCache(cfg.Capacity, cfg.Digits)
	if err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg, cache: cache, logger: logging.Module("accuracy")}, nil
}

// Observe records a fix. Once the cache holds more than Threshold entries
// every call recomputes the estimate and returns it with ok=true. A non-nil
// error wraps ErrProjection.
func (e *Estimator) Observe(lat, lon float64) (est Estimate, ok bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cache.Put(gps.Position{Latitude: lat, Longitude: lon})
	if e.cache.Len() <= e.cfg.Threshold {
		return Estimate{}, false, nil
	}

	est, err = Compute(e.cache.Positions())
	if err != nil {
		return Estimate{}, false, err
	}
	e.logger.Debug().
		Float64("horizontal_m", est.HorizontalMeters).
		Float64("geodesic_m", est.GeodesicMeters).
		Int("samples", est.Samples).
		Msg("accuracy recomputed")
	return est, true, nil
}

// Len is the current cache size.
func (e *Estimator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Len()
}

// Compute runs the estimate over positions: minimum enclosing circle in
// degrees, farthest boundary pair projected with a transverse Mercator
// centred on the circle, planar distance rounded half up.
//
// Longitudes are unwrapped around the first position so fixes on both sides
// of the antimeridian stay adjacent in the plane.
func Compute(positions []gps.Position) (Estimate, error) {
	if len(positions) == 0 {
		return Estimate{}, nil
	}
	ref := positions[0].Longitude
	pts := make([]Point, len(positions))
	for i, p := range positions {
		pts[i] = Point{X: ref + wrapLongitude(p.Longitude-ref), Y: p.Latitude}
	}
	circle := MinimumEnclosingCircle(pts)
	circle.Center.X = wrapLongitude(circle.Center.X)
	a, b := circle.FarthestPair()
	a.X, b.X = wrapLongitude(a.X), wrapLongitude(b.X)

	tm, err := NewTransverseMercator(circle.Center.Y, circle.Center.X)
	if err != nil {
		return Estimate{}, err
	}
	ax, ay, err := tm.Forward(a.Y, a.X)
	if err != nil {
		return Estimate{}, err
	}
	bx, by, err := tm.Forward(b.Y, b.X)
	if err != nil {
		return Estimate{}, err
	}
	planar := Point{X: ax, Y: ay}.dist(Point{X: bx, Y: by})

	geodesicKm := geo.NewPoint(a.Y, a.X).GreatCircleDistance(geo.NewPoint(b.Y, b.X))

	return Estimate{
		HorizontalMeters: RoundMeters(planar),
		GeodesicMeters:   geodesicKm * 1000,
		Center:           gps.Position{Latitude: circle.Center.Y, Longitude: circle.Center.X},
		Samples:          len(positions),
	}, nil
}

// wrapLongitude maps lon into [-180, 180).
func wrapLongitude(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	return math.Mod(math.Mod(lon+180, 360)+360, 360) - 180
}
