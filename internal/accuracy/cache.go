// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accuracy

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// Key is a position quantized to a fixed number of decimal places. Two
// readings map to the same key exactly when they round to the same integer
// multiples of 10^-digits degrees.
type Key struct {
	Lat int64
	Lon int64
}

// Quantize rounds half away from zero at the given number of decimal places.
func Quantize(lat, lon float64, digits int) Key {
	scale := math.Pow10(digits)
	return Key{
		Lat: int64(math.Round(lat * scale)),
		Lon: int64(math.Round(lon * scale)),
	}
}

// Cache is the bounded set of recent fixes keyed by quantized position. A
// repeated key overwrites; beyond capacity the least recently written key is
// evicted.
type Cache struct {
	digits int
	lru    *lru.Cache[Key, gps.Position]
}

func NewCache(capacity, digits int) (*Cache, error) {
	l, err := lru.New[Key, gps.Position](capacity)
	if err != nil {
		return nil, fmt.Errorf("accuracy: recent fix cache: %w", err)
	}
	return &Cache{digits: digits, lru: l}, nil
}

// Put stores the fix and returns its key.
func (c *Cache) Put(p gps.Position) Key {
	k := Quantize(p.Latitude, p.Longitude, c.digits)
	c.lru.Add(k, p)
	return k
}

func (c *Cache) Len() int { return c.lru.Len() }

// Positions returns every cached fix, oldest write first.
func (c *Cache) Positions() []gps.Position { return c.lru.Values() }

func (c *Cache) Purge() { c.lru.Purge() }
