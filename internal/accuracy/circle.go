// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accuracy

import "math"

// Point is a planar point. For geodetic input X is longitude and Y latitude.
type Point struct {
	X, Y float64
}

func (p Point) dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Circle is a minimum enclosing circle together with the input points that
// lie on its boundary and define it (one, two or three of them).
type Circle struct {
	Center  Point
	Radius  float64
	Support []Point
}

func (c Circle) contains(p Point) bool {
	const eps = 1e-12
	return c.Center.dist(p) <= c.Radius*(1+eps)+eps
}

// FarthestPair returns the two support points farthest apart. For a
// two-point support this is the diameter; a single point is returned twice.
func (c Circle) FarthestPair() (Point, Point) {
	switch len(c.Support) {
	case 0:
		return c.Center, c.Center
	case 1:
		return c.Support[0], c.Support[0]
	}
	a, b := c.Support[0], c.Support[1]
	best := a.dist(b)
	for i := 0; i < len(c.Support); i++ {
		for j := i + 1; j < len(c.Support); j++ {
			if d := c.Support[i].dist(c.Support[j]); d > best {
				a, b, best = c.Support[i], c.Support[j], d
			}
		}
	}
	return a, b
}

// MinimumEnclosingCircle is the incremental (Welzl style) construction.
// Input order is taken as is; with the bounded cache the cubic worst case
// stays small.
func MinimumEnclosingCircle(pts []Point) Circle {
	if len(pts) == 0 {
		return Circle{}
	}
	c := Circle{Center: pts[0], Support: []Point{pts[0]}}
	for i := 1; i < len(pts); i++ {
		if c.contains(pts[i]) {
			continue
		}
		c = Circle{Center: pts[i], Support: []Point{pts[i]}}
		for j := 0; j < i; j++ {
			if c.contains(pts[j]) {
				continue
			}
			c = circleFrom2(pts[i], pts[j])
			for k := 0; k < j; k++ {
				if c.contains(pts[k]) {
					continue
				}
				c = circleFrom3(pts[i], pts[j], pts[k])
			}
		}
	}
	return c
}

func circleFrom2(a, b Point) Circle {
	center := Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	return Circle{Center: center, Radius: a.dist(b) / 2, Support: []Point{a, b}}
}

func circleFrom3(a, b, c Point) Circle {
	bx, by := b.X-a.X, b.Y-a.Y
	cx, cy := c.X-a.X, c.Y-a.Y
	d := 2 * (bx*cy - by*cx)
	if math.Abs(d) < 1e-18 {
		// Collinear: the farthest pair spans the other point.
		best := circleFrom2(a, b)
		for _, cand := range []Circle{circleFrom2(a, c), circleFrom2(b, c)} {
			if cand.Radius > best.Radius {
				best = cand
			}
		}
		return best
	}
	b2 := bx*bx + by*by
	c2 := cx*cx + cy*cy
	ux := (cy*b2 - by*c2) / d
	uy := (bx*c2 - cx*b2) / d
	center := Point{X: a.X + ux, Y: a.Y + uy}
	return Circle{Center: center, Radius: math.Hypot(ux, uy), Support: []Point{a, b, c}}
}
