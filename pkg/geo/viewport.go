package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Viewport is the ground rectangle a poster shows, centered on a point.
// Half extents are in meters on the ground.
type Viewport struct {
	Center     orb.Point
	HalfWidth  float64
	HalfHeight float64
}

// NewViewport frames center so that radius is the half size of the shorter
// side and the longer side follows aspect (width / height).
func NewViewport(center orb.Point, radius, aspect float64) Viewport {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}
	v := Viewport{Center: center, HalfWidth: radius, HalfHeight: radius}
	if aspect >= 1 {
		v.HalfWidth = radius * aspect
	} else {
		v.HalfHeight = radius / aspect
	}
	return v
}

// scale converts ground meters into Web Mercator meters at the center.
func (v Viewport) scale() float64 {
	c := math.Cos(v.Center.Lat() * math.Pi / 180)
	if c < 1e-6 {
		c = 1e-6
	}
	return 1 / c
}

// MercatorBound returns the viewport in Web Mercator coordinates.
func (v Viewport) MercatorBound() orb.Bound {
	c := project.WGS84.ToMercator(v.Center)
	k := v.scale()
	return orb.Bound{
		Min: orb.Point{c.X() - v.HalfWidth*k, c.Y() - v.HalfHeight*k},
		Max: orb.Point{c.X() + v.HalfWidth*k, c.Y() + v.HalfHeight*k},
	}
}

// Bound returns the viewport as a lon/lat bounding box, suitable for a
// provider bbox query.
func (v Viewport) Bound() orb.Bound {
	m := v.MercatorBound()
	return orb.Bound{
		Min: project.Mercator.ToWGS84(m.Min),
		Max: project.Mercator.ToWGS84(m.Max),
	}
}

// Projector maps lon/lat points onto a canvas of the given pixel size.
type Projector struct {
	bound         orb.Bound
	width, height float64
}

// Projector returns a projector for a width x height canvas.
func (v Viewport) Projector(width, height int) Projector {
	return Projector{bound: v.MercatorBound(), width: float64(width), height: float64(height)}
}

// Point projects p to canvas pixels with the origin at the top left.
func (p Projector) Point(pt orb.Point) (x, y float64) {
	m := project.WGS84.ToMercator(pt)
	dx := p.bound.Max.X() - p.bound.Min.X()
	dy := p.bound.Max.Y() - p.bound.Min.Y()
	if dx == 0 || dy == 0 {
		return 0, 0
	}
	x = (m.X() - p.bound.Min.X()) / dx * p.width
	y = (p.bound.Max.Y() - m.Y()) / dy * p.height
	return x, y
}
