// internal/model/core/geometry.go
package core

import "errors"

// GeometryType enumerates the feature geometry variants.
type GeometryType string

const (
	GeometryPoint      GeometryType = "Point"
	GeometryLineString GeometryType = "LineString"
	GeometryPolygon    GeometryType = "Polygon"
	GeometryCircle     GeometryType = "Circle"
)

// ErrInvalidGeometry is returned when a geometry's coordinates do not match
// its declared type.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry is a closed tagged variant over the supported feature shapes.
// Coordinates are geographic (longitude, latitude) pairs. Exactly the field
// matching Type is populated.
type Geometry struct {
	Type GeometryType `json:"type"`

	Point  []float64     `json:"point,omitempty"`  // [lon, lat]
	Line   [][]float64   `json:"line,omitempty"`   // [[lon, lat], ...]
	Rings  [][][]float64 `json:"rings,omitempty"`  // outer ring first
	Center []float64     `json:"center,omitempty"` // [lon, lat]
	Radius float64       `json:"radius,omitempty"` // meters
}

// Validate checks that the coordinates match the declared geometry type.
func (g Geometry) Validate() error {
	switch g.Type {
	case GeometryPoint:
		if len(g.Point) < 2 {
			return ErrInvalidGeometry
		}
	case GeometryLineString:
		if len(g.Line) < 2 {
			return ErrInvalidGeometry
		}
		for _, c := range g.Line {
			if len(c) < 2 {
				return ErrInvalidGeometry
			}
		}
	case GeometryPolygon:
		if len(g.Rings) == 0 {
			return ErrInvalidGeometry
		}
		for _, ring := range g.Rings {
			if len(ring) < 4 {
				return ErrInvalidGeometry
			}
			for _, c := range ring {
				if len(c) < 2 {
					return ErrInvalidGeometry
				}
			}
		}
	case GeometryCircle:
		if len(g.Center) < 2 || g.Radius <= 0 {
			return ErrInvalidGeometry
		}
	default:
		return ErrInvalidGeometry
	}
	return nil
}

// Clone returns a deep copy of the geometry.
func (g Geometry) Clone() Geometry {
	c := g
	if g.Point != nil {
		c.Point = append([]float64(nil), g.Point...)
	}
	if g.Line != nil {
		c.Line = make([][]float64, len(g.Line))
		for i, p := range g.Line {
			c.Line[i] = append([]float64(nil), p...)
		}
	}
	if g.Rings != nil {
		c.Rings = make([][][]float64, len(g.Rings))
		for i, ring := range g.Rings {
			c.Rings[i] = make([][]float64, len(ring))
			for j, p := range ring {
				c.Rings[i][j] = append([]float64(nil), p...)
			}
		}
	}
	if g.Center != nil {
		c.Center = append([]float64(nil), g.Center...)
	}
	return c
}
