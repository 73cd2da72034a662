// Package geo bridges scenario geometries to simplefeatures for spatial math
// and projects geographic coordinates to web-mercator for renderers.
//
// Snapshot geometry stays as plain coordinate arrays; these helpers are for
// computed reads (envelopes, measurement, export debugging) only.
package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
)

// ErrEmptyGeometry is returned when a geometry has no coordinates to work on.
var ErrEmptyGeometry = errors.New("empty geometry")

// circleSegments is the vertex count used when approximating circles.
const circleSegments = 64

const earthRadiusM = 6371008.8

// ToGeom converts a scenario geometry into a simplefeatures geometry.
// Circles become polygon approximations with circleSegments vertices.
func ToGeom(g core.Geometry) (geom.Geometry, error) {
	if err := g.Validate(); err != nil {
		return geom.Geometry{}, err
	}
	switch g.Type {
	case core.GeometryPoint:
		return pointFromCoord(g.Point).AsGeometry(), nil
	case core.GeometryLineString:
		return lineFromCoords(g.Line).AsGeometry(), nil
	case core.GeometryPolygon:
		rings := make([]geom.LineString, len(g.Rings))
		for i, ring := range g.Rings {
			rings[i] = lineFromCoords(ring)
		}
		return geom.NewPolygon(rings).AsGeometry(), nil
	case core.GeometryCircle:
		ring := CirclePoints(g.Center[0], g.Center[1], g.Radius, circleSegments)
		return geom.NewPolygon([]geom.LineString{lineFromCoords(ring)}).AsGeometry(), nil
	}
	return geom.Geometry{}, core.ErrInvalidGeometry
}

// Envelope returns the [minLon, minLat, maxLon, maxLat] bounds of a geometry.
func Envelope(g core.Geometry) ([4]float64, error) {
	sf, err := ToGeom(g)
	if err != nil {
		return [4]float64{}, err
	}
	lo, hi, ok := sf.Envelope().MinMaxXYs()
	if !ok {
		return [4]float64{}, ErrEmptyGeometry
	}
	return [4]float64{lo.X, lo.Y, hi.X, hi.Y}, nil
}

// CirclePoints approximates a geodesic circle around (lon, lat) with the
// given radius in meters as a closed ring of n+1 coordinate pairs.
func CirclePoints(lon, lat, radiusM float64, n int) [][]float64 {
	latRad := lat * math.Pi / 180
	dLat := radiusM / earthRadiusM * 180 / math.Pi
	dLon := dLat / math.Cos(latRad)

	ring := make([][]float64, 0, n+1)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, []float64{
			lon + dLon*math.Cos(angle),
			lat + dLat*math.Sin(angle),
		})
	}
	ring = append(ring, append([]float64(nil), ring[0]...))
	return ring
}

// To3857 projects a geographic coordinate to web-mercator meters, the
// projection rendering surfaces work in.
func To3857(lon, lat float64) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(lon, lat, 0)
	return x, y
}

// From3857 inverts To3857.
func From3857(x, y float64) (lon, lat float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ = f(x, y, 0)
	return lon, lat
}

func pointFromCoord(c []float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: c[0], Y: c[1]},
		Type: geom.DimXY,
	})
}

func lineFromCoords(coords [][]float64) geom.LineString {
	seq := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		seq = append(seq, c[0], c[1])
	}
	return geom.NewLineString(geom.NewSequence(seq, geom.DimXY))
}
