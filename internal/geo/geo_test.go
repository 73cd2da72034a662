package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
)

func TestToGeomPoint(t *testing.T) {
	g, err := ToGeom(core.Geometry{Type: core.GeometryPoint, Point: []float64{14.5, 50.1}})
	require.NoError(t, err)
	assert.True(t, g.IsPoint())
}

func TestToGeomLineString(t *testing.T) {
	g, err := ToGeom(core.Geometry{
		Type: core.GeometryLineString,
		Line: [][]float64{{0, 0}, {1, 1}, {2, 0}},
	})
	require.NoError(t, err)
	assert.True(t, g.IsLineString())
}

func TestToGeomPolygon(t *testing.T) {
	g, err := ToGeom(core.Geometry{
		Type:  core.GeometryPolygon,
		Rings: [][][]float64{{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}},
	})
	require.NoError(t, err)
	assert.True(t, g.IsPolygon())
}

func TestToGeomCircle(t *testing.T) {
	g, err := ToGeom(core.Geometry{
		Type:   core.GeometryCircle,
		Center: []float64{14.5, 50.1},
		Radius: 1000,
	})
	require.NoError(t, err)
	assert.True(t, g.IsPolygon())
}

func TestToGeomRejectsInvalid(t *testing.T) {
	_, err := ToGeom(core.Geometry{Type: core.GeometryPoint})
	assert.ErrorIs(t, err, core.ErrInvalidGeometry)
}

func TestEnvelope(t *testing.T) {
	bounds, err := Envelope(core.Geometry{
		Type: core.GeometryLineString,
		Line: [][]float64{{1, 2}, {5, -3}, {4, 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, [4]float64{1, -3, 5, 7}, bounds)
}

func TestCirclePoints(t *testing.T) {
	ring := CirclePoints(14.5, 50.1, 1000, 32)
	require.Len(t, ring, 33)
	// ring is closed
	assert.Equal(t, ring[0], ring[len(ring)-1])
	// every vertex sits roughly one radius away from the center
	for _, c := range ring {
		dLat := (c[1] - 50.1) * math.Pi / 180 * earthRadiusM
		dLon := (c[0] - 14.5) * math.Pi / 180 * earthRadiusM * math.Cos(50.1*math.Pi/180)
		dist := math.Hypot(dLat, dLon)
		assert.InDelta(t, 1000, dist, 15)
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	x, y := To3857(14.5, 50.1)
	assert.NotZero(t, x)
	assert.NotZero(t, y)

	lon, lat := From3857(x, y)
	assert.InDelta(t, 14.5, lon, 1e-6)
	assert.InDelta(t, 50.1, lat, 1e-6)
}

func TestMercatorOrigin(t *testing.T) {
	x, y := To3857(0, 0)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}
