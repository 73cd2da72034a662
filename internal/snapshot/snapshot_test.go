package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/store"
)

func fixtureStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	require.NoError(t, s.Put(&core.Side{ID: "side-1", Name: "Blue", StandardIdentity: "friendly"}))
	require.NoError(t, s.Put(&core.Side{ID: "side-2", Name: "Red", StandardIdentity: "hostile"}))
	require.NoError(t, s.Put(&core.SideGroup{ID: "group-1", SideID: "side-1", Name: "1st Bn"}))
	require.NoError(t, s.Put(&core.Unit{ID: "unit-1", GroupID: "group-1", Name: "Alpha",
		States: []core.UnitState{{T: 0, Location: core.Position3D{X: 1, Y: 2}}, {T: 100}}}))
	require.NoError(t, s.Put(&core.Unit{ID: "unit-2", GroupID: "group-1", ParentUnitID: "unit-1", Name: "1st Plt"}))
	require.NoError(t, s.Put(&core.Unit{ID: "unit-1", GroupID: "group-1", Name: "Alpha",
		States:       []core.UnitState{{T: 0, Location: core.Position3D{X: 1, Y: 2}}, {T: 100}},
		Subordinates: []string{"unit-2"}}))
	require.NoError(t, s.Put(&core.SideGroup{ID: "group-1", SideID: "side-1", Name: "1st Bn", Units: []string{"unit-1"}}))
	require.NoError(t, s.Put(&core.Side{ID: "side-1", Name: "Blue", StandardIdentity: "friendly", Groups: []string{"group-1"}}))

	require.NoError(t, s.Put(&core.ScenarioLayer{ID: "layer-1", Name: "Ops", Visible: true, Opacity: 1}))
	require.NoError(t, s.Put(&core.ScenarioFeature{ID: "feat-1", LayerID: "layer-1",
		Geometry: core.Geometry{Type: core.GeometryPoint, Point: []float64{14.5, 50.1}}}))
	require.NoError(t, s.Put(&core.ScenarioLayer{ID: "layer-1", Name: "Ops", Visible: true, Opacity: 1, Features: []string{"feat-1"}}))

	require.NoError(t, s.Put(&core.ScenarioMapLayer{ID: "ml-1", Name: "OSM", Type: core.MapLayerTile, Opacity: 1}))
	require.NoError(t, s.Put(&core.ScenarioMapLayer{ID: "ml-2", Name: "Scratch", Type: core.MapLayerImage, Opacity: 1, Transient: true}))
	return s
}

func fixtureMeta() Meta {
	return Meta{Name: "Exercise", Description: "desc", StartTime: 1000, CurrentTime: 2000}
}

func TestBuildExcludesTransientMapLayers(t *testing.T) {
	snap := Build(fixtureStore(t), fixtureMeta())
	assert.Equal(t, []string{"ml-1"}, snap.MapLayers)
	assert.NotContains(t, snap.MapLayerMap, "ml-2")
}

func TestRoundTrip(t *testing.T) {
	s := fixtureStore(t)
	snap := Build(s, fixtureMeta())

	data, err := Marshal(snap)
	require.NoError(t, err)
	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	restored, err := Restore(decoded)
	require.NoError(t, err)

	assert.Equal(t, s.Sides(), restored.Sides())
	assert.Equal(t, s.Layers(), restored.Layers())

	u, err := restored.Get(core.KindUnit, "unit-1")
	require.NoError(t, err)
	unit := u.(*core.Unit)
	assert.Equal(t, []string{"unit-2"}, unit.Subordinates)
	require.Len(t, unit.States, 2)
	assert.Equal(t, core.Position3D{X: 1, Y: 2}, unit.States[0].Location)

	// array order survives the byte round-trip exactly
	again := Build(restored, fixtureMeta())
	data2, err := Marshal(again)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(data2))
}

func TestRoundTripPreservesChildOrder(t *testing.T) {
	s := store.New()
	require.NoError(t, s.Put(&core.Side{ID: "side-1"}))
	require.NoError(t, s.Put(&core.SideGroup{ID: "g1", SideID: "side-1"}))
	for _, id := range []string{"u3", "u1", "u2"} {
		require.NoError(t, s.Put(&core.Unit{ID: id, GroupID: "g1"}))
	}
	require.NoError(t, s.Put(&core.SideGroup{ID: "g1", SideID: "side-1", Units: []string{"u3", "u1", "u2"}}))
	require.NoError(t, s.Put(&core.Side{ID: "side-1", Groups: []string{"g1"}}))

	snap := Build(s, Meta{})
	restored, err := Restore(snap)
	require.NoError(t, err)
	children, err := restored.Children(core.KindSideGroup, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u1", "u2"}, children)
}

func TestValidateFailures(t *testing.T) {
	base := func() *Snapshot { return Build(fixtureStore(t), fixtureMeta()) }

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"side listed but unmapped", func(s *Snapshot) { delete(s.SideMap, "side-1") }},
		{"group unmapped", func(s *Snapshot) { delete(s.SideGroupMap, "group-1") }},
		{"unit unmapped", func(s *Snapshot) { delete(s.UnitMap, "unit-1") }},
		{"feature unmapped", func(s *Snapshot) { delete(s.FeatureMap, "feat-1") }},
		{"orphan unit in map", func(s *Snapshot) {
			s.UnitMap["ghost"] = &core.Unit{ID: "ghost", GroupID: "group-1"}
		}},
		{"unit parent mismatch", func(s *Snapshot) {
			s.UnitMap["unit-2"].ParentUnitID = "unit-2"
		}},
		{"unit claimed twice", func(s *Snapshot) {
			s.UnitMap["unit-1"].Subordinates = []string{"unit-2", "unit-2"}
		}},
		{"feature wrong owner", func(s *Snapshot) {
			s.FeatureMap["feat-1"].LayerID = "other"
		}},
		{"layer opacity out of range", func(s *Snapshot) {
			s.LayerMap["layer-1"].Opacity = 2
		}},
		{"unsorted unit states", func(s *Snapshot) {
			s.UnitMap["unit-1"].States = []core.UnitState{{T: 100}, {T: 0}}
		}},
		{"bad geometry", func(s *Snapshot) {
			s.FeatureMap["feat-1"].Geometry = core.Geometry{Type: core.GeometryPoint}
		}},
		{"bad map layer type", func(s *Snapshot) {
			s.MapLayerMap["ml-1"].Type = "bogus"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := base()
			tt.mutate(snap)
			err := Validate(snap)
			assert.ErrorIs(t, err, ErrValidation)
			_, err = Restore(snap)
			assert.Error(t, err)
		})
	}
}

func TestValidateDetectsUnitCycle(t *testing.T) {
	snap := Build(fixtureStore(t), fixtureMeta())
	// unit-2 claims unit-1 as its subordinate while also being its child
	snap.UnitMap["unit-2"].Subordinates = []string{"unit-1"}
	snap.UnitMap["unit-1"].ParentUnitID = "unit-2"
	assert.ErrorIs(t, Validate(snap), ErrValidation)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("{not json"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEmptySnapshotRoundTrips(t *testing.T) {
	snap := Build(store.New(), Meta{Name: "empty"})
	data, err := Marshal(snap)
	require.NoError(t, err)
	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	restored, err := Restore(decoded)
	require.NoError(t, err)
	assert.Zero(t, restored.Len())
}
