package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.Put(&core.Side{ID: "side-1", Name: "Blue"}))
	require.NoError(t, s.Put(&core.SideGroup{ID: "group-1", SideID: "side-1", Name: "1st Bn"}))
	require.NoError(t, s.Put(&core.Unit{ID: "unit-1", GroupID: "group-1", Name: "Alpha"}))
	side := &core.Side{ID: "side-1", Name: "Blue", Groups: []string{"group-1"}}
	require.NoError(t, s.Put(side))
	group := &core.SideGroup{ID: "group-1", SideID: "side-1", Name: "1st Bn", Units: []string{"unit-1"}}
	require.NoError(t, s.Put(group))
	return s
}

func TestGetReturnsCopies(t *testing.T) {
	s := testStore(t)

	e, err := s.Get(core.KindUnit, "unit-1")
	require.NoError(t, err)
	u := e.(*core.Unit)
	u.Name = "changed"

	e2, err := s.Get(core.KindUnit, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", e2.(*core.Unit).Name)
}

func TestGetUnknown(t *testing.T) {
	s := New()
	_, err := s.Get(core.KindSide, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutRejectsDanglingReference(t *testing.T) {
	s := New()
	err := s.Put(&core.SideGroup{ID: "g", SideID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Put(&core.Unit{ID: "u", GroupID: "nope"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutRejectsEmptyID(t *testing.T) {
	s := New()
	err := s.Put(&core.Side{})
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestPutRejectsUnsortedStates(t *testing.T) {
	s := testStore(t)
	err := s.Put(&core.Unit{
		ID:      "unit-2",
		GroupID: "group-1",
		States:  []core.UnitState{{T: 100}, {T: 50}},
	})
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestPutRejectsReparentOntoDescendant(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Put(&core.Unit{ID: "unit-2", GroupID: "group-1", ParentUnitID: "unit-1"}))
	require.NoError(t, s.Put(&core.Unit{
		ID: "unit-1", GroupID: "group-1", Name: "Alpha", Subordinates: []string{"unit-2"},
	}))

	err := s.Put(&core.Unit{
		ID: "unit-1", GroupID: "group-1", ParentUnitID: "unit-2", Subordinates: []string{"unit-2"},
	})
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestDeleteBlockedWhileReferenced(t *testing.T) {
	s := testStore(t)

	err := s.Delete(core.KindSideGroup, "group-1")
	require.ErrorIs(t, err, ErrConsistency)

	err = s.Delete(core.KindSide, "side-1")
	require.ErrorIs(t, err, ErrConsistency)

	// strip references bottom-up, then deletion works
	require.NoError(t, s.Put(&core.SideGroup{ID: "group-1", SideID: "side-1"}))
	require.NoError(t, s.Delete(core.KindUnit, "unit-1"))
	require.NoError(t, s.Put(&core.Side{ID: "side-1"}))
	require.NoError(t, s.Delete(core.KindSideGroup, "group-1"))
	require.NoError(t, s.Delete(core.KindSide, "side-1"))
	assert.Zero(t, s.Len())
}

func TestRootOrder(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(&core.Side{ID: id}))
	}
	assert.Equal(t, []string{"a", "b", "c"}, s.Sides())

	// replacing an existing entity keeps its position
	require.NoError(t, s.Put(&core.Side{ID: "b", Name: "renamed"}))
	assert.Equal(t, []string{"a", "b", "c"}, s.Sides())

	require.NoError(t, s.Delete(core.KindSide, "b"))
	assert.Equal(t, []string{"a", "c"}, s.Sides())

	// PutAt restores a deleted root at its old index
	require.NoError(t, s.PutAt(&core.Side{ID: "b"}, 1))
	assert.Equal(t, []string{"a", "b", "c"}, s.Sides())
	assert.Equal(t, 1, s.RootIndex(core.KindSide, "b"))
}

func TestReorderRoot(t *testing.T) {
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(&core.Side{ID: id}))
	}

	require.NoError(t, s.Reorder(core.KindScenario, "", core.KindSide, []string{"c", "a", "b"}))
	assert.Equal(t, []string{"c", "a", "b"}, s.Sides())

	tests := []struct {
		name  string
		order []string
	}{
		{"missing id", []string{"c", "a"}},
		{"unknown id", []string{"c", "a", "x"}},
		{"duplicate id", []string{"c", "a", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Reorder(core.KindScenario, "", core.KindSide, tt.order)
			assert.ErrorIs(t, err, ErrConsistency)
			assert.Equal(t, []string{"c", "a", "b"}, s.Sides())
		})
	}
}

func TestReorderChildren(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Put(&core.Unit{ID: "unit-2", GroupID: "group-1"}))
	require.NoError(t, s.Put(&core.SideGroup{
		ID: "group-1", SideID: "side-1", Units: []string{"unit-1", "unit-2"},
	}))

	require.NoError(t, s.Reorder(core.KindSideGroup, "group-1", core.KindUnit, []string{"unit-2", "unit-1"}))
	children, err := s.Children(core.KindSideGroup, "group-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"unit-2", "unit-1"}, children)
}

func TestView(t *testing.T) {
	s := testStore(t)

	var seen string
	require.NoError(t, s.View(core.KindUnit, "unit-1", func(e core.Entity) {
		seen = e.EntityID()
	}))
	assert.Equal(t, "unit-1", seen)

	err := s.View(core.KindUnit, "ghost", func(core.Entity) {
		t.Fatal("callback ran for a missing id")
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloneIsolation(t *testing.T) {
	s := testStore(t)
	clone := s.Clone()

	require.NoError(t, clone.Put(&core.Unit{ID: "unit-1", GroupID: "group-1", Name: "Renamed"}))
	require.NoError(t, clone.Put(&core.Side{ID: "side-x"}))

	e, err := s.Get(core.KindUnit, "unit-1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", e.(*core.Unit).Name)
	assert.False(t, s.Has(core.KindSide, "side-x"))
}

func TestReplaceKeepsIdentity(t *testing.T) {
	s := testStore(t)
	work := s.Clone()
	require.NoError(t, work.Put(&core.Side{ID: "side-2"}))

	ptr := s
	s.Replace(work)
	assert.True(t, ptr.Has(core.KindSide, "side-2"))
}

func TestLayerFeatureOwnership(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(&core.ScenarioLayer{ID: "layer-1", Opacity: 1}))
	require.NoError(t, s.Put(&core.ScenarioFeature{
		ID: "feat-1", LayerID: "layer-1",
		Geometry: core.Geometry{Type: core.GeometryPoint, Point: []float64{1, 2}},
	}))
	require.NoError(t, s.Put(&core.ScenarioLayer{
		ID: "layer-1", Opacity: 1, Features: []string{"feat-1"},
	}))

	// a layer claiming a feature of another layer is inconsistent
	require.NoError(t, s.Put(&core.ScenarioLayer{ID: "layer-2", Opacity: 1}))
	err := s.Put(&core.ScenarioLayer{ID: "layer-2", Opacity: 1, Features: []string{"feat-1"}})
	assert.ErrorIs(t, err, ErrConsistency)

	err = s.Put(&core.ScenarioLayer{ID: "layer-1", Opacity: 1.5})
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestMapLayerValidation(t *testing.T) {
	s := New()
	err := s.Put(&core.ScenarioMapLayer{ID: "ml", Type: "bogus"})
	assert.ErrorIs(t, err, ErrConsistency)

	require.NoError(t, s.Put(&core.ScenarioMapLayer{ID: "ml", Type: core.MapLayerTile, Opacity: 1}))
	assert.Equal(t, []string{"ml"}, s.MapLayers())
}
