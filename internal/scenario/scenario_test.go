package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/persist"
)

type captures struct {
	batches [][]core.Change
	times   []int64
}

func (c *captures) OnChangeBatch(batch []core.Change) { c.batches = append(c.batches, batch) }
func (c *captures) OnTimeChanged(t int64)             { c.times = append(c.times, t) }

func (c *captures) last(t *testing.T) []core.Change {
	t.Helper()
	require.NotEmpty(t, c.batches)
	return c.batches[len(c.batches)-1]
}

// buildFixture creates a side with one group and a unit carrying two states.
func buildFixture(t *testing.T, s *Scenario) (sideID, groupID, unitID string) {
	t.Helper()
	var err error
	sideID, err = s.AddSide("Blue", "friendly")
	require.NoError(t, err)
	groupID, err = s.AddSideGroup(sideID, "1st Battalion")
	require.NoError(t, err)
	unitID, err = s.AddUnit(groupID, "", "Alpha Company", "SFGPUCI----D")
	require.NoError(t, err)
	require.NoError(t, s.AddUnitState(unitID, core.UnitState{T: 0, Location: core.Position3D{X: 10, Y: 50}}))
	require.NoError(t, s.AddUnitState(unitID, core.UnitState{T: 100, Location: core.Position3D{X: 11, Y: 51}}))
	return sideID, groupID, unitID
}

func TestEditResolveUndoFlow(t *testing.T) {
	s := New("test")
	defer s.Close()
	sub := &captures{}
	s.Subscribe(sub)

	sideID, groupID, unitID := buildFixture(t, s)

	side, err := s.Side(sideID)
	require.NoError(t, err)
	assert.Equal(t, []string{groupID}, side.Groups)
	g, err := s.SideGroup(groupID)
	require.NoError(t, err)
	assert.Equal(t, []string{unitID}, g.Units)

	// between the two states the earlier one governs
	s.SetCurrentTime(50)
	res, err := s.ResolveUnit(unitID)
	require.NoError(t, err)
	assert.True(t, res.FromState)
	assert.Equal(t, core.Position3D{X: 10, Y: 50}, res.Location)

	// past the last state it stays in force
	s.SetCurrentTime(150)
	res, err = s.ResolveUnit(unitID)
	require.NoError(t, err)
	assert.Equal(t, core.Position3D{X: 11, Y: 51}, res.Location)
	assert.Equal(t, []int64{50, 150}, sub.times)

	// undo peels edits off in reverse order
	label, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "Add unit state", label)
	u, err := s.Unit(unitID)
	require.NoError(t, err)
	assert.Len(t, u.States, 1)

	_, ok = s.Undo()
	require.True(t, ok)
	u, err = s.Unit(unitID)
	require.NoError(t, err)
	assert.Empty(t, u.States)

	_, ok = s.Undo()
	require.True(t, ok)
	_, err = s.Unit(unitID)
	assert.Error(t, err)
	assert.Equal(t, last(sub.last(t)), core.Change{Kind: core.KindUnit, ID: unitID, Change: core.ChangeDeleted})

	// redo brings the unit back
	label, ok = s.Redo()
	require.True(t, ok)
	assert.Contains(t, label, "Add unit")
	_, err = s.Unit(unitID)
	assert.NoError(t, err)
}

func last(batch []core.Change) core.Change {
	return batch[len(batch)-1]
}

func TestUndoOnEmptyHistoryIsBenign(t *testing.T) {
	s := New("test")
	defer s.Close()
	label, ok := s.Undo()
	assert.False(t, ok)
	assert.Empty(t, label)
	_, ok = s.Redo()
	assert.False(t, ok)
}

func TestSetCurrentTimeEmitsNoHistory(t *testing.T) {
	s := New("test")
	defer s.Close()
	sub := &captures{}
	s.Subscribe(sub)

	s.SetCurrentTime(500)
	assert.Equal(t, []int64{500}, sub.times)
	assert.Empty(t, sub.batches)
	assert.False(t, s.CanUndo())

	// no event when nothing moved
	s.SetCurrentTime(500)
	assert.Len(t, sub.times, 1)
}

func TestResolveFallsBackToBase(t *testing.T) {
	s := New("test")
	defer s.Close()
	_, groupID, _ := buildFixture(t, s)

	bare, err := s.AddUnit(groupID, "", "Bravo Company", "SFGPUCI----D")
	require.NoError(t, err)
	require.NoError(t, s.SetUnitLocation(bare, &core.Position3D{X: 7, Y: 42}))

	s.SetCurrentTime(-10)
	res, err := s.ResolveUnit(bare)
	require.NoError(t, err)
	assert.False(t, res.FromState)
	assert.True(t, res.HasLocation)
	assert.Equal(t, core.Position3D{X: 7, Y: 42}, res.Location)

	require.NoError(t, s.SetUnitLocation(bare, nil))
	res, err = s.ResolveUnit(bare)
	require.NoError(t, err)
	assert.False(t, res.HasLocation)
}

func TestUnitStateSidcOverride(t *testing.T) {
	s := New("test")
	defer s.Close()
	_, _, unitID := buildFixture(t, s)
	require.NoError(t, s.AddUnitState(unitID, core.UnitState{T: 200, Sidc: "SFGPUCID---D"}))

	res, err := s.ResolveUnitAt(unitID, 150)
	require.NoError(t, err)
	assert.Equal(t, "SFGPUCI----D", res.Sidc)

	res, err = s.ResolveUnitAt(unitID, 200)
	require.NoError(t, err)
	assert.Equal(t, "SFGPUCID---D", res.Sidc)
}

func TestCascadeDeleteSide(t *testing.T) {
	s := New("test")
	defer s.Close()
	sideID, groupID, unitID := buildFixture(t, s)
	child, err := s.AddUnit(groupID, unitID, "1st Platoon", "SFGPUCI----D")
	require.NoError(t, err)

	sub := &captures{}
	s.Subscribe(sub)
	require.NoError(t, s.DeleteSide(sideID))

	for _, id := range []string{unitID, child} {
		_, err := s.Unit(id)
		assert.Error(t, err)
	}
	_, err = s.SideGroup(groupID)
	assert.Error(t, err)
	assert.Empty(t, s.Sides())

	// one batch, deletions only, and it includes the whole subtree
	require.Len(t, sub.batches, 1)
	assert.Len(t, sub.batches[0], 4)
	for _, c := range sub.batches[0] {
		assert.Equal(t, core.ChangeDeleted, c.Change)
	}

	// a single undo resurrects everything
	_, ok := s.Undo()
	require.True(t, ok)
	u, err := s.Unit(child)
	require.NoError(t, err)
	assert.Equal(t, unitID, u.ParentUnitID)
	parent, err := s.Unit(unitID)
	require.NoError(t, err)
	assert.Equal(t, []string{child}, parent.Subordinates)
}

func TestMoveUnitAcrossGroups(t *testing.T) {
	s := New("test")
	defer s.Close()
	sideID, groupID, unitID := buildFixture(t, s)
	child, err := s.AddUnit(groupID, unitID, "1st Platoon", "SFGPUCI----D")
	require.NoError(t, err)
	otherGroup, err := s.AddSideGroup(sideID, "2nd Battalion")
	require.NoError(t, err)

	require.NoError(t, s.MoveUnit(unitID, otherGroup, ""))

	u, err := s.Unit(unitID)
	require.NoError(t, err)
	assert.Equal(t, otherGroup, u.GroupID)
	c, err := s.Unit(child)
	require.NoError(t, err)
	assert.Equal(t, otherGroup, c.GroupID)

	oldG, err := s.SideGroup(groupID)
	require.NoError(t, err)
	assert.Empty(t, oldG.Units)
	newG, err := s.SideGroup(otherGroup)
	require.NoError(t, err)
	assert.Equal(t, []string{unitID}, newG.Units)
}

func TestMoveUnitOntoCurrentContainerIsNoop(t *testing.T) {
	s := New("test")
	defer s.Close()
	_, groupID, unitID := buildFixture(t, s)
	child, err := s.AddUnit(groupID, unitID, "1st Platoon", "SFGPUCI----D")
	require.NoError(t, err)

	// dropping a unit back onto its own group or parent changes nothing
	require.NoError(t, s.MoveUnit(unitID, groupID, ""))
	require.NoError(t, s.MoveUnit(child, "", unitID))

	g, err := s.SideGroup(groupID)
	require.NoError(t, err)
	assert.Equal(t, []string{unitID}, g.Units)
	u, err := s.Unit(unitID)
	require.NoError(t, err)
	assert.Equal(t, []string{child}, u.Subordinates)

	// and leaves no undo step behind
	label, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, `Add unit "1st Platoon"`, label)
}

func TestMoveUnitOntoDescendantRejected(t *testing.T) {
	s := New("test")
	defer s.Close()
	_, _, unitID := buildFixture(t, s)
	child, err := s.AddUnit("", unitID, "1st Platoon", "SFGPUCI----D")
	require.NoError(t, err)

	err = s.MoveUnit(unitID, "", child)
	require.Error(t, err)

	// the rejected transaction left nothing half-applied
	u, err := s.Unit(unitID)
	require.NoError(t, err)
	assert.Equal(t, []string{child}, u.Subordinates)
	assert.Empty(t, u.ParentUnitID)
}

func TestLockedLayerRejectsEdits(t *testing.T) {
	s := New("test")
	defer s.Close()
	layerID, err := s.AddLayer("Operations")
	require.NoError(t, err)
	featID, err := s.AddFeature(layerID,
		core.Geometry{Type: core.GeometryPoint, Point: []float64{14.5, 50.1}},
		core.FeatureStyle{}, core.FeatureMeta{Name: "OBJ GOLD", Visible: true})
	require.NoError(t, err)

	require.NoError(t, s.SetLayerLocked(layerID, true))

	_, err = s.AddFeature(layerID, core.Geometry{Type: core.GeometryPoint, Point: []float64{1, 2}},
		core.FeatureStyle{}, core.FeatureMeta{})
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, s.UpdateFeatureGeometry(featID, core.Geometry{Type: core.GeometryPoint, Point: []float64{2, 3}}), ErrLocked)
	assert.ErrorIs(t, s.DeleteFeature(featID), ErrLocked)
	assert.ErrorIs(t, s.DeleteLayer(layerID), ErrLocked)
	assert.ErrorIs(t, s.RenameLayer(layerID, "x"), ErrLocked)

	// unlock is always possible, then edits resume
	require.NoError(t, s.SetLayerLocked(layerID, false))
	assert.NoError(t, s.DeleteFeature(featID))
}

func TestSetLayerOpacityClamps(t *testing.T) {
	s := New("test")
	defer s.Close()
	layerID, err := s.AddLayer("Operations")
	require.NoError(t, err)

	require.NoError(t, s.SetLayerOpacity(layerID, 1.7))
	l, err := s.Layer(layerID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, l.Opacity)

	require.NoError(t, s.SetLayerOpacity(layerID, -0.3))
	l, err = s.Layer(layerID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, l.Opacity)

	require.NoError(t, s.SetLayerOpacity(layerID, 0.5))
	l, err = s.Layer(layerID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, l.Opacity)
}

func TestFeatureTemporalResolution(t *testing.T) {
	s := New("test")
	defer s.Close()
	layerID, err := s.AddLayer("Operations")
	require.NoError(t, err)
	base := core.Geometry{Type: core.GeometryLineString, Line: [][]float64{{0, 0}, {1, 1}}}
	featID, err := s.AddFeature(layerID, base, core.FeatureStyle{Stroke: "blue"}, core.FeatureMeta{Name: "PL"})
	require.NoError(t, err)

	moved := core.Geometry{Type: core.GeometryLineString, Line: [][]float64{{0, 0}, {2, 2}}}
	require.NoError(t, s.AddFeatureState(featID, core.FeatureState{T: 100, Geometry: &moved}))
	require.NoError(t, s.AddFeatureState(featID, core.FeatureState{T: 200, Style: &core.FeatureStyle{Stroke: "red"}}))

	res, err := s.ResolveFeatureAt(featID, 50)
	require.NoError(t, err)
	assert.False(t, res.FromState)
	assert.Equal(t, base, res.Geometry)
	assert.Equal(t, "blue", res.Style.Stroke)

	res, err = s.ResolveFeatureAt(featID, 150)
	require.NoError(t, err)
	assert.True(t, res.FromState)
	assert.Equal(t, moved, res.Geometry)
	assert.Equal(t, "blue", res.Style.Stroke)

	// the style-only state keeps the geometry of the earlier state
	res, err = s.ResolveFeatureAt(featID, 250)
	require.NoError(t, err)
	assert.Equal(t, moved, res.Geometry)
	assert.Equal(t, "red", res.Style.Stroke)

	// the resolved geometry is a copy; scribbling on it must not reach the store
	res.Geometry.Line[0][0] = 99
	again, err := s.ResolveFeatureAt(featID, 250)
	require.NoError(t, err)
	assert.Equal(t, moved, again.Geometry)
}

func TestMoveFeature(t *testing.T) {
	s := New("test")
	defer s.Close()
	src, err := s.AddLayer("A")
	require.NoError(t, err)
	dst, err := s.AddLayer("B")
	require.NoError(t, err)
	featID, err := s.AddFeature(src, core.Geometry{Type: core.GeometryPoint, Point: []float64{1, 2}},
		core.FeatureStyle{}, core.FeatureMeta{})
	require.NoError(t, err)

	require.NoError(t, s.MoveFeature(featID, dst))
	f, err := s.Feature(featID)
	require.NoError(t, err)
	assert.Equal(t, dst, f.LayerID)
	a, _ := s.Layer(src)
	b, _ := s.Layer(dst)
	assert.Empty(t, a.Features)
	assert.Equal(t, []string{featID}, b.Features)

	// one undo step restores the previous home
	_, ok := s.Undo()
	require.True(t, ok)
	f, err = s.Feature(featID)
	require.NoError(t, err)
	assert.Equal(t, src, f.LayerID)
}

func TestReorderSides(t *testing.T) {
	s := New("test")
	defer s.Close()
	a, err := s.AddSide("A", "friendly")
	require.NoError(t, err)
	b, err := s.AddSide("B", "hostile")
	require.NoError(t, err)
	c, err := s.AddSide("C", "neutral")
	require.NoError(t, err)

	require.NoError(t, s.ReorderSides([]string{c, a, b}))
	assert.Equal(t, []string{c, a, b}, s.Sides())

	err = s.ReorderSides([]string{c, a})
	require.Error(t, err)
	assert.Equal(t, []string{c, a, b}, s.Sides())

	_, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, []string{a, b, c}, s.Sides())
}

func TestExportImportRoundTrip(t *testing.T) {
	s := New("Exercise Silver Bear")
	defer s.Close()
	buildFixture(t, s)
	layerID, err := s.AddLayer("Operations")
	require.NoError(t, err)
	_, err = s.AddFeature(layerID, core.Geometry{Type: core.GeometryPoint, Point: []float64{14.5, 50.1}},
		core.FeatureStyle{Stroke: "#123"}, core.FeatureMeta{Name: "OBJ", Visible: true})
	require.NoError(t, err)
	s.SetCurrentTime(75)

	data, err := s.ExportJSON()
	require.NoError(t, err)

	other := New("empty")
	defer other.Close()
	require.NoError(t, other.ImportJSON(data))

	assert.Equal(t, "Exercise Silver Bear", other.Name())
	assert.Equal(t, int64(75), other.CurrentTime())
	assert.Equal(t, s.Sides(), other.Sides())
	assert.Equal(t, s.Layers(), other.Layers())

	data2, err := other.ExportJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(data2))
}

func TestImportIsAtomicAndUndoable(t *testing.T) {
	s := New("test")
	defer s.Close()
	sideID, _, _ := buildFixture(t, s)

	// corrupt document: group map entry missing
	bad, err := s.ExportJSON()
	require.NoError(t, err)
	other := New("other")
	defer other.Close()
	require.NoError(t, other.ImportJSON(bad))

	snap := other.Export()
	snap.SideGroupMap = nil
	err = s.Import(snap)
	require.Error(t, err)
	// original content untouched
	_, err = s.Side(sideID)
	assert.NoError(t, err)

	// a good import replaces the graph and is one undo step
	fresh := New("fresh")
	defer fresh.Close()
	newSide, err := fresh.AddSide("Green", "neutral")
	require.NoError(t, err)
	require.NoError(t, s.Import(fresh.Export()))
	_, err = s.Side(sideID)
	assert.Error(t, err)
	_, err = s.Side(newSide)
	assert.NoError(t, err)

	_, ok := s.Undo()
	require.True(t, ok)
	_, err = s.Side(sideID)
	assert.NoError(t, err)
	_, err = s.Side(newSide)
	assert.Error(t, err)
}

func TestTransientMapLayerExcludedFromExport(t *testing.T) {
	s := New("test")
	defer s.Close()
	_, err := s.AddMapLayer(core.ScenarioMapLayer{
		Name: "OSM", Type: core.MapLayerTile, Opacity: 1,
	})
	require.NoError(t, err)
	transient, err := s.AddMapLayer(core.ScenarioMapLayer{
		Name: "Scratch", Type: core.MapLayerImage, Opacity: 1, Transient: true,
	})
	require.NoError(t, err)

	assert.Len(t, s.MapLayers(), 2)
	snap := s.Export()
	assert.Len(t, snap.MapLayers, 1)
	_, listed := snap.MapLayerMap[transient]
	assert.False(t, listed)
}

func TestSaveLoad(t *testing.T) {
	blobs := persist.NewMemory()
	s := New("Exercise", WithPersistence(blobs), WithStartTime(1000))
	defer s.Close()
	_, _, unitID := buildFixture(t, s)
	require.NoError(t, s.Save(context.Background(), "ex-1"))

	loaded := New("", WithPersistence(blobs))
	defer loaded.Close()
	sub := &captures{}
	loaded.Subscribe(sub)
	require.NoError(t, loaded.Load(context.Background(), "ex-1"))

	assert.Equal(t, "Exercise", loaded.Name())
	assert.Equal(t, int64(1000), loaded.StartTime())
	u, err := loaded.Unit(unitID)
	require.NoError(t, err)
	assert.Len(t, u.States, 2)

	// loading a different scenario resets history and signals a full reload
	assert.False(t, loaded.CanUndo())
	require.Len(t, sub.batches, 1)
	assert.Equal(t, core.KindScenario, sub.batches[0][0].Kind)
}

func TestLoadMissingKey(t *testing.T) {
	s := New("test", WithPersistence(persist.NewMemory()))
	defer s.Close()
	err := s.Load(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSaveWithoutPersistence(t *testing.T) {
	s := New("test")
	defer s.Close()
	assert.ErrorIs(t, s.Save(context.Background(), "k"), ErrNoPersistence)
	assert.ErrorIs(t, s.Load(context.Background(), "k"), ErrNoPersistence)
}

func TestClosedScenarioRejectsEdits(t *testing.T) {
	s := New("test")
	s.Close()
	_, err := s.AddSide("Blue", "friendly")
	assert.ErrorIs(t, err, ErrClosed)
	_, ok := s.Undo()
	assert.False(t, ok)
}
