// internal/scenario/layers.go
//
// Intent operations on drawing layers, features and map layers. Operations
// that would modify a locked layer (or a feature inside one) fail with
// ErrLocked before any transaction is opened; lock and unlock themselves are
// always allowed.
package scenario

import (
	"fmt"
	"math"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/temporal"
)

// AddLayer appends a new visible, unlocked layer and returns its id.
func (s *Scenario) AddLayer(name string) (string, error) {
	l := &core.ScenarioLayer{
		ID:      newID(),
		Name:    name,
		Visible: true,
		Opacity: 1,
	}
	tx := s.hist.Begin(fmt.Sprintf("Add layer %q", name))
	tx.Add(l)
	if err := s.commit(tx); err != nil {
		return "", err
	}
	return l.ID, nil
}

// RenameLayer changes a layer's display name.
func (s *Scenario) RenameLayer(id, name string) error {
	if err := s.guardLayer(id); err != nil {
		return err
	}
	l, _ := s.Layer(id)
	l.Name = name
	tx := s.hist.Begin(fmt.Sprintf("Rename layer to %q", name))
	tx.Update(l)
	return s.commit(tx)
}

// SetLayerVisibility toggles a layer's visibility. Visibility is display
// state like opacity, but it participates in history like any other edit.
func (s *Scenario) SetLayerVisibility(id string, visible bool) error {
	l, err := s.Layer(id)
	if err != nil {
		return err
	}
	l.Visible = visible
	label := "Hide layer"
	if visible {
		label = "Show layer"
	}
	tx := s.hist.Begin(label)
	tx.Update(l)
	return s.commit(tx)
}

// SetLayerOpacity sets a layer's opacity, clamped to [0,1].
func (s *Scenario) SetLayerOpacity(id string, opacity float64) error {
	l, err := s.Layer(id)
	if err != nil {
		return err
	}
	l.Opacity = math.Min(1, math.Max(0, opacity))
	tx := s.hist.Begin("Change layer opacity")
	tx.Update(l)
	return s.commit(tx)
}

// SetLayerLocked locks or unlocks a layer. A locked layer rejects every
// content edit until unlocked.
func (s *Scenario) SetLayerLocked(id string, locked bool) error {
	l, err := s.Layer(id)
	if err != nil {
		return err
	}
	if l.Locked == locked {
		return nil
	}
	l.Locked = locked
	label := "Unlock layer"
	if locked {
		label = "Lock layer"
	}
	tx := s.hist.Begin(label)
	tx.Update(l)
	return s.commit(tx)
}

// DeleteLayer removes a layer and its features in one transaction. Locked
// layers must be unlocked first.
func (s *Scenario) DeleteLayer(id string) error {
	if err := s.guardLayer(id); err != nil {
		return err
	}
	l, _ := s.Layer(id)
	tx := s.hist.Begin(fmt.Sprintf("Delete layer %q", l.Name))
	features := l.Features
	l.Features = nil
	tx.Update(l)
	for _, fid := range features {
		tx.Delete(core.KindFeature, fid)
	}
	tx.Delete(core.KindLayer, id)
	return s.commit(tx)
}

// ReorderLayers applies a new display order for the root layer list.
func (s *Scenario) ReorderLayers(order []string) error {
	tx := s.hist.Begin("Reorder layers")
	tx.Reorder(core.KindScenario, "", core.KindLayer, order)
	return s.commit(tx)
}

// AddFeature draws a new feature on a layer and returns its id.
func (s *Scenario) AddFeature(layerID string, geometry core.Geometry, style core.FeatureStyle, meta core.FeatureMeta) (string, error) {
	if err := s.guardLayer(layerID); err != nil {
		return "", err
	}
	l, _ := s.Layer(layerID)
	f := &core.ScenarioFeature{
		ID:       newID(),
		LayerID:  layerID,
		Geometry: geometry,
		Style:    style,
		Meta:     meta,
	}
	l.Features = append(l.Features, f.ID)
	tx := s.hist.Begin(fmt.Sprintf("Add feature %q", meta.Name))
	tx.Add(f)
	tx.Update(l)
	if err := s.commit(tx); err != nil {
		return "", err
	}
	return f.ID, nil
}

// UpdateFeatureGeometry replaces a feature's base geometry.
func (s *Scenario) UpdateFeatureGeometry(id string, geometry core.Geometry) error {
	f, err := s.guardFeature(id)
	if err != nil {
		return err
	}
	f.Geometry = geometry
	tx := s.hist.Begin("Edit feature geometry")
	tx.Update(f)
	return s.commit(tx)
}

// UpdateFeatureStyle replaces a feature's base style.
func (s *Scenario) UpdateFeatureStyle(id string, style core.FeatureStyle) error {
	f, err := s.guardFeature(id)
	if err != nil {
		return err
	}
	f.Style = style
	tx := s.hist.Begin("Edit feature style")
	tx.Update(f)
	return s.commit(tx)
}

// UpdateFeatureMeta replaces a feature's metadata.
func (s *Scenario) UpdateFeatureMeta(id string, meta core.FeatureMeta) error {
	f, err := s.guardFeature(id)
	if err != nil {
		return err
	}
	f.Meta = meta
	tx := s.hist.Begin("Edit feature details")
	tx.Update(f)
	return s.commit(tx)
}

// AddFeatureState inserts a time-stamped override, keeping the list sorted.
func (s *Scenario) AddFeatureState(id string, state core.FeatureState) error {
	f, err := s.guardFeature(id)
	if err != nil {
		return err
	}
	f.States = temporal.Insert(f.States, state)
	tx := s.hist.Begin("Add feature state")
	tx.Update(f)
	return s.commit(tx)
}

// RemoveFeatureState deletes the override at index.
func (s *Scenario) RemoveFeatureState(id string, index int) error {
	f, err := s.guardFeature(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(f.States) {
		return fmt.Errorf("state index %d out of range for feature %q", index, id)
	}
	f.States = append(f.States[:index:index], f.States[index+1:]...)
	tx := s.hist.Begin("Remove feature state")
	tx.Update(f)
	return s.commit(tx)
}

// MoveFeature transfers a feature to another layer, appended at the end.
// Both the source and target layer must be unlocked.
func (s *Scenario) MoveFeature(id, targetLayerID string) error {
	f, err := s.guardFeature(id)
	if err != nil {
		return err
	}
	if f.LayerID == targetLayerID {
		return nil
	}
	if err := s.guardLayer(targetLayerID); err != nil {
		return err
	}
	src, _ := s.Layer(f.LayerID)
	dst, _ := s.Layer(targetLayerID)
	src.Features = removeFrom(src.Features, id)
	dst.Features = append(dst.Features, id)
	f.LayerID = targetLayerID

	tx := s.hist.Begin("Move feature")
	tx.Update(src)
	tx.Update(f)
	tx.Update(dst)
	return s.commit(tx)
}

// DeleteFeature removes a single feature.
func (s *Scenario) DeleteFeature(id string) error {
	f, err := s.guardFeature(id)
	if err != nil {
		return err
	}
	l, _ := s.Layer(f.LayerID)
	l.Features = removeFrom(l.Features, id)
	tx := s.hist.Begin(fmt.Sprintf("Delete feature %q", f.Meta.Name))
	tx.Update(l)
	tx.Delete(core.KindFeature, id)
	return s.commit(tx)
}

// ReorderLayerFeatures applies a new feature order within a layer.
func (s *Scenario) ReorderLayerFeatures(layerID string, order []string) error {
	if err := s.guardLayer(layerID); err != nil {
		return err
	}
	tx := s.hist.Begin("Reorder features")
	tx.Reorder(core.KindLayer, layerID, core.KindFeature, order)
	return s.commit(tx)
}

// AddMapLayer registers a new base-map layer and returns its id. Transient
// map layers behave like any other at runtime but are skipped on export.
func (s *Scenario) AddMapLayer(ml core.ScenarioMapLayer) (string, error) {
	ml.ID = newID()
	tx := s.hist.Begin(fmt.Sprintf("Add map layer %q", ml.Name))
	tx.Add(&ml)
	if err := s.commit(tx); err != nil {
		return "", err
	}
	return ml.ID, nil
}

// UpdateMapLayer replaces a map layer's attributes, keeping its identity.
func (s *Scenario) UpdateMapLayer(ml core.ScenarioMapLayer) error {
	if _, err := s.MapLayer(ml.ID); err != nil {
		return err
	}
	tx := s.hist.Begin("Edit map layer")
	tx.Update(&ml)
	return s.commit(tx)
}

// DeleteMapLayer removes a map layer.
func (s *Scenario) DeleteMapLayer(id string) error {
	ml, err := s.MapLayer(id)
	if err != nil {
		return err
	}
	tx := s.hist.Begin(fmt.Sprintf("Delete map layer %q", ml.Name))
	tx.Delete(core.KindMapLayer, id)
	return s.commit(tx)
}

// ReorderMapLayers applies a new display order for map layers.
func (s *Scenario) ReorderMapLayers(order []string) error {
	tx := s.hist.Begin("Reorder map layers")
	tx.Reorder(core.KindScenario, "", core.KindMapLayer, order)
	return s.commit(tx)
}
