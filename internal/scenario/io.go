// internal/scenario/io.go
//
// Export, import and blob persistence. Export builds the stable scenario
// document from the live store; Import replaces the whole entity graph in a
// single validated transaction so a bad document never half-applies and a
// good one is one undo step. Load and Save go through the configured blob
// store and reset history, since they open a different scenario rather than
// edit the current one.
package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/history"
	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/snapshot"
)

// ErrNoPersistence is returned by Load and Save when no blob store was
// configured.
var ErrNoPersistence = errors.New("no persistence store configured")

// Export serializes the scenario into its document form. Transient map
// layers are left out.
func (s *Scenario) Export() *snapshot.Snapshot {
	return snapshot.Build(s.store, snapshot.Meta{
		Name:        s.name,
		Description: s.description,
		StartTime:   s.startTime,
		CurrentTime: s.currentTime,
	})
}

// ExportJSON serializes the scenario document as JSON.
func (s *Scenario) ExportJSON() ([]byte, error) {
	return snapshot.Marshal(s.Export())
}

// Import replaces the entire entity graph with the snapshot's contents as
// one transaction: existing entities are torn down and the document's graph
// is rebuilt, all atomically and undoable. Scenario metadata and the time
// cursors are taken from the document but, like SetCurrentTime, sit outside
// the undo history.
func (s *Scenario) Import(snap *snapshot.Snapshot) error {
	if err := snapshot.Validate(snap); err != nil {
		return err
	}
	tx := s.hist.Begin(fmt.Sprintf("Import scenario %q", snap.Name))
	if err := s.clearOps(tx); err != nil {
		return err
	}
	if err := buildOps(tx, snap); err != nil {
		return err
	}
	if err := s.commit(tx); err != nil {
		return err
	}
	s.name = snap.Name
	s.description = snap.Description
	s.startTime = snap.StartTime
	if snap.CurrentTime != s.currentTime {
		s.currentTime = snap.CurrentTime
		s.bus.EmitTimeChanged(s.currentTime)
	}
	return nil
}

// ImportJSON decodes and imports a scenario document.
func (s *Scenario) ImportJSON(data []byte) error {
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return err
	}
	return s.Import(snap)
}

// clearOps queues teardown of every current entity, locked layers included.
func (s *Scenario) clearOps(tx *history.Transaction) error {
	for _, id := range s.store.MapLayers() {
		tx.Delete(core.KindMapLayer, id)
	}
	for _, id := range s.store.Layers() {
		l, err := s.Layer(id)
		if err != nil {
			return err
		}
		features := l.Features
		l.Features = nil
		l.Locked = false
		tx.Update(l)
		for _, fid := range features {
			tx.Delete(core.KindFeature, fid)
		}
		tx.Delete(core.KindLayer, id)
	}
	for _, id := range s.store.Sides() {
		side, err := s.Side(id)
		if err != nil {
			return err
		}
		groups := side.Groups
		side.Groups = nil
		tx.Update(side)
		for _, gid := range groups {
			if err := s.deleteGroupOps(tx, gid); err != nil {
				return err
			}
		}
		tx.Delete(core.KindSide, id)
	}
	return nil
}

// buildOps queues insertion of a validated snapshot's graph, children-first,
// mirroring the snapshot restore order.
func buildOps(tx *history.Transaction, snap *snapshot.Snapshot) error {
	for _, sid := range snap.Sides {
		side := snap.SideMap[sid]
		bare := side.Clone().(*core.Side)
		bare.Groups = nil
		tx.Add(bare)
		for _, gid := range side.Groups {
			group := snap.SideGroupMap[gid]
			bareGroup := group.Clone().(*core.SideGroup)
			bareGroup.Units = nil
			tx.Add(bareGroup)
			buildUnitOps(tx, snap, group.Units)
			tx.Update(group)
		}
		tx.Update(side)
	}
	for _, lid := range snap.Layers {
		layer := snap.LayerMap[lid]
		bare := layer.Clone().(*core.ScenarioLayer)
		bare.Features = nil
		tx.Add(bare)
		for _, fid := range layer.Features {
			tx.Add(snap.FeatureMap[fid])
		}
		tx.Update(layer)
	}
	for _, mid := range snap.MapLayers {
		tx.Add(snap.MapLayerMap[mid])
	}
	return nil
}

func buildUnitOps(tx *history.Transaction, snap *snapshot.Snapshot, ids []string) {
	for _, uid := range ids {
		unit := snap.UnitMap[uid]
		bare := unit.Clone().(*core.Unit)
		bare.Subordinates = nil
		tx.Add(bare)
		buildUnitOps(tx, snap, unit.Subordinates)
		if len(unit.Subordinates) > 0 {
			tx.Update(unit)
		}
	}
}

// Save exports the scenario and writes it to the blob store under key.
func (s *Scenario) Save(ctx context.Context, key string) error {
	if s.blobs == nil {
		return ErrNoPersistence
	}
	data, err := s.ExportJSON()
	if err != nil {
		return err
	}
	if err := s.blobs.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save scenario %q: %w", key, err)
	}
	s.log.Info().Str("key", key).Int("bytes", len(data)).Msg("scenario saved")
	return nil
}

// Load replaces the scenario with the document stored under key. Unlike
// Import this opens a different scenario: history is cleared and a single
// whole-scenario change is emitted so subscribers rebuild from scratch.
func (s *Scenario) Load(ctx context.Context, key string) error {
	if s.closed {
		return ErrClosed
	}
	if s.blobs == nil {
		return ErrNoPersistence
	}
	data, err := s.blobs.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load scenario %q: %w", key, err)
	}
	snap, err := snapshot.Unmarshal(data)
	if err != nil {
		return err
	}
	st, err := snapshot.Restore(snap)
	if err != nil {
		return err
	}
	s.store.Replace(st)
	s.hist.Clear()
	s.name = snap.Name
	s.description = snap.Description
	s.startTime = snap.StartTime
	s.currentTime = snap.CurrentTime
	s.log.Info().Str("key", key).Int("entities", s.store.Len()).Msg("scenario loaded")
	s.bus.EmitBatch([]core.Change{{Kind: core.KindScenario, Change: core.ChangeUpdated}})
	s.bus.EmitTimeChanged(s.currentTime)
	return nil
}

// SavedKeys lists the scenario keys present in the blob store.
func (s *Scenario) SavedKeys(ctx context.Context) ([]string, error) {
	if s.blobs == nil {
		return nil, ErrNoPersistence
	}
	return s.blobs.Keys(ctx)
}
