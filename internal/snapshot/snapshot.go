// Package snapshot converts between the normalized entity store and the
// persisted scenario document.
//
// The document layout is stable: ordered-list fields are JSON arrays whose
// order is semantically significant and round-trips exactly. Transient map
// layers are excluded on build.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/store"
)

// ErrValidation is returned for malformed scenario documents: missing
// required references, duplicate identifiers or cyclic unit trees.
var ErrValidation = errors.New("invalid scenario document")

// Snapshot is the full normalized serialization of a scenario.
type Snapshot struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartTime   int64  `json:"startTime"`
	CurrentTime int64  `json:"currentTime"`

	Sides   []string              `json:"sides"`
	SideMap map[string]*core.Side `json:"sideMap"`

	SideGroupMap map[string]*core.SideGroup `json:"sideGroupMap"`
	UnitMap      map[string]*core.Unit      `json:"unitMap"`

	Layers   []string                       `json:"layers"`
	LayerMap map[string]*core.ScenarioLayer `json:"layerMap"`

	FeatureMap map[string]*core.ScenarioFeature `json:"featureMap"`

	MapLayers   []string                          `json:"mapLayers"`
	MapLayerMap map[string]*core.ScenarioMapLayer `json:"mapLayerMap"`
}

// Meta carries the scenario-level fields that live outside the entity store.
type Meta struct {
	Name        string
	Description string
	StartTime   int64
	CurrentTime int64
}

// Build serializes a store into a snapshot. Transient map layers are left
// out.
func Build(s *store.Store, meta Meta) *Snapshot {
	snap := &Snapshot{
		Name:         meta.Name,
		Description:  meta.Description,
		StartTime:    meta.StartTime,
		CurrentTime:  meta.CurrentTime,
		Sides:        s.Sides(),
		SideMap:      make(map[string]*core.Side),
		SideGroupMap: make(map[string]*core.SideGroup),
		UnitMap:      make(map[string]*core.Unit),
		Layers:       s.Layers(),
		LayerMap:     make(map[string]*core.ScenarioLayer),
		FeatureMap:   make(map[string]*core.ScenarioFeature),
		MapLayerMap:  make(map[string]*core.ScenarioMapLayer),
	}
	for _, id := range snap.Sides {
		side, _ := s.Get(core.KindSide, id)
		sd := side.(*core.Side)
		snap.SideMap[id] = sd
		for _, gid := range sd.Groups {
			group, _ := s.Get(core.KindSideGroup, gid)
			g := group.(*core.SideGroup)
			snap.SideGroupMap[gid] = g
			collectUnits(s, g.Units, snap.UnitMap)
		}
	}
	for _, id := range snap.Layers {
		layer, _ := s.Get(core.KindLayer, id)
		l := layer.(*core.ScenarioLayer)
		snap.LayerMap[id] = l
		for _, fid := range l.Features {
			feature, _ := s.Get(core.KindFeature, fid)
			snap.FeatureMap[fid] = feature.(*core.ScenarioFeature)
		}
	}
	snap.MapLayers = make([]string, 0)
	for _, id := range s.MapLayers() {
		ml, _ := s.Get(core.KindMapLayer, id)
		m := ml.(*core.ScenarioMapLayer)
		if m.Transient {
			continue
		}
		snap.MapLayers = append(snap.MapLayers, id)
		snap.MapLayerMap[id] = m
	}
	return snap
}

func collectUnits(s *store.Store, ids []string, out map[string]*core.Unit) {
	for _, uid := range ids {
		unit, err := s.Get(core.KindUnit, uid)
		if err != nil {
			continue
		}
		u := unit.(*core.Unit)
		out[uid] = u
		collectUnits(s, u.Subordinates, out)
	}
}

// Restore builds a fresh store from a validated snapshot. Entities are
// inserted children-first so every write passes referential checks.
func Restore(snap *Snapshot) (*store.Store, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}
	s := store.New()
	for _, sid := range snap.Sides {
		side := snap.SideMap[sid]
		// insert stripped parent first, then children, then the full parent
		bare := side.Clone().(*core.Side)
		bare.Groups = nil
		if err := s.Put(bare); err != nil {
			return nil, restoreErr(err)
		}
		for _, gid := range side.Groups {
			group := snap.SideGroupMap[gid]
			bareGroup := group.Clone().(*core.SideGroup)
			bareGroup.Units = nil
			if err := s.Put(bareGroup); err != nil {
				return nil, restoreErr(err)
			}
			if err := restoreUnits(s, snap, group.Units); err != nil {
				return nil, err
			}
			if err := s.Put(group); err != nil {
				return nil, restoreErr(err)
			}
		}
		if err := s.Put(side); err != nil {
			return nil, restoreErr(err)
		}
	}
	for _, lid := range snap.Layers {
		layer := snap.LayerMap[lid]
		bare := layer.Clone().(*core.ScenarioLayer)
		bare.Features = nil
		if err := s.Put(bare); err != nil {
			return nil, restoreErr(err)
		}
		for _, fid := range layer.Features {
			if err := s.Put(snap.FeatureMap[fid]); err != nil {
				return nil, restoreErr(err)
			}
		}
		if err := s.Put(layer); err != nil {
			return nil, restoreErr(err)
		}
	}
	for _, mid := range snap.MapLayers {
		if err := s.Put(snap.MapLayerMap[mid]); err != nil {
			return nil, restoreErr(err)
		}
	}
	return s, nil
}

func restoreUnits(s *store.Store, snap *Snapshot, ids []string) error {
	for _, uid := range ids {
		unit := snap.UnitMap[uid]
		bare := unit.Clone().(*core.Unit)
		bare.Subordinates = nil
		if err := s.Put(bare); err != nil {
			return restoreErr(err)
		}
		if err := restoreUnits(s, snap, unit.Subordinates); err != nil {
			return err
		}
		if len(unit.Subordinates) > 0 {
			if err := s.Put(unit); err != nil {
				return restoreErr(err)
			}
		}
	}
	return nil
}

func restoreErr(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// Marshal encodes a snapshot as JSON.
func Marshal(snap *Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// Unmarshal decodes a snapshot document and validates its structure.
func Unmarshal(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := Validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
