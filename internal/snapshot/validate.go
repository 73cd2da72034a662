// internal/snapshot/validate.go
package snapshot

import (
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
)

// Validate checks a scenario document's structural integrity before it is
// accepted as entity store contents: every listed identifier resolves, no
// identifier appears under two parents, unit trees are acyclic, state lists
// are sorted ascending.
func Validate(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: empty document", ErrValidation)
	}
	owned := make(map[string]string) // child id -> owner description

	if err := checkIDList("sides", snap.Sides, len(snap.SideMap)); err != nil {
		return err
	}
	for _, sid := range snap.Sides {
		side, ok := snap.SideMap[sid]
		if !ok || side == nil {
			return fmt.Errorf("%w: side %q missing from sideMap", ErrValidation, sid)
		}
		if side.ID != sid {
			return fmt.Errorf("%w: side map key %q does not match id %q", ErrValidation, sid, side.ID)
		}
		for _, gid := range side.Groups {
			if err := claim(owned, gid, "side "+sid); err != nil {
				return err
			}
			group, ok := snap.SideGroupMap[gid]
			if !ok || group == nil {
				return fmt.Errorf("%w: group %q missing from sideGroupMap", ErrValidation, gid)
			}
			if group.SideID != sid {
				return fmt.Errorf("%w: group %q claims side %q but is listed under %q", ErrValidation, gid, group.SideID, sid)
			}
			if err := validateGroupUnits(snap, group, owned); err != nil {
				return err
			}
		}
	}
	// every mapped group/unit must be reachable from a side
	for gid := range snap.SideGroupMap {
		if _, ok := owned[gid]; !ok {
			return fmt.Errorf("%w: group %q is not listed by any side", ErrValidation, gid)
		}
	}
	for uid := range snap.UnitMap {
		if _, ok := owned[uid]; !ok {
			return fmt.Errorf("%w: unit %q is not listed by any parent", ErrValidation, uid)
		}
	}

	if err := checkIDList("layers", snap.Layers, len(snap.LayerMap)); err != nil {
		return err
	}
	for _, lid := range snap.Layers {
		layer, ok := snap.LayerMap[lid]
		if !ok || layer == nil {
			return fmt.Errorf("%w: layer %q missing from layerMap", ErrValidation, lid)
		}
		if layer.Opacity < 0 || layer.Opacity > 1 {
			return fmt.Errorf("%w: layer %q opacity outside [0,1]", ErrValidation, lid)
		}
		for _, fid := range layer.Features {
			if err := claim(owned, fid, "layer "+lid); err != nil {
				return err
			}
			feature, ok := snap.FeatureMap[fid]
			if !ok || feature == nil {
				return fmt.Errorf("%w: feature %q missing from featureMap", ErrValidation, fid)
			}
			if feature.LayerID != lid {
				return fmt.Errorf("%w: feature %q claims layer %q but is listed under %q", ErrValidation, fid, feature.LayerID, lid)
			}
			if err := feature.Geometry.Validate(); err != nil {
				return fmt.Errorf("%w: feature %q: %v", ErrValidation, fid, err)
			}
			if err := sortedStates(feature.States); err != nil {
				return fmt.Errorf("%w: feature %q: %v", ErrValidation, fid, err)
			}
		}
	}
	for fid := range snap.FeatureMap {
		if _, ok := owned[fid]; !ok {
			return fmt.Errorf("%w: feature %q is not listed by any layer", ErrValidation, fid)
		}
	}

	if err := checkIDList("mapLayers", snap.MapLayers, len(snap.MapLayerMap)); err != nil {
		return err
	}
	for _, mid := range snap.MapLayers {
		ml, ok := snap.MapLayerMap[mid]
		if !ok || ml == nil {
			return fmt.Errorf("%w: map layer %q missing from mapLayerMap", ErrValidation, mid)
		}
		switch ml.Type {
		case core.MapLayerTile, core.MapLayerImage, core.MapLayerRemote:
		default:
			return fmt.Errorf("%w: map layer %q has unknown type %q", ErrValidation, mid, ml.Type)
		}
		if ml.Opacity < 0 || ml.Opacity > 1 {
			return fmt.Errorf("%w: map layer %q opacity outside [0,1]", ErrValidation, mid)
		}
	}
	return nil
}

func validateGroupUnits(snap *Snapshot, group *core.SideGroup, owned map[string]string) error {
	var walk func(ids []string, parentUnit string, depth int) error
	walk = func(ids []string, parentUnit string, depth int) error {
		if depth > len(snap.UnitMap) {
			return fmt.Errorf("%w: cyclic unit tree under group %q", ErrValidation, group.ID)
		}
		for _, uid := range ids {
			if err := claim(owned, uid, "group "+group.ID); err != nil {
				return err
			}
			unit, ok := snap.UnitMap[uid]
			if !ok || unit == nil {
				return fmt.Errorf("%w: unit %q missing from unitMap", ErrValidation, uid)
			}
			if unit.GroupID != group.ID {
				return fmt.Errorf("%w: unit %q claims group %q but is listed under %q", ErrValidation, uid, unit.GroupID, group.ID)
			}
			if unit.ParentUnitID != parentUnit {
				return fmt.Errorf("%w: unit %q parent mismatch", ErrValidation, uid)
			}
			if err := sortedStates(unit.States); err != nil {
				return fmt.Errorf("%w: unit %q: %v", ErrValidation, uid, err)
			}
			if err := walk(unit.Subordinates, uid, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(group.Units, "", 1)
}

func claim(owned map[string]string, id, owner string) error {
	if id == "" {
		return fmt.Errorf("%w: empty child id under %s", ErrValidation, owner)
	}
	if prev, taken := owned[id]; taken {
		return fmt.Errorf("%w: id %q listed by both %s and %s", ErrValidation, id, prev, owner)
	}
	owned[id] = owner
	return nil
}

func checkIDList(field string, ids []string, mapped int) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q in %s", ErrValidation, id, field)
		}
		seen[id] = struct{}{}
	}
	if len(ids) != mapped {
		return fmt.Errorf("%w: %s lists %d ids but map holds %d entries", ErrValidation, field, len(ids), mapped)
	}
	return nil
}

func sortedStates[S core.Stamped](states []S) error {
	for i := 1; i < len(states); i++ {
		if states[i].When() < states[i-1].When() {
			return fmt.Errorf("state list not sorted at index %d", i)
		}
	}
	return nil
}
