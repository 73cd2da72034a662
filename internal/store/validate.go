// internal/store/validate.go
package store

import (
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
)

// validate checks a write against the current store contents. It never
// mutates; all errors carry ErrConsistency or ErrNotFound.
func (s *Store) validate(e core.Entity) error {
	switch v := e.(type) {
	case *core.Side:
		return s.validateSide(v)
	case *core.SideGroup:
		return s.validateGroup(v)
	case *core.Unit:
		return s.validateUnit(v)
	case *core.ScenarioLayer:
		return s.validateLayer(v)
	case *core.ScenarioFeature:
		return s.validateFeature(v)
	case *core.ScenarioMapLayer:
		return s.validateMapLayer(v)
	}
	return fmt.Errorf("%w: unknown entity type %T", ErrConsistency, e)
}

func (s *Store) validateSide(side *core.Side) error {
	if err := noDuplicates(side.Groups); err != nil {
		return err
	}
	for _, gid := range side.Groups {
		g, ok := s.groups[gid]
		if !ok {
			return fmt.Errorf("%w: side %q lists missing group %q", ErrConsistency, side.ID, gid)
		}
		if g.SideID != side.ID {
			return fmt.Errorf("%w: group %q belongs to side %q", ErrConsistency, gid, g.SideID)
		}
	}
	return nil
}

func (s *Store) validateGroup(g *core.SideGroup) error {
	if _, ok := s.sides[g.SideID]; !ok {
		return fmt.Errorf("%w: side %q for group %q", ErrNotFound, g.SideID, g.ID)
	}
	if err := noDuplicates(g.Units); err != nil {
		return err
	}
	for _, uid := range g.Units {
		u, ok := s.units[uid]
		if !ok {
			return fmt.Errorf("%w: group %q lists missing unit %q", ErrConsistency, g.ID, uid)
		}
		if u.GroupID != g.ID {
			return fmt.Errorf("%w: unit %q belongs to group %q", ErrConsistency, uid, u.GroupID)
		}
	}
	return nil
}

func (s *Store) validateUnit(u *core.Unit) error {
	if _, ok := s.groups[u.GroupID]; !ok {
		return fmt.Errorf("%w: group %q for unit %q", ErrNotFound, u.GroupID, u.ID)
	}
	if u.ParentUnitID != "" {
		parent, ok := s.units[u.ParentUnitID]
		if !ok {
			return fmt.Errorf("%w: parent unit %q for unit %q", ErrNotFound, u.ParentUnitID, u.ID)
		}
		if parent.GroupID != u.GroupID {
			return fmt.Errorf("%w: unit %q and parent %q are in different groups", ErrConsistency, u.ID, u.ParentUnitID)
		}
		// A unit may not become its own ancestor.
		for pid := u.ParentUnitID; pid != ""; {
			if pid == u.ID {
				return fmt.Errorf("%w: reparenting unit %q onto a descendant", ErrConsistency, u.ID)
			}
			p, ok := s.units[pid]
			if !ok {
				break
			}
			pid = p.ParentUnitID
		}
	}
	if err := noDuplicates(u.Subordinates); err != nil {
		return err
	}
	for _, cid := range u.Subordinates {
		if cid == u.ID {
			return fmt.Errorf("%w: unit %q lists itself as subordinate", ErrConsistency, u.ID)
		}
		c, ok := s.units[cid]
		if !ok {
			return fmt.Errorf("%w: unit %q lists missing subordinate %q", ErrConsistency, u.ID, cid)
		}
		if c.ParentUnitID != u.ID {
			return fmt.Errorf("%w: unit %q is subordinate to %q", ErrConsistency, cid, c.ParentUnitID)
		}
	}
	return stampsAscending(u.States)
}

func (s *Store) validateLayer(l *core.ScenarioLayer) error {
	if l.Opacity < 0 || l.Opacity > 1 {
		return fmt.Errorf("%w: layer %q opacity %v outside [0,1]", ErrConsistency, l.ID, l.Opacity)
	}
	if err := noDuplicates(l.Features); err != nil {
		return err
	}
	for _, fid := range l.Features {
		f, ok := s.features[fid]
		if !ok {
			return fmt.Errorf("%w: layer %q lists missing feature %q", ErrConsistency, l.ID, fid)
		}
		if f.LayerID != l.ID {
			return fmt.Errorf("%w: feature %q belongs to layer %q", ErrConsistency, fid, f.LayerID)
		}
	}
	return nil
}

func (s *Store) validateFeature(f *core.ScenarioFeature) error {
	if _, ok := s.layers[f.LayerID]; !ok {
		return fmt.Errorf("%w: layer %q for feature %q", ErrNotFound, f.LayerID, f.ID)
	}
	if err := f.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: feature %q: %v", ErrConsistency, f.ID, err)
	}
	for _, st := range f.States {
		if st.Geometry != nil {
			if err := st.Geometry.Validate(); err != nil {
				return fmt.Errorf("%w: feature %q state at %d: %v", ErrConsistency, f.ID, st.T, err)
			}
		}
	}
	return stampsAscending(f.States)
}

func (s *Store) validateMapLayer(m *core.ScenarioMapLayer) error {
	switch m.Type {
	case core.MapLayerTile, core.MapLayerImage, core.MapLayerRemote:
	default:
		return fmt.Errorf("%w: map layer %q has unknown type %q", ErrConsistency, m.ID, m.Type)
	}
	if m.Opacity < 0 || m.Opacity > 1 {
		return fmt.Errorf("%w: map layer %q opacity %v outside [0,1]", ErrConsistency, m.ID, m.Opacity)
	}
	return nil
}

// referencedBy returns a short description of the first live reference to the
// entity, or "" when nothing references it.
func (s *Store) referencedBy(kind core.Kind, id string) string {
	switch kind {
	case core.KindSide:
		for _, g := range s.groups {
			if g.SideID == id {
				return fmt.Sprintf("group %q", g.ID)
			}
		}
	case core.KindSideGroup:
		for _, u := range s.units {
			if u.GroupID == id {
				return fmt.Sprintf("unit %q", u.ID)
			}
		}
		for _, side := range s.sides {
			for _, gid := range side.Groups {
				if gid == id {
					return fmt.Sprintf("side %q", side.ID)
				}
			}
		}
	case core.KindUnit:
		for _, u := range s.units {
			if u.ParentUnitID == id {
				return fmt.Sprintf("unit %q", u.ID)
			}
		}
		for _, g := range s.groups {
			for _, uid := range g.Units {
				if uid == id {
					return fmt.Sprintf("group %q", g.ID)
				}
			}
		}
		for _, u := range s.units {
			for _, cid := range u.Subordinates {
				if cid == id {
					return fmt.Sprintf("unit %q", u.ID)
				}
			}
		}
	case core.KindLayer:
		for _, f := range s.features {
			if f.LayerID == id {
				return fmt.Sprintf("feature %q", f.ID)
			}
		}
	case core.KindFeature:
		for _, l := range s.layers {
			for _, fid := range l.Features {
				if fid == id {
					return fmt.Sprintf("layer %q", l.ID)
				}
			}
		}
	}
	return ""
}

func noDuplicates(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate child id %q", ErrConsistency, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func stampsAscending[S core.Stamped](states []S) error {
	for i := 1; i < len(states); i++ {
		if states[i].When() < states[i-1].When() {
			return fmt.Errorf("%w: state list not sorted at index %d", ErrConsistency, i)
		}
	}
	return nil
}
