// internal/scenario/orbat.go
//
// Intent operations on the order of battle: sides, side groups and units.
// Each exported method is exactly one labeled transaction.
package scenario

import (
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/history"
	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/temporal"
)

// AddSide appends a new side and returns its id.
func (s *Scenario) AddSide(name, standardIdentity string) (string, error) {
	side := &core.Side{
		ID:               newID(),
		Name:             name,
		StandardIdentity: standardIdentity,
	}
	tx := s.hist.Begin(fmt.Sprintf("Add side %q", name))
	tx.Add(side)
	if err := s.commit(tx); err != nil {
		return "", err
	}
	return side.ID, nil
}

// RenameSide changes a side's display name.
func (s *Scenario) RenameSide(id, name string) error {
	side, err := s.Side(id)
	if err != nil {
		return err
	}
	side.Name = name
	tx := s.hist.Begin(fmt.Sprintf("Rename side to %q", name))
	tx.Update(side)
	return s.commit(tx)
}

// SetSideIdentity changes a side's standard identity code.
func (s *Scenario) SetSideIdentity(id, standardIdentity string) error {
	side, err := s.Side(id)
	if err != nil {
		return err
	}
	side.StandardIdentity = standardIdentity
	tx := s.hist.Begin("Change side identity")
	tx.Update(side)
	return s.commit(tx)
}

// DeleteSide removes a side and everything under it: its groups and their
// unit trees. The whole cascade is one undoable transaction.
func (s *Scenario) DeleteSide(id string) error {
	side, err := s.Side(id)
	if err != nil {
		return err
	}
	tx := s.hist.Begin(fmt.Sprintf("Delete side %q", side.Name))
	groups := side.Groups
	side.Groups = nil
	tx.Update(side)
	for _, gid := range groups {
		if err := s.deleteGroupOps(tx, gid); err != nil {
			return err
		}
	}
	tx.Delete(core.KindSide, id)
	return s.commit(tx)
}

// ReorderSides applies a new display order for the root side list. The order
// must be a permutation of the current ids.
func (s *Scenario) ReorderSides(order []string) error {
	tx := s.hist.Begin("Reorder sides")
	tx.Reorder(core.KindScenario, "", core.KindSide, order)
	return s.commit(tx)
}

// AddSideGroup appends a new group to a side and returns its id.
func (s *Scenario) AddSideGroup(sideID, name string) (string, error) {
	side, err := s.Side(sideID)
	if err != nil {
		return "", err
	}
	g := &core.SideGroup{
		ID:     newID(),
		SideID: sideID,
		Name:   name,
	}
	side.Groups = append(side.Groups, g.ID)
	tx := s.hist.Begin(fmt.Sprintf("Add group %q", name))
	tx.Add(g)
	tx.Update(side)
	if err := s.commit(tx); err != nil {
		return "", err
	}
	return g.ID, nil
}

// RenameSideGroup changes a group's display name.
func (s *Scenario) RenameSideGroup(id, name string) error {
	g, err := s.SideGroup(id)
	if err != nil {
		return err
	}
	g.Name = name
	tx := s.hist.Begin(fmt.Sprintf("Rename group to %q", name))
	tx.Update(g)
	return s.commit(tx)
}

// DeleteSideGroup removes a group and its unit trees in one transaction.
func (s *Scenario) DeleteSideGroup(id string) error {
	g, err := s.SideGroup(id)
	if err != nil {
		return err
	}
	side, err := s.Side(g.SideID)
	if err != nil {
		return err
	}
	side.Groups = removeFrom(side.Groups, id)
	tx := s.hist.Begin(fmt.Sprintf("Delete group %q", g.Name))
	tx.Update(side)
	if err := s.deleteGroupOps(tx, id); err != nil {
		return err
	}
	return s.commit(tx)
}

// ReorderSideGroups applies a new group order within a side.
func (s *Scenario) ReorderSideGroups(sideID string, order []string) error {
	tx := s.hist.Begin("Reorder groups")
	tx.Reorder(core.KindSide, sideID, core.KindSideGroup, order)
	return s.commit(tx)
}

// deleteGroupOps queues the ops that tear down one group: clear its unit
// list, delete every unit tree bottom-up, then delete the group itself.
// The caller has already detached the group from its side.
func (s *Scenario) deleteGroupOps(tx *history.Transaction, id string) error {
	g, err := s.SideGroup(id)
	if err != nil {
		return err
	}
	roots := g.Units
	g.Units = nil
	tx.Update(g)
	for _, uid := range roots {
		if err := s.deleteUnitTreeOps(tx, uid); err != nil {
			return err
		}
	}
	tx.Delete(core.KindSideGroup, id)
	return nil
}

// AddUnit creates a unit. When parentUnitID is empty the unit becomes a root
// of the group; otherwise it is appended to that parent's subordinates and
// inherits the parent's group.
func (s *Scenario) AddUnit(groupID, parentUnitID, name, sidc string) (string, error) {
	u := &core.Unit{
		ID:      newID(),
		GroupID: groupID,
		Name:    name,
		Sidc:    sidc,
	}
	tx := s.hist.Begin(fmt.Sprintf("Add unit %q", name))
	if parentUnitID == "" {
		g, err := s.SideGroup(groupID)
		if err != nil {
			return "", err
		}
		g.Units = append(g.Units, u.ID)
		tx.Add(u)
		tx.Update(g)
	} else {
		parent, err := s.Unit(parentUnitID)
		if err != nil {
			return "", err
		}
		u.GroupID = parent.GroupID
		u.ParentUnitID = parentUnitID
		parent.Subordinates = append(parent.Subordinates, u.ID)
		tx.Add(u)
		tx.Update(parent)
	}
	if err := s.commit(tx); err != nil {
		return "", err
	}
	return u.ID, nil
}

// RenameUnit changes a unit's names.
func (s *Scenario) RenameUnit(id, name, shortName string) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	u.Name = name
	u.ShortName = shortName
	tx := s.hist.Begin(fmt.Sprintf("Rename unit to %q", name))
	tx.Update(u)
	return s.commit(tx)
}

// SetUnitSidc changes a unit's base symbol code.
func (s *Scenario) SetUnitSidc(id, sidc string) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	u.Sidc = sidc
	tx := s.hist.Begin("Change unit symbol")
	tx.Update(u)
	return s.commit(tx)
}

// SetUnitLocation changes a unit's base location. A nil location clears it.
func (s *Scenario) SetUnitLocation(id string, loc *core.Position3D) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	u.Location = loc
	tx := s.hist.Begin("Move unit")
	tx.Update(u)
	return s.commit(tx)
}

// AddUnitState inserts a time-stamped state, keeping the list sorted. Equal
// timestamps are allowed; insertion is stable so the newest entry wins when
// the time cursor resolves onto that timestamp.
func (s *Scenario) AddUnitState(id string, state core.UnitState) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	u.States = temporal.Insert(u.States, state)
	tx := s.hist.Begin("Add unit state")
	tx.Update(u)
	return s.commit(tx)
}

// RemoveUnitState deletes the state entry at index.
func (s *Scenario) RemoveUnitState(id string, index int) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(u.States) {
		return fmt.Errorf("state index %d out of range for unit %q", index, id)
	}
	u.States = append(u.States[:index:index], u.States[index+1:]...)
	tx := s.hist.Begin("Remove unit state")
	tx.Update(u)
	return s.commit(tx)
}

// MoveUnit reparents a unit (and its whole subtree) under a new group or a
// new parent unit. With newParentID set the group is taken from that parent;
// otherwise the unit becomes a root of newGroupID. Reparenting onto the
// unit's own descendant is rejected.
func (s *Scenario) MoveUnit(id, newGroupID, newParentID string) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	// moving onto the container the unit is already in is a no-op
	if newParentID != "" {
		if u.ParentUnitID == newParentID {
			return nil
		}
	} else if u.ParentUnitID == "" && u.GroupID == newGroupID {
		return nil
	}
	tx := s.hist.Begin(fmt.Sprintf("Move unit %q", u.Name))

	// detach from the old container
	if u.ParentUnitID == "" {
		g, err := s.SideGroup(u.GroupID)
		if err != nil {
			return err
		}
		g.Units = removeFrom(g.Units, id)
		tx.Update(g)
	} else {
		p, err := s.Unit(u.ParentUnitID)
		if err != nil {
			return err
		}
		p.Subordinates = removeFrom(p.Subordinates, id)
		tx.Update(p)
	}

	oldGroup := u.GroupID
	if newParentID != "" {
		parent, err := s.Unit(newParentID)
		if err != nil {
			return err
		}
		newGroupID = parent.GroupID
	}
	u.GroupID = newGroupID
	u.ParentUnitID = newParentID
	tx.Update(u)

	// a cross-group move drags the subtree along
	if newGroupID != oldGroup {
		if err := s.regroupSubtreeOps(tx, u.Subordinates, newGroupID); err != nil {
			return err
		}
	}

	// attach to the new container
	if newParentID == "" {
		g, err := s.SideGroup(newGroupID)
		if err != nil {
			return err
		}
		g.Units = append(g.Units, id)
		tx.Update(g)
	} else {
		parent, err := s.Unit(newParentID)
		if err != nil {
			return err
		}
		parent.Subordinates = append(parent.Subordinates, id)
		tx.Update(parent)
	}
	return s.commit(tx)
}

// regroupSubtreeOps queues top-down group reassignments for a subtree, so
// each child is validated after its parent already carries the new group.
func (s *Scenario) regroupSubtreeOps(tx *history.Transaction, ids []string, groupID string) error {
	for _, cid := range ids {
		c, err := s.Unit(cid)
		if err != nil {
			return err
		}
		c.GroupID = groupID
		tx.Update(c)
		if err := s.regroupSubtreeOps(tx, c.Subordinates, groupID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUnit removes a unit and its subordinate tree in one transaction.
func (s *Scenario) DeleteUnit(id string) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	tx := s.hist.Begin(fmt.Sprintf("Delete unit %q", u.Name))
	if u.ParentUnitID == "" {
		g, err := s.SideGroup(u.GroupID)
		if err != nil {
			return err
		}
		g.Units = removeFrom(g.Units, id)
		tx.Update(g)
	} else {
		p, err := s.Unit(u.ParentUnitID)
		if err != nil {
			return err
		}
		p.Subordinates = removeFrom(p.Subordinates, id)
		tx.Update(p)
	}
	if err := s.deleteUnitTreeOps(tx, id); err != nil {
		return err
	}
	return s.commit(tx)
}

// deleteUnitTreeOps queues deletion of a unit subtree. Subordinate links are
// cleared first, then units are deleted leaves-first so no delete ever sees
// a live reference. The caller has already detached the root.
func (s *Scenario) deleteUnitTreeOps(tx *history.Transaction, id string) error {
	u, err := s.Unit(id)
	if err != nil {
		return err
	}
	if len(u.Subordinates) > 0 {
		children := u.Subordinates
		u.Subordinates = nil
		tx.Update(u)
		for _, cid := range children {
			if err := s.deleteUnitTreeOps(tx, cid); err != nil {
				return err
			}
		}
	}
	tx.Delete(core.KindUnit, id)
	return nil
}

// ReorderGroupUnits applies a new order for a group's root units.
func (s *Scenario) ReorderGroupUnits(groupID string, order []string) error {
	tx := s.hist.Begin("Reorder units")
	tx.Reorder(core.KindSideGroup, groupID, core.KindUnit, order)
	return s.commit(tx)
}

// ReorderSubordinates applies a new order for a unit's subordinates.
func (s *Scenario) ReorderSubordinates(unitID string, order []string) error {
	tx := s.hist.Begin("Reorder subordinates")
	tx.Reorder(core.KindUnit, unitID, core.KindUnit, order)
	return s.commit(tx)
}

func removeFrom(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
