// internal/store/store.go
package store

import (
	"errors"
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
)

var (
	// ErrNotFound is returned when a referenced identifier is absent.
	ErrNotFound = errors.New("entity not found")
	// ErrConsistency is returned when a write would violate referential
	// integrity, ordering invariants or unit-tree acyclicity. The store is
	// left unchanged.
	ErrConsistency = errors.New("consistency violation")
)

// Store is normalized keyed storage for every entity kind. It validates
// referential integrity before applying any write and preserves child-list
// ordering. It has no knowledge of transactions or time.
type Store struct {
	sides     map[string]*core.Side
	groups    map[string]*core.SideGroup
	units     map[string]*core.Unit
	layers    map[string]*core.ScenarioLayer
	features  map[string]*core.ScenarioFeature
	mapLayers map[string]*core.ScenarioMapLayer

	// Root-level ordering for kinds without a parent entity.
	sideOrder     []string
	layerOrder    []string
	mapLayerOrder []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sides:     make(map[string]*core.Side),
		groups:    make(map[string]*core.SideGroup),
		units:     make(map[string]*core.Unit),
		layers:    make(map[string]*core.ScenarioLayer),
		features:  make(map[string]*core.ScenarioFeature),
		mapLayers: make(map[string]*core.ScenarioMapLayer),
	}
}

// Get returns a deep copy of the entity, or ErrNotFound.
func (s *Store) Get(kind core.Kind, id string) (core.Entity, error) {
	e := s.lookup(kind, id)
	if e == nil {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	return e.Clone(), nil
}

// View runs fn against the live stored entity, or returns ErrNotFound. The
// entity must be treated as read-only and must not be retained past the call.
// It exists for hot read paths (temporal resolution on every timeline tick)
// where Get's deep copy of long state lists would dominate the lookup.
func (s *Store) View(kind core.Kind, id string, fn func(core.Entity)) error {
	e := s.lookup(kind, id)
	if e == nil {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	fn(e)
	return nil
}

// Has reports whether an entity exists.
func (s *Store) Has(kind core.Kind, id string) bool {
	return s.lookup(kind, id) != nil
}

func (s *Store) lookup(kind core.Kind, id string) core.Entity {
	switch kind {
	case core.KindSide:
		if e, ok := s.sides[id]; ok {
			return e
		}
	case core.KindSideGroup:
		if e, ok := s.groups[id]; ok {
			return e
		}
	case core.KindUnit:
		if e, ok := s.units[id]; ok {
			return e
		}
	case core.KindLayer:
		if e, ok := s.layers[id]; ok {
			return e
		}
	case core.KindFeature:
		if e, ok := s.features[id]; ok {
			return e
		}
	case core.KindMapLayer:
		if e, ok := s.mapLayers[id]; ok {
			return e
		}
	}
	return nil
}

// Put inserts or replaces an entity after validating referential integrity.
// Newly inserted root-level entities (sides, layers, map layers) are appended
// to their root order.
func (s *Store) Put(e core.Entity) error {
	return s.PutAt(e, -1)
}

// PutAt behaves like Put but inserts a new root-level entity at the given
// index of its root order. An index of -1 appends. The index is ignored when
// replacing an existing entity or for non-root kinds.
func (s *Store) PutAt(e core.Entity, index int) error {
	if e == nil || e.EntityID() == "" {
		return fmt.Errorf("%w: empty entity id", ErrConsistency)
	}
	if err := s.validate(e); err != nil {
		return err
	}
	id := e.EntityID()
	stored := e.Clone()
	switch v := stored.(type) {
	case *core.Side:
		if _, ok := s.sides[id]; !ok {
			s.sideOrder = insertAt(s.sideOrder, id, index)
		}
		s.sides[id] = v
	case *core.SideGroup:
		s.groups[id] = v
	case *core.Unit:
		s.units[id] = v
	case *core.ScenarioLayer:
		if _, ok := s.layers[id]; !ok {
			s.layerOrder = insertAt(s.layerOrder, id, index)
		}
		s.layers[id] = v
	case *core.ScenarioFeature:
		s.features[id] = v
	case *core.ScenarioMapLayer:
		if _, ok := s.mapLayers[id]; !ok {
			s.mapLayerOrder = insertAt(s.mapLayerOrder, id, index)
		}
		s.mapLayers[id] = v
	default:
		return fmt.Errorf("%w: unknown entity kind %T", ErrConsistency, e)
	}
	return nil
}

// Delete removes an entity. It fails with ErrConsistency while anything still
// references the id, so callers must strip back-references (and children)
// first.
func (s *Store) Delete(kind core.Kind, id string) error {
	if s.lookup(kind, id) == nil {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	if ref := s.referencedBy(kind, id); ref != "" {
		return fmt.Errorf("%w: %s %q still referenced by %s", ErrConsistency, kind, id, ref)
	}
	switch kind {
	case core.KindSide:
		delete(s.sides, id)
		s.sideOrder = removeID(s.sideOrder, id)
	case core.KindSideGroup:
		delete(s.groups, id)
	case core.KindUnit:
		delete(s.units, id)
	case core.KindLayer:
		delete(s.layers, id)
		s.layerOrder = removeID(s.layerOrder, id)
	case core.KindFeature:
		delete(s.features, id)
	case core.KindMapLayer:
		delete(s.mapLayers, id)
		s.mapLayerOrder = removeID(s.mapLayerOrder, id)
	}
	return nil
}

// Children returns the ordered child identifiers of a parent entity.
func (s *Store) Children(kind core.Kind, id string) ([]string, error) {
	e := s.lookup(kind, id)
	if e == nil {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	switch v := e.(type) {
	case *core.Side:
		return append([]string(nil), v.Groups...), nil
	case *core.SideGroup:
		return append([]string(nil), v.Units...), nil
	case *core.Unit:
		return append([]string(nil), v.Subordinates...), nil
	case *core.ScenarioLayer:
		return append([]string(nil), v.Features...), nil
	}
	return nil, fmt.Errorf("%w: %s has no child list", ErrConsistency, kind)
}

// Sides returns the ordered root side identifiers.
func (s *Store) Sides() []string { return append([]string(nil), s.sideOrder...) }

// Layers returns the ordered root layer identifiers.
func (s *Store) Layers() []string { return append([]string(nil), s.layerOrder...) }

// MapLayers returns the ordered map layer identifiers.
func (s *Store) MapLayers() []string { return append([]string(nil), s.mapLayerOrder...) }

// RootIndex returns the position of a root-level entity in its root order, or
// -1 for non-root kinds and unknown ids.
func (s *Store) RootIndex(kind core.Kind, id string) int {
	var order []string
	switch kind {
	case core.KindSide:
		order = s.sideOrder
	case core.KindLayer:
		order = s.layerOrder
	case core.KindMapLayer:
		order = s.mapLayerOrder
	default:
		return -1
	}
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

// Reorder replaces a child-order list with a permutation of itself.
// A parentID of RootParent targets the root order of childKind.
func (s *Store) Reorder(parentKind core.Kind, parentID string, childKind core.Kind, order []string) error {
	if parentKind == core.KindScenario {
		switch childKind {
		case core.KindSide:
			return s.reorderRoot(&s.sideOrder, order)
		case core.KindLayer:
			return s.reorderRoot(&s.layerOrder, order)
		case core.KindMapLayer:
			return s.reorderRoot(&s.mapLayerOrder, order)
		}
		return fmt.Errorf("%w: %s is not root-ordered", ErrConsistency, childKind)
	}
	e := s.lookup(parentKind, parentID)
	if e == nil {
		return fmt.Errorf("%w: %s %q", ErrNotFound, parentKind, parentID)
	}
	switch v := e.(type) {
	case *core.Side:
		return reorderList(&v.Groups, order)
	case *core.SideGroup:
		return reorderList(&v.Units, order)
	case *core.Unit:
		return reorderList(&v.Subordinates, order)
	case *core.ScenarioLayer:
		return reorderList(&v.Features, order)
	}
	return fmt.Errorf("%w: %s has no child list", ErrConsistency, parentKind)
}

func (s *Store) reorderRoot(list *[]string, order []string) error {
	return reorderList(list, order)
}

// Clone returns a deep copy of the whole store.
func (s *Store) Clone() *Store {
	c := New()
	for id, e := range s.sides {
		c.sides[id] = e.Clone().(*core.Side)
	}
	for id, e := range s.groups {
		c.groups[id] = e.Clone().(*core.SideGroup)
	}
	for id, e := range s.units {
		c.units[id] = e.Clone().(*core.Unit)
	}
	for id, e := range s.layers {
		c.layers[id] = e.Clone().(*core.ScenarioLayer)
	}
	for id, e := range s.features {
		c.features[id] = e.Clone().(*core.ScenarioFeature)
	}
	for id, e := range s.mapLayers {
		c.mapLayers[id] = e.Clone().(*core.ScenarioMapLayer)
	}
	c.sideOrder = append([]string(nil), s.sideOrder...)
	c.layerOrder = append([]string(nil), s.layerOrder...)
	c.mapLayerOrder = append([]string(nil), s.mapLayerOrder...)
	return c
}

// Replace adopts the contents of another store. The receiver keeps its
// identity so long-lived references to it stay valid.
func (s *Store) Replace(other *Store) {
	*s = *other
}

// Len returns the total number of stored entities.
func (s *Store) Len() int {
	return len(s.sides) + len(s.groups) + len(s.units) +
		len(s.layers) + len(s.features) + len(s.mapLayers)
}

func insertAt(list []string, id string, index int) []string {
	if index < 0 || index >= len(list) {
		return append(list, id)
	}
	list = append(list, "")
	copy(list[index+1:], list[index:])
	list[index] = id
	return list
}

func removeID(list []string, id string) []string {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// reorderList verifies order is a duplicate-free permutation of *list before
// replacing it.
func reorderList(list *[]string, order []string) error {
	if len(order) != len(*list) {
		return fmt.Errorf("%w: reorder length mismatch", ErrConsistency)
	}
	seen := make(map[string]struct{}, len(order))
	current := make(map[string]struct{}, len(*list))
	for _, id := range *list {
		current[id] = struct{}{}
	}
	for _, id := range order {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q in reorder", ErrConsistency, id)
		}
		seen[id] = struct{}{}
		if _, ok := current[id]; !ok {
			return fmt.Errorf("%w: id %q is not a child", ErrConsistency, id)
		}
	}
	*list = append([]string(nil), order...)
	return nil
}
