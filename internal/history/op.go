// internal/history/op.go
package history

import (
	"fmt"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/store"
)

// Verb identifies a queued mutation.
type Verb string

const (
	VerbAdd     Verb = "add"
	VerbUpdate  Verb = "update"
	VerbDelete  Verb = "delete"
	VerbReorder Verb = "reorder"
)

// Op is one queued Entity Store mutation. The inverse of an op is computed at
// apply time from the store contents it is applied to.
type Op struct {
	Verb Verb
	Kind core.Kind
	ID   string

	// Entity is the value written by add/update ops.
	Entity core.Entity
	// Index restores root-order position when an add op re-creates a deleted
	// root entity. -1 appends.
	Index int

	// Reorder fields. ParentKind of core.KindScenario targets a root order.
	ParentKind core.Kind
	ParentID   string
	Order      []string
}

// apply executes the op against a store, returning the inverse op and the
// change entry it contributes to the commit diff.
func (op *Op) apply(s *store.Store) (Op, core.Change, error) {
	switch op.Verb {
	case VerbAdd:
		if s.Has(op.Kind, op.ID) {
			return Op{}, core.Change{}, fmt.Errorf("%w: %s %q already exists", store.ErrConsistency, op.Kind, op.ID)
		}
		if err := s.PutAt(op.Entity, op.Index); err != nil {
			return Op{}, core.Change{}, err
		}
		inv := Op{Verb: VerbDelete, Kind: op.Kind, ID: op.ID}
		return inv, core.Change{Kind: op.Kind, ID: op.ID, Change: core.ChangeCreated}, nil

	case VerbUpdate:
		prev, err := s.Get(op.Kind, op.ID)
		if err != nil {
			return Op{}, core.Change{}, err
		}
		if err := s.Put(op.Entity); err != nil {
			return Op{}, core.Change{}, err
		}
		inv := Op{Verb: VerbUpdate, Kind: op.Kind, ID: op.ID, Entity: prev}
		return inv, core.Change{Kind: op.Kind, ID: op.ID, Change: core.ChangeUpdated}, nil

	case VerbDelete:
		prev, err := s.Get(op.Kind, op.ID)
		if err != nil {
			return Op{}, core.Change{}, err
		}
		idx := s.RootIndex(op.Kind, op.ID)
		if err := s.Delete(op.Kind, op.ID); err != nil {
			return Op{}, core.Change{}, err
		}
		inv := Op{Verb: VerbAdd, Kind: op.Kind, ID: op.ID, Entity: prev, Index: idx}
		return inv, core.Change{Kind: op.Kind, ID: op.ID, Change: core.ChangeDeleted}, nil

	case VerbReorder:
		prev, err := currentOrder(s, op)
		if err != nil {
			return Op{}, core.Change{}, err
		}
		if err := s.Reorder(op.ParentKind, op.ParentID, op.Kind, op.Order); err != nil {
			return Op{}, core.Change{}, err
		}
		inv := Op{
			Verb:       VerbReorder,
			Kind:       op.Kind,
			ParentKind: op.ParentKind,
			ParentID:   op.ParentID,
			Order:      prev,
		}
		return inv, core.Change{Kind: op.ParentKind, ID: op.ParentID, Change: core.ChangeReordered}, nil
	}
	return Op{}, core.Change{}, fmt.Errorf("%w: unknown op verb %q", store.ErrConsistency, op.Verb)
}

func currentOrder(s *store.Store, op *Op) ([]string, error) {
	if op.ParentKind == core.KindScenario {
		switch op.Kind {
		case core.KindSide:
			return s.Sides(), nil
		case core.KindLayer:
			return s.Layers(), nil
		case core.KindMapLayer:
			return s.MapLayers(), nil
		}
		return nil, fmt.Errorf("%w: %s is not root-ordered", store.ErrConsistency, op.Kind)
	}
	return s.Children(op.ParentKind, op.ParentID)
}
