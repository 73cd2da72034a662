// Package history groups Entity Store mutations into atomic, labeled
// transactions and maintains the undo/redo stacks.
//
// A commit applies all queued mutations to a clone of the store and swaps the
// result in only when every mutation validated, so a failing transaction
// leaves the store exactly as it was before Begin. Undo and redo replay the
// recorded inverse/forward operations through the same path and produce
// ordinary change diffs, so subscribers cannot distinguish them from forward
// edits.
package history

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/store"
)

// ErrEmptyHistory signals undo/redo with nothing to do. Callers treat it as a
// benign no-op, not a failure.
var ErrEmptyHistory = errors.New("nothing to undo or redo")

// DefaultDepth is the number of transactions kept on the undo stack before
// the oldest are discarded.
const DefaultDepth = 200

// Transaction is an atomic, labeled group of mutations. Mutation calls queue
// operations; nothing touches the store until Commit.
type Transaction struct {
	label     string
	ops       []*Op
	committed bool

	// filled in by commit
	inverse []Op
	diff    []core.Change
}

// Label returns the transaction's user-facing label.
func (tx *Transaction) Label() string { return tx.label }

// Add queues creation of a new entity.
func (tx *Transaction) Add(e core.Entity) {
	tx.ops = append(tx.ops, &Op{Verb: VerbAdd, Kind: e.EntityKind(), ID: e.EntityID(), Entity: e, Index: -1})
}

// Update queues replacement of an existing entity.
func (tx *Transaction) Update(e core.Entity) {
	tx.ops = append(tx.ops, &Op{Verb: VerbUpdate, Kind: e.EntityKind(), ID: e.EntityID(), Entity: e})
}

// Delete queues removal of an entity.
func (tx *Transaction) Delete(kind core.Kind, id string) {
	tx.ops = append(tx.ops, &Op{Verb: VerbDelete, Kind: kind, ID: id})
}

// Reorder queues replacement of a parent's child-order list. Pass
// core.KindScenario as parentKind (with empty parentID) to reorder the root
// list of childKind.
func (tx *Transaction) Reorder(parentKind core.Kind, parentID string, childKind core.Kind, order []string) {
	tx.ops = append(tx.ops, &Op{
		Verb:       VerbReorder,
		Kind:       childKind,
		ParentKind: parentKind,
		ParentID:   parentID,
		Order:      append([]string(nil), order...),
	})
}

// Empty reports whether the transaction queued no mutations.
func (tx *Transaction) Empty() bool { return len(tx.ops) == 0 }

// Manager owns the undo/redo stacks for one store.
type Manager struct {
	store *store.Store
	log   zerolog.Logger
	depth int

	undo []*record
	redo []*record
}

type record struct {
	label   string
	forward []Op
	inverse []Op
}

// NewManager creates a history manager for the given store.
func NewManager(s *store.Store, log zerolog.Logger) *Manager {
	return &Manager{
		store: s,
		log:   log.With().Str("component", "history").Logger(),
		depth: DefaultDepth,
	}
}

// SetDepth overrides the undo stack depth. Values below 1 are ignored.
func (m *Manager) SetDepth(n int) {
	if n >= 1 {
		m.depth = n
	}
}

// Begin opens a new labeled transaction.
func (m *Manager) Begin(label string) *Transaction {
	return &Transaction{label: label}
}

// Commit applies all queued mutations in call order. On any validation
// failure the store is left untouched and the transaction is discarded. On
// success the transaction is pushed onto the undo stack, the redo stack is
// cleared, and the normalized change diff is returned.
func (m *Manager) Commit(tx *Transaction) ([]core.Change, error) {
	if tx.committed {
		return nil, fmt.Errorf("%w: transaction %q already committed", store.ErrConsistency, tx.label)
	}
	work := m.store.Clone()
	var (
		inverse []Op
		diff    []core.Change
	)
	for i, op := range tx.ops {
		inv, change, err := op.apply(work)
		if err != nil {
			m.log.Debug().Str("label", tx.label).Int("op", i).Err(err).Msg("transaction rejected")
			return nil, fmt.Errorf("transaction %q op %d: %w", tx.label, i, err)
		}
		inverse = append(inverse, inv)
		diff = append(diff, change)
	}
	m.store.Replace(work)
	tx.committed = true
	tx.inverse = inverse
	tx.diff = normalizeDiff(diff)

	forward := make([]Op, len(tx.ops))
	for i, op := range tx.ops {
		forward[i] = *op
	}
	m.undo = append(m.undo, &record{label: tx.label, forward: forward, inverse: inverse})
	if len(m.undo) > m.depth {
		m.undo = m.undo[1:]
	}
	m.redo = nil
	m.log.Debug().Str("label", tx.label).Int("ops", len(forward)).Msg("committed")
	return tx.diff, nil
}

// Undo reverts the most recent transaction by applying its inverse operations
// in reverse order. Returns the label and change diff, or ErrEmptyHistory.
func (m *Manager) Undo() (string, []core.Change, error) {
	if len(m.undo) == 0 {
		return "", nil, ErrEmptyHistory
	}
	rec := m.undo[len(m.undo)-1]
	diff, err := m.replay(reversed(rec.inverse))
	if err != nil {
		// Inverses replay previously valid mutations; failure here is a bug.
		return "", nil, fmt.Errorf("undo %q: %w", rec.label, err)
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, rec)
	m.log.Debug().Str("label", rec.label).Msg("undone")
	return rec.label, diff, nil
}

// Redo re-applies the most recently undone transaction's forward operations.
func (m *Manager) Redo() (string, []core.Change, error) {
	if len(m.redo) == 0 {
		return "", nil, ErrEmptyHistory
	}
	rec := m.redo[len(m.redo)-1]
	diff, err := m.replay(rec.forward)
	if err != nil {
		return "", nil, fmt.Errorf("redo %q: %w", rec.label, err)
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, rec)
	m.log.Debug().Str("label", rec.label).Msg("redone")
	return rec.label, diff, nil
}

// CanUndo reports whether the undo stack is non-empty.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether the redo stack is non-empty.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// UndoLabel returns the label of the transaction Undo would revert.
func (m *Manager) UndoLabel() string {
	if len(m.undo) == 0 {
		return ""
	}
	return m.undo[len(m.undo)-1].label
}

// RedoLabel returns the label of the transaction Redo would re-apply.
func (m *Manager) RedoLabel() string {
	if len(m.redo) == 0 {
		return ""
	}
	return m.redo[len(m.redo)-1].label
}

// Clear drops both stacks. Used when the whole scenario is replaced outside
// the transaction path (open/close), never for imports, which stay undoable.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func (m *Manager) replay(ops []Op) ([]core.Change, error) {
	work := m.store.Clone()
	var diff []core.Change
	for i := range ops {
		op := ops[i]
		_, change, err := op.apply(work)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		diff = append(diff, change)
	}
	m.store.Replace(work)
	return normalizeDiff(diff), nil
}

func reversed(ops []Op) []Op {
	out := make([]Op, len(ops))
	for i, op := range ops {
		out[len(ops)-1-i] = op
	}
	return out
}

// normalizeDiff collapses multiple entries for the same entity into one and
// moves deletions to the end of the batch, so a subscriber never observes a
// reference to an entity it has already been told is gone.
//
// Merge rules per (kind, id): created+updated stays created; updated+deleted
// becomes deleted; created+deleted cancels out (the entity was never visible
// outside the transaction).
func normalizeDiff(diff []core.Change) []core.Change {
	type slot struct {
		change  core.ChangeType
		created bool
		dropped bool
	}
	index := make(map[core.Change]int) // keyed by {kind,id} with Change zeroed
	var keys []core.Change
	slots := make([]*slot, 0, len(diff))

	for _, c := range diff {
		key := core.Change{Kind: c.Kind, ID: c.ID}
		i, ok := index[key]
		if !ok {
			index[key] = len(slots)
			keys = append(keys, key)
			slots = append(slots, &slot{change: c.Change, created: c.Change == core.ChangeCreated})
			continue
		}
		s := slots[i]
		switch c.Change {
		case core.ChangeDeleted:
			if s.created {
				s.dropped = true
			} else {
				s.change = core.ChangeDeleted
			}
		case core.ChangeCreated:
			// delete+recreate in one transaction reads as an update
			if s.change == core.ChangeDeleted {
				s.change = core.ChangeUpdated
			}
		case core.ChangeUpdated, core.ChangeReordered:
			// created swallows later updates; otherwise keep the stronger type
			if !s.created && s.change != core.ChangeDeleted {
				if s.change != core.ChangeReordered || c.Change == core.ChangeReordered {
					s.change = c.Change
				}
			}
		}
	}

	var out, deletes []core.Change
	for i, key := range keys {
		s := slots[i]
		if s.dropped {
			continue
		}
		c := core.Change{Kind: key.Kind, ID: key.ID, Change: s.change}
		if s.change == core.ChangeDeleted {
			deletes = append(deletes, c)
			continue
		}
		out = append(out, c)
	}
	return append(out, deletes...)
}
