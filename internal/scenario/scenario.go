// Package scenario is the public facade of the engine. It exposes
// intent-level operations over the entity store, owns the current/start time
// cursors, and enforces the policies that sit above raw storage: locked
// layers, cascade-on-delete, and the one-transaction-per-operation rule.
//
// Every mutating operation opens exactly one labeled transaction and commits
// it; callers get atomic, undoable compound operations and subscribers get
// exactly one ordered change batch per successful call.
package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sanderboers48/orbat-mapper/internal/events"
	"github.com/sanderboers48/orbat-mapper/internal/history"
	"github.com/sanderboers48/orbat-mapper/internal/model/core"
	"github.com/sanderboers48/orbat-mapper/internal/persist"
	"github.com/sanderboers48/orbat-mapper/internal/store"
	"github.com/sanderboers48/orbat-mapper/internal/telemetry"
)

var (
	// ErrLocked is returned when an operation targets a locked layer or a
	// feature inside one.
	ErrLocked = errors.New("layer is locked")
	// ErrClosed is returned for operations on a closed scenario.
	ErrClosed = errors.New("scenario is closed")
)

// Scenario combines the entity store, history manager and event bus behind
// intent-level operations. One instance owns one open scenario; there is no
// process-wide shared state, so independent scenarios can coexist.
type Scenario struct {
	log   zerolog.Logger
	store *store.Store
	hist  *history.Manager
	bus   *events.Bus
	tel   telemetry.Recorder
	blobs persist.Store

	name        string
	description string
	startTime   int64
	currentTime int64
	undoDepth   int
	closed      bool
}

// Option configures a new scenario.
type Option func(*Scenario)

// WithLogger sets the logger used by the scenario and its components.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scenario) { s.log = log }
}

// WithTelemetry sets the edit-telemetry recorder.
func WithTelemetry(rec telemetry.Recorder) Option {
	return func(s *Scenario) { s.tel = rec }
}

// WithPersistence sets the blob store used by Load and Save.
func WithPersistence(blobs persist.Store) Option {
	return func(s *Scenario) { s.blobs = blobs }
}

// WithStartTime sets both time cursors to t.
func WithStartTime(t int64) Option {
	return func(s *Scenario) {
		s.startTime = t
		s.currentTime = t
	}
}

// WithUndoDepth overrides the undo stack depth.
func WithUndoDepth(n int) Option {
	return func(s *Scenario) { s.undoDepth = n }
}

// New creates an empty open scenario.
func New(name string, opts ...Option) *Scenario {
	s := &Scenario{
		log:   zerolog.Nop(),
		store: store.New(),
		name:  name,
		tel:   telemetry.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("scenario", name).Logger()
	s.hist = history.NewManager(s.store, s.log)
	s.bus = events.NewBus(s.log)
	if s.undoDepth > 0 {
		s.hist.SetDepth(s.undoDepth)
	}
	return s
}

// Close releases the scenario. Further mutating calls fail with ErrClosed.
func (s *Scenario) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.hist.Clear()
	s.tel.Close()
	s.log.Debug().Msg("scenario closed")
}

// Name returns the scenario name.
func (s *Scenario) Name() string { return s.name }

// Description returns the scenario description.
func (s *Scenario) Description() string { return s.description }

// SetMeta updates the scenario name and description. Metadata lives outside
// the entity store and is not undoable.
func (s *Scenario) SetMeta(name, description string) {
	s.name = name
	s.description = description
}

// Subscribe registers a change subscriber.
func (s *Scenario) Subscribe(sub events.Subscriber) { s.bus.Subscribe(sub) }

// Unsubscribe removes a change subscriber.
func (s *Scenario) Unsubscribe(sub events.Subscriber) { s.bus.Unsubscribe(sub) }

// CurrentTime returns the scenario's current time cursor (epoch millis).
func (s *Scenario) CurrentTime() int64 { return s.currentTime }

// StartTime returns the scenario start time (epoch millis).
func (s *Scenario) StartTime() int64 { return s.startTime }

// SetCurrentTime moves the time cursor. It mutates no entity, produces no
// undo step, and notifies subscribers with a time-changed signal so they
// re-resolve temporal state.
func (s *Scenario) SetCurrentTime(t int64) {
	if s.closed || t == s.currentTime {
		return
	}
	s.currentTime = t
	s.bus.EmitTimeChanged(t)
}

// SetStartTime moves the scenario start cursor. Like SetCurrentTime this is
// cursor state, not entity data.
func (s *Scenario) SetStartTime(t int64) { s.startTime = t }

// Undo reverts the most recent transaction and reports its label. The second
// result is false when there was nothing to undo; that is a benign no-op.
func (s *Scenario) Undo() (string, bool) {
	if s.closed {
		return "", false
	}
	label, diff, err := s.hist.Undo()
	if errors.Is(err, history.ErrEmptyHistory) {
		return "", false
	}
	if err != nil {
		// inverses replay previously valid mutations; reaching this is a bug
		s.log.Error().Err(err).Msg("undo failed")
		return "", false
	}
	s.tel.RecordHistory("undo", label)
	s.bus.EmitBatch(diff)
	return label, true
}

// Redo re-applies the most recently undone transaction.
func (s *Scenario) Redo() (string, bool) {
	if s.closed {
		return "", false
	}
	label, diff, err := s.hist.Redo()
	if errors.Is(err, history.ErrEmptyHistory) {
		return "", false
	}
	if err != nil {
		s.log.Error().Err(err).Msg("redo failed")
		return "", false
	}
	s.tel.RecordHistory("redo", label)
	s.bus.EmitBatch(diff)
	return label, true
}

// CanUndo reports whether an undo step is available.
func (s *Scenario) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo reports whether a redo step is available.
func (s *Scenario) CanRedo() bool { return s.hist.CanRedo() }

// UndoLabel returns the label of the next undo step, or "".
func (s *Scenario) UndoLabel() string { return s.hist.UndoLabel() }

// RedoLabel returns the label of the next redo step, or "".
func (s *Scenario) RedoLabel() string { return s.hist.RedoLabel() }

// commit runs the shared commit path: history commit, telemetry, event batch.
func (s *Scenario) commit(tx *history.Transaction) error {
	if s.closed {
		return ErrClosed
	}
	start := time.Now()
	diff, err := s.hist.Commit(tx)
	if err != nil {
		return err
	}
	s.tel.RecordCommit(tx.Label(), len(diff), time.Since(start))
	s.bus.EmitBatch(diff)
	return nil
}

func newID() string {
	return uuid.NewString()
}

// typed getters; every read hands out a deep copy, keeping the store
// authoritative.

// Side returns a copy of a side.
func (s *Scenario) Side(id string) (*core.Side, error) {
	e, err := s.store.Get(core.KindSide, id)
	if err != nil {
		return nil, err
	}
	return e.(*core.Side), nil
}

// SideGroup returns a copy of a group.
func (s *Scenario) SideGroup(id string) (*core.SideGroup, error) {
	e, err := s.store.Get(core.KindSideGroup, id)
	if err != nil {
		return nil, err
	}
	return e.(*core.SideGroup), nil
}

// Unit returns a copy of a unit.
func (s *Scenario) Unit(id string) (*core.Unit, error) {
	e, err := s.store.Get(core.KindUnit, id)
	if err != nil {
		return nil, err
	}
	return e.(*core.Unit), nil
}

// Layer returns a copy of a layer.
func (s *Scenario) Layer(id string) (*core.ScenarioLayer, error) {
	e, err := s.store.Get(core.KindLayer, id)
	if err != nil {
		return nil, err
	}
	return e.(*core.ScenarioLayer), nil
}

// Feature returns a copy of a feature.
func (s *Scenario) Feature(id string) (*core.ScenarioFeature, error) {
	e, err := s.store.Get(core.KindFeature, id)
	if err != nil {
		return nil, err
	}
	return e.(*core.ScenarioFeature), nil
}

// MapLayer returns a copy of a map layer.
func (s *Scenario) MapLayer(id string) (*core.ScenarioMapLayer, error) {
	e, err := s.store.Get(core.KindMapLayer, id)
	if err != nil {
		return nil, err
	}
	return e.(*core.ScenarioMapLayer), nil
}

// Sides returns the ordered side identifiers.
func (s *Scenario) Sides() []string { return s.store.Sides() }

// Layers returns the ordered layer identifiers.
func (s *Scenario) Layers() []string { return s.store.Layers() }

// MapLayers returns the ordered map layer identifiers.
func (s *Scenario) MapLayers() []string { return s.store.MapLayers() }

// Children returns the ordered child ids of a parent entity.
func (s *Scenario) Children(kind core.Kind, id string) ([]string, error) {
	return s.store.Children(kind, id)
}

// guard returns an error when the layer (or the feature's layer) is locked.
func (s *Scenario) guardLayer(layerID string) error {
	l, err := s.Layer(layerID)
	if err != nil {
		return err
	}
	if l.Locked {
		return fmt.Errorf("%w: %q", ErrLocked, layerID)
	}
	return nil
}

func (s *Scenario) guardFeature(featureID string) (*core.ScenarioFeature, error) {
	f, err := s.Feature(featureID)
	if err != nil {
		return nil, err
	}
	if err := s.guardLayer(f.LayerID); err != nil {
		return nil, err
	}
	return f, nil
}
