// internal/model/core/types.go
package core

// Kind discriminates the closed set of entity variants in a scenario.
type Kind string

const (
	KindSide      Kind = "side"
	KindSideGroup Kind = "sideGroup"
	KindUnit      Kind = "unit"
	KindLayer     Kind = "layer"
	KindFeature   Kind = "feature"
	KindMapLayer  Kind = "mapLayer"

	// KindScenario addresses scenario-level state (root ordering, metadata,
	// the time cursor) in change events. There is no scenario entity record.
	KindScenario Kind = "scenario"
)

// Entity is implemented by every addressable scenario object.
type Entity interface {
	EntityID() string
	EntityKind() Kind
	// Clone returns a deep copy. Mutating the copy never affects the original.
	Clone() Entity
}

// ChangeType classifies what happened to an entity in a committed transaction.
type ChangeType string

const (
	ChangeCreated   ChangeType = "created"
	ChangeUpdated   ChangeType = "updated"
	ChangeDeleted   ChangeType = "deleted"
	ChangeReordered ChangeType = "reordered"
)

// Change is one entry of a change batch.
type Change struct {
	Kind   Kind       `json:"kind"`
	ID     string     `json:"id"`
	Change ChangeType `json:"changeType"`
}

// Stamped is the shared capability of time-varying state entries.
type Stamped interface {
	// When returns the entry timestamp in epoch milliseconds.
	When() int64
}

// Position3D represents a geographic coordinate without GIS dependencies.
type Position3D struct {
	X float64 `json:"x"` // longitude
	Y float64 `json:"y"` // latitude
	Z float64 `json:"z"` // elevation in meters
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
