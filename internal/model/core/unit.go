// internal/model/core/unit.go
package core

// Unit is a military unit with a position and an optional subordination
// hierarchy. Units form a strict tree rooted at a SideGroup: either GroupID is
// set and ParentUnitID is empty (top of the tree), or ParentUnitID names
// another unit in the same group.
type Unit struct {
	ID           string `json:"id"`
	GroupID      string `json:"groupId"`
	ParentUnitID string `json:"parentUnitId,omitempty"`

	Sidc      string `json:"sidc"`
	Name      string `json:"name"`
	ShortName string `json:"shortName,omitempty"`

	// Location is the base position, used when no state resolves at the
	// scenario's current time.
	Location *Position3D `json:"location,omitempty"`

	// States is kept sorted ascending by timestamp with stable insertion.
	States []UnitState `json:"states"`

	// Subordinates holds child unit identifiers in display order.
	Subordinates []string `json:"subUnits,omitempty"`
}

func (u *Unit) EntityID() string { return u.ID }

func (*Unit) EntityKind() Kind { return KindUnit }

func (u *Unit) Clone() Entity {
	c := *u
	if u.Location != nil {
		loc := *u.Location
		c.Location = &loc
	}
	if u.States != nil {
		c.States = make([]UnitState, len(u.States))
		copy(c.States, u.States)
	}
	c.Subordinates = cloneStrings(u.Subordinates)
	return &c
}

// UnitState is a time-stamped snapshot of a unit's rendered attributes.
type UnitState struct {
	T        int64      `json:"t"`
	Location Position3D `json:"location"`
	Bearing  float64    `json:"bearing,omitempty"`
	// Sidc overrides the unit symbol when non-empty (e.g. reduced strength).
	Sidc  string `json:"sidc,omitempty"`
	Title string `json:"title,omitempty"`
}

func (s UnitState) When() int64 { return s.T }

// ResolvedUnit is the outcome of resolving a unit at a point in time.
// Callers needing the full entity re-query the scenario by ID.
type ResolvedUnit struct {
	ID       string
	Location Position3D
	Bearing  float64
	Sidc     string
	Title    string
	// HasLocation is false when neither a state nor a base location applied.
	HasLocation bool
	// FromState is false when no state applied and base values were used.
	FromState bool
}
