// internal/model/core/side.go
package core

// Side is a top-level faction. It owns its groups.
type Side struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// StandardIdentity is the SIDC standard identity context applied to
	// units created under this side (e.g. "3" friend, "6" hostile).
	StandardIdentity string `json:"standardIdentity"`
	// Groups holds child group identifiers in display order.
	Groups []string `json:"groups"`
}

func (s *Side) EntityID() string { return s.ID }

func (*Side) EntityKind() Kind { return KindSide }

func (s *Side) Clone() Entity {
	c := *s
	c.Groups = cloneStrings(s.Groups)
	return &c
}

// SideGroup is a grouping of units within a side. Owned by exactly one Side.
type SideGroup struct {
	ID     string `json:"id"`
	SideID string `json:"sideId"`
	Name   string `json:"name"`
	// Units holds child unit identifiers in display order. Only units
	// directly subordinate to the group appear here; nested units hang off
	// their parent unit.
	Units []string `json:"units"`
}

func (g *SideGroup) EntityID() string { return g.ID }

func (*SideGroup) EntityKind() Kind { return KindSideGroup }

func (g *SideGroup) Clone() Entity {
	c := *g
	c.Units = cloneStrings(g.Units)
	return &c
}
