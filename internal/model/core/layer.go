// internal/model/core/layer.go
package core

// ScenarioLayer is a container for features. Feature order is draw order.
type ScenarioLayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Features holds child feature identifiers in draw order.
	Features []string `json:"features"`
	Visible  bool     `json:"visible"`
	Opacity  float64  `json:"opacity"` // [0,1]
	// Locked blocks mutation of the layer and its features. Enforced by the
	// scenario facade, not the entity store.
	Locked bool `json:"locked"`
}

func (l *ScenarioLayer) EntityID() string { return l.ID }

func (*ScenarioLayer) EntityKind() Kind { return KindLayer }

func (l *ScenarioLayer) Clone() Entity {
	c := *l
	c.Features = cloneStrings(l.Features)
	return &c
}
