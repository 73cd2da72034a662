// internal/model/core/feature.go
package core

// FeatureStyle describes how a feature is drawn. Zero values mean "renderer
// default"; the engine never interprets these beyond copying them around.
type FeatureStyle struct {
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Fill        string  `json:"fill,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`
	Marker      string  `json:"marker,omitempty"`
}

// FeatureMeta carries display metadata for a feature.
type FeatureMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// TypeTag is a free-form classification (e.g. "phase-line", "objective").
	TypeTag string `json:"type,omitempty"`
	Visible bool   `json:"visible"`
}

// ScenarioFeature is a drawn geometry with metadata and an optional list of
// time-stamped overrides. The feature's state at the scenario's current time
// is always derived, never stored.
type ScenarioFeature struct {
	ID      string `json:"id"`
	LayerID string `json:"layerId"`

	Geometry Geometry     `json:"geometry"`
	Style    FeatureStyle `json:"style"`
	Meta     FeatureMeta  `json:"meta"`

	// States is kept sorted ascending by timestamp with stable insertion.
	States []FeatureState `json:"states,omitempty"`
}

func (f *ScenarioFeature) EntityID() string { return f.ID }

func (*ScenarioFeature) EntityKind() Kind { return KindFeature }

func (f *ScenarioFeature) Clone() Entity {
	c := *f
	c.Geometry = f.Geometry.Clone()
	if f.States != nil {
		c.States = make([]FeatureState, len(f.States))
		for i, st := range f.States {
			c.States[i] = st.clone()
		}
	}
	return &c
}

// FeatureState overrides a feature's geometry and/or style from its timestamp
// onward. Nil fields inherit the base value.
type FeatureState struct {
	T        int64         `json:"t"`
	Geometry *Geometry     `json:"geometry,omitempty"`
	Style    *FeatureStyle `json:"style,omitempty"`
}

func (s FeatureState) When() int64 { return s.T }

func (s FeatureState) clone() FeatureState {
	c := s
	if s.Geometry != nil {
		g := s.Geometry.Clone()
		c.Geometry = &g
	}
	if s.Style != nil {
		st := *s.Style
		c.Style = &st
	}
	return c
}

// ResolvedFeature is the outcome of resolving a feature at a point in time.
// Callers needing the full entity re-query the scenario by ID.
type ResolvedFeature struct {
	ID       string
	Geometry Geometry
	Style    FeatureStyle
	// FromState is false when no state applied and the base values were used.
	FromState bool
}
