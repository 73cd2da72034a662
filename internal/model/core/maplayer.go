// internal/model/core/maplayer.go
package core

// MapLayerType enumerates background/overlay map layer sources.
type MapLayerType string

const (
	MapLayerTile   MapLayerType = "tile"   // XYZ/WMTS tile source
	MapLayerImage  MapLayerType = "image"  // georeferenced image overlay
	MapLayerRemote MapLayerType = "remote" // remote markup reference
)

// ScenarioMapLayer describes a background or overlay map layer. It is not part
// of the feature model and carries no temporal state.
type ScenarioMapLayer struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Type    MapLayerType `json:"type"`
	URL     string       `json:"url,omitempty"`
	Opacity float64      `json:"opacity"`
	// Extent is [minLon, minLat, maxLon, maxLat] for image overlays.
	Extent []float64 `json:"extent,omitempty"`
	// Transient sources (drag-dropped images, session-local references) are
	// never serialized into snapshots.
	Transient bool `json:"-"`
}

func (m *ScenarioMapLayer) EntityID() string { return m.ID }

func (*ScenarioMapLayer) EntityKind() Kind { return KindMapLayer }

func (m *ScenarioMapLayer) Clone() Entity {
	c := *m
	if m.Extent != nil {
		c.Extent = append([]float64(nil), m.Extent...)
	}
	return &c
}
