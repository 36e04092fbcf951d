// Package mapview drives a map rendering engine from a survey's map
// configuration: it owns the engine lifecycle, builds and commits the layer
// pipeline and applies visibility batches.
package mapview

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-survey/internal/layers"
)

var (
	ErrNoRenderer      = errors.New("no renderer")
	ErrUnknownLayer    = errors.New("unknown layer")
	ErrUnknownSource   = errors.New("unknown source")
	ErrDuplicateLayer  = errors.New("duplicate layer")
	ErrDuplicateSource = errors.New("duplicate source")
)

// Engine event types.
const (
	EventClick      = "click"
	EventMouseMove  = "mousemove"
	EventMouseLeave = "mouseleave"
)

// SourceSpec describes a source added to the engine.
type SourceSpec struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Data any    `json:"data,omitempty"`
}

// FeatureRef addresses one feature for feature state.
type FeatureRef struct {
	Source      string `json:"source"`
	SourceLayer string `json:"sourceLayer,omitempty"`
	ID          any    `json:"id"`
}

func (f FeatureRef) key() string {
	return fmt.Sprintf("%s/%s/%v", f.Source, f.SourceLayer, f.ID)
}

// Event is an interaction reported by the engine.
type Event struct {
	Type       string         `json:"type"`
	Layer      string         `json:"layer,omitempty"`
	Feature    *FeatureRef    `json:"feature,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	LngLat     orb.Point      `json:"lngLat"`
}

// Handler receives engine events.
type Handler func(Event) error

// Renderer is the command surface of a map rendering engine. Commands that
// reference unknown sources or layers return an error.
type Renderer interface {
	AddSource(name string, spec SourceSpec) error
	AddLayer(d layers.Descriptor) error
	SetLayoutProperty(layerID, property string, value any) error
	SetPaintProperty(layerID, property string, value any) error
	SetFilter(layerID string, expr any) error
	SetFeatureState(ref FeatureRef, state map[string]any) error
	On(event string, layerIDs []string, h Handler)
	AddControl(name string) error
	Remove() error
}

// RendererOptions configure a new engine instance.
type RendererOptions struct {
	StyleURL string
	Center   orb.Point
	Zoom     float64
	MinZoom  float64
	MaxZoom  float64
}

// Factory creates an engine instance whose base style has loaded.
type Factory func(RendererOptions) (Renderer, error)
