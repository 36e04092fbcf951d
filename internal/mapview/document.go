package mapview

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/joeblew999/plat-survey/internal/layers"
)

// Document is a MapLibre style document.
type Document struct {
	Version  int                   `json:"version"`
	Name     string                `json:"name,omitempty"`
	Center   []float64             `json:"center"`
	Zoom     float64               `json:"zoom"`
	Sources  map[string]SourceSpec `json:"sources"`
	Layers   []layers.Descriptor   `json:"layers"`
	Metadata map[string]any        `json:"metadata,omitempty"`
}

type listener struct {
	layers []string
	h      Handler
}

// StyleDocument is a Renderer that records commands into a style document
// served to browser clients. It is safe for concurrent use.
type StyleDocument struct {
	mu        sync.Mutex
	opts      RendererOptions
	sources   map[string]SourceSpec
	order     []string
	layers    map[string]*layers.Descriptor
	states    map[string]featureState
	listeners map[string][]listener
	controls  []string
	removed   bool
}

type featureState struct {
	Ref   FeatureRef     `json:"ref"`
	State map[string]any `json:"state"`
}

// NewStyleDocument returns an empty document for opts.
func NewStyleDocument(opts RendererOptions) *StyleDocument {
	return &StyleDocument{
		opts:      opts,
		sources:   map[string]SourceSpec{},
		layers:    map[string]*layers.Descriptor{},
		states:    map[string]featureState{},
		listeners: map[string][]listener{},
	}
}

// StyleDocumentFactory is a Factory producing StyleDocuments.
func StyleDocumentFactory(opts RendererOptions) (Renderer, error) {
	return NewStyleDocument(opts), nil
}

func (d *StyleDocument) AddSource(name string, spec SourceSpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed {
		return ErrNoRenderer
	}
	if _, ok := d.sources[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, name)
	}
	d.sources[name] = spec
	return nil
}

func (d *StyleDocument) AddLayer(desc layers.Descriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed {
		return ErrNoRenderer
	}
	if _, ok := d.layers[desc.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLayer, desc.ID)
	}
	if _, ok := d.sources[desc.Source]; !ok {
		return fmt.Errorf("layer %s: %w: %s", desc.ID, ErrUnknownSource, desc.Source)
	}
	desc.Layout = maps.Clone(desc.Layout)
	desc.Paint = maps.Clone(desc.Paint)
	if desc.Layout == nil {
		desc.Layout = map[string]any{}
	}
	if desc.Paint == nil {
		desc.Paint = map[string]any{}
	}
	d.layers[desc.ID] = &desc
	d.order = append(d.order, desc.ID)
	return nil
}

func (d *StyleDocument) layer(id string) (*layers.Descriptor, error) {
	if d.removed {
		return nil, ErrNoRenderer
	}
	l, ok := d.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	return l, nil
}

func (d *StyleDocument) SetLayoutProperty(layerID, property string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, err := d.layer(layerID)
	if err != nil {
		return err
	}
	l.Layout[property] = value
	return nil
}

func (d *StyleDocument) SetPaintProperty(layerID, property string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, err := d.layer(layerID)
	if err != nil {
		return err
	}
	l.Paint[property] = value
	return nil
}

func (d *StyleDocument) SetFilter(layerID string, expr any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, err := d.layer(layerID)
	if err != nil {
		return err
	}
	l.Filter = expr
	return nil
}

func (d *StyleDocument) SetFeatureState(ref FeatureRef, state map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed {
		return ErrNoRenderer
	}
	if _, ok := d.sources[ref.Source]; !ok {
		return fmt.Errorf("feature state: %w: %s", ErrUnknownSource, ref.Source)
	}
	k := ref.key()
	fs, ok := d.states[k]
	if !ok {
		fs = featureState{Ref: ref, State: map[string]any{}}
	}
	maps.Copy(fs.State, state)
	d.states[k] = fs
	return nil
}

// FeatureState returns a copy of the state recorded for ref.
func (d *StyleDocument) FeatureState(ref FeatureRef) map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.states[ref.key()].State)
}

func (d *StyleDocument) On(event string, layerIDs []string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[event] = append(d.listeners[event], listener{layers: slices.Clone(layerIDs), h: h})
}

// Emit delivers ev to every listener registered for its type and layer.
// Handlers run without the document lock held.
func (d *StyleDocument) Emit(ev Event) error {
	d.mu.Lock()
	if d.removed {
		d.mu.Unlock()
		return ErrNoRenderer
	}
	var hs []Handler
	for _, l := range d.listeners[ev.Type] {
		if len(l.layers) == 0 || slices.Contains(l.layers, ev.Layer) {
			hs = append(hs, l.h)
		}
	}
	d.mu.Unlock()

	for _, h := range hs {
		if err := h(ev); err != nil {
			return err
		}
	}
	return nil
}

func (d *StyleDocument) AddControl(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.removed {
		return ErrNoRenderer
	}
	if !slices.Contains(d.controls, name) {
		d.controls = append(d.controls, name)
	}
	return nil
}

// Remove tears the document down. Every later command fails.
func (d *StyleDocument) Remove() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed = true
	d.listeners = map[string][]listener{}
	return nil
}

// Layer returns a copy of the layer with id.
func (d *StyleDocument) Layer(id string) (layers.Descriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[id]
	if !ok {
		return layers.Descriptor{}, false
	}
	return copyDescriptor(*l), true
}

// LayerIDs returns layer IDs in paint order.
func (d *StyleDocument) LayerIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.order)
}

// Source returns the spec of the source called name.
func (d *StyleDocument) Source(name string) (SourceSpec, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sources[name]
	return s, ok
}

// Controls lists the controls added so far.
func (d *StyleDocument) Controls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.controls)
}

// Document returns a deep copy of the current style document.
func (d *StyleDocument) Document() Document {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc := Document{
		Version: 8,
		Center:  []float64{d.opts.Center.Lon(), d.opts.Center.Lat()},
		Zoom:    d.opts.Zoom,
		Sources: maps.Clone(d.sources),
		Layers:  make([]layers.Descriptor, 0, len(d.order)),
		Metadata: map[string]any{
			"surveymap:base-style": d.opts.StyleURL,
			"surveymap:min-zoom":   d.opts.MinZoom,
			"surveymap:max-zoom":   d.opts.MaxZoom,
		},
	}
	for _, id := range d.order {
		doc.Layers = append(doc.Layers, copyDescriptor(*d.layers[id]))
	}
	if len(d.controls) > 0 {
		doc.Metadata["surveymap:controls"] = slices.Clone(d.controls)
	}
	if len(d.states) > 0 {
		keys := slices.Sorted(maps.Keys(d.states))
		states := make([]featureState, 0, len(keys))
		for _, k := range keys {
			fs := d.states[k]
			states = append(states, featureState{Ref: fs.Ref, State: maps.Clone(fs.State)})
		}
		doc.Metadata["surveymap:feature-state"] = states
	}
	return doc
}

// MarshalJSON encodes the current style document.
func (d *StyleDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Document())
}

func copyDescriptor(l layers.Descriptor) layers.Descriptor {
	l.Layout = maps.Clone(l.Layout)
	l.Paint = maps.Clone(l.Paint)
	return l
}
