package mapview

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/joeblew999/plat-survey/internal/layers"
	"github.com/joeblew999/plat-survey/internal/survey"
	"github.com/joeblew999/plat-survey/internal/toggle"
	"github.com/joeblew999/plat-survey/internal/visibility"
)

// BaseStyle selects the base map style URL of a MapConfig.
type BaseStyle string

const (
	Street    BaseStyle = "street"
	Satellite BaseStyle = "satellite"
)

// LandmarksID names the source and layer landmarks are drawn with.
const LandmarksID = "landmarks"

const highlightState = "highlight"

// Options configure an Orchestrator.
type Options struct {
	HighlightColor string
	LabelField     string
	// Controls are added to every engine instance after its layers.
	Controls []string
	Logger   *slog.Logger
}

// Orchestrator owns one engine instance and the toggle state that drives
// it. It is not safe for concurrent use.
type Orchestrator struct {
	factory Factory
	opts    Options

	cfg      *survey.MapConfig
	base     BaseStyle
	renderer Renderer
	result   layers.Result
	state    toggle.State
	layerIDs []string
	selected *FeatureRef
	hovered  string
	clicked  *Event
}

// New returns an Orchestrator that creates engines with factory.
func New(factory Factory, opts Options) *Orchestrator {
	return &Orchestrator{factory: factory, opts: opts, base: Street}
}

func (o *Orchestrator) log() *slog.Logger {
	if o.opts.Logger != nil {
		return o.opts.Logger
	}
	return slog.Default()
}

// SetConfig installs cfg. A different *MapConfig tears the current engine
// down and rebuilds everything; the same pointer is a no-op.
func (o *Orchestrator) SetConfig(cfg *survey.MapConfig) error {
	if cfg == o.cfg && o.renderer != nil {
		return nil
	}
	o.cfg = cfg
	return o.rebuild()
}

// SwitchBaseStyle changes the base style and forces a full rebuild.
func (o *Orchestrator) SwitchBaseStyle(base BaseStyle) error {
	if base != Street && base != Satellite {
		return fmt.Errorf("unknown base style %q", base)
	}
	o.base = base
	if o.cfg == nil {
		return nil
	}
	return o.rebuild()
}

func (o *Orchestrator) rebuild() error {
	if err := o.teardown(); err != nil {
		return err
	}
	if o.cfg == nil {
		return nil
	}

	r, err := o.factory(RendererOptions{
		StyleURL: o.styleURL(),
		Center:   o.cfg.Center(),
		Zoom:     o.cfg.Zoom,
		MinZoom:  o.cfg.MinZoom,
		MaxZoom:  o.cfg.MaxZoom,
	})
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	o.renderer = r
	o.log().Info("map rebuilt", "base", o.base, "sources", len(o.cfg.Sources))
	return o.onStyleLoaded()
}

func (o *Orchestrator) styleURL() string {
	if o.base == Satellite && o.cfg.SatelliteURL != "" {
		return o.cfg.SatelliteURL
	}
	return o.cfg.StreetURL
}

func (o *Orchestrator) teardown() error {
	if o.renderer == nil {
		return nil
	}
	err := o.renderer.Remove()
	o.renderer = nil
	o.result = layers.Result{}
	o.state = toggle.State{}
	o.layerIDs = nil
	o.selected = nil
	o.hovered = ""
	o.clicked = nil
	if err != nil {
		return fmt.Errorf("remove renderer: %w", err)
	}
	return nil
}

// onStyleLoaded commits sources, rasters then vectors in priority order,
// landmarks, listeners and controls.
func (o *Orchestrator) onStyleLoaded() error {
	r := o.renderer
	for _, src := range o.cfg.Sources {
		if err := r.AddSource(src.Name, SourceSpec{Type: string(src.DataType), URL: src.Link}); err != nil {
			return err
		}
	}

	o.result = layers.Build(o.cfg.Sources, layers.Options{
		EnableHighlight: o.cfg.EnableHighlight,
		HighlightColor:  o.opts.HighlightColor,
		LabelField:      o.opts.LabelField,
	})
	for _, d := range o.result.Descriptors() {
		if err := r.AddLayer(d); err != nil {
			return err
		}
	}
	if n := len(o.result.Skipped); n > 0 {
		o.log().Warn(fmt.Sprintf("%d layers skipped", n), "count", n)
		for _, s := range o.result.Skipped {
			o.log().Debug("layer skipped", "source", s.SourceID, "layer", s.LayerID, "name", s.Name, "reason", s.Reason)
		}
	}

	if len(o.cfg.Landmarks) > 0 {
		if err := r.AddSource(LandmarksID, SourceSpec{Type: "geojson", Data: o.cfg.LandmarkCollection()}); err != nil {
			return err
		}
		if err := r.AddLayer(layers.Descriptor{
			ID:     LandmarksID,
			Type:   "circle",
			Source: LandmarksID,
			Layout: map[string]any{"visibility": layers.Visible},
			Paint:  map[string]any{"circle-radius": 5.0, "circle-color": "#e4572e", "circle-stroke-width": 1.0, "circle-stroke-color": "#ffffff"},
		}); err != nil {
			return err
		}
	}

	o.state = toggle.Classify(o.cfg.Sources)

	o.layerIDs = o.result.IDs()
	r.On(EventClick, o.layerIDs, o.onClick)
	r.On(EventMouseMove, o.layerIDs, func(ev Event) error {
		o.hovered = ev.Layer
		return nil
	})
	r.On(EventMouseLeave, o.layerIDs, func(Event) error {
		o.hovered = ""
		return nil
	})

	for _, c := range o.opts.Controls {
		if err := r.AddControl(c); err != nil {
			return err
		}
	}
	return nil
}

// onClick moves the single-selection highlight to the clicked feature.
func (o *Orchestrator) onClick(ev Event) error {
	o.clicked = &ev
	if !o.cfg.EnableHighlight || ev.Feature == nil {
		return nil
	}
	if o.selected != nil {
		if err := o.renderer.SetFeatureState(*o.selected, map[string]any{highlightState: false}); err != nil {
			return err
		}
	}
	ref := *ev.Feature
	if err := o.renderer.SetFeatureState(ref, map[string]any{highlightState: true}); err != nil {
		return err
	}
	o.selected = &ref
	return nil
}

// Apply issues the engine commands of b. Paints without a color are
// skipped. Highlight overlays follow their base layer's visibility and
// filter. A batch naming a layer the engine does not hold fails with
// ErrUnknownLayer before any command is issued.
func (o *Orchestrator) Apply(b visibility.Batch) error {
	if o.renderer == nil {
		return ErrNoRenderer
	}
	if err := o.checkTargets(b); err != nil {
		return err
	}
	r := o.renderer
	for _, t := range b.Toggles {
		v := layers.VisibilityValue(t.Checked)
		for _, id := range o.withOverlay(t.ID) {
			if err := r.SetLayoutProperty(id, "visibility", v); err != nil {
				return err
			}
		}
	}
	for _, p := range b.Paints {
		if p.Color == nil || p.Property == "" {
			continue
		}
		if err := r.SetPaintProperty(p.Layer, p.Property, p.Color); err != nil {
			return err
		}
	}
	for _, f := range b.Filters {
		for _, id := range o.withOverlay(f.Layer) {
			if err := r.SetFilter(id, f.Expression); err != nil {
				return err
			}
		}
	}
	return nil
}

// withOverlay returns id and, when one was drawn, its highlight overlay.
func (o *Orchestrator) withOverlay(id string) []string {
	if hk := layers.HighlightKey(id); slices.Contains(o.layerIDs, hk) {
		return []string{id, hk}
	}
	return []string{id}
}

func (o *Orchestrator) checkTargets(b visibility.Batch) error {
	check := func(id string) error {
		if !slices.Contains(o.layerIDs, id) {
			return fmt.Errorf("%w: %s", ErrUnknownLayer, id)
		}
		return nil
	}
	for _, t := range b.Toggles {
		if err := check(t.ID); err != nil {
			return err
		}
	}
	for _, p := range b.Paints {
		if p.Color == nil || p.Property == "" {
			continue
		}
		if err := check(p.Layer); err != nil {
			return err
		}
	}
	for _, f := range b.Filters {
		if err := check(f.Layer); err != nil {
			return err
		}
	}
	return nil
}

// transition keeps the current state unless every command of b went through.
func (o *Orchestrator) transition(next toggle.State, b visibility.Batch, err error) (visibility.Batch, error) {
	if err != nil {
		return visibility.Batch{}, err
	}
	if err := o.Apply(b); err != nil {
		return visibility.Batch{}, err
	}
	o.state = next
	return b, nil
}

// LayerToggle flips one toggle.
func (o *Orchestrator) LayerToggle(t toggle.Toggle) (visibility.Batch, error) {
	return o.transition(visibility.OnLayerToggle(o.state, t))
}

// GroupToggle flips every toggle of a bucket.
func (o *Orchestrator) GroupToggle(scheme toggle.Scheme, group string, checked bool) (visibility.Batch, error) {
	return o.transition(visibility.OnGroupToggle(o.state, scheme, group, checked))
}

// CategoryChange selects the visible category tab.
func (o *Orchestrator) CategoryChange(category string) (visibility.Batch, error) {
	return o.transition(visibility.OnCategoryChange(o.state, category))
}

// ChangeScheme switches the displayed classification scheme.
func (o *Orchestrator) ChangeScheme(scheme toggle.Scheme) (visibility.Batch, error) {
	return o.transition(visibility.ChangeLayoutGroupType(o.state, scheme))
}

// Reset re-derives the toggles of scheme from layer visibility.
func (o *Orchestrator) Reset(scheme toggle.Scheme) (visibility.Batch, error) {
	return o.transition(visibility.ResetTogglesVisibility(o.state, scheme))
}

// Close tears down the engine.
func (o *Orchestrator) Close() error {
	o.cfg = nil
	return o.teardown()
}

// State returns a copy of the toggle state.
func (o *Orchestrator) State() toggle.State { return o.state.Clone() }

// Result returns the last build result.
func (o *Orchestrator) Result() layers.Result { return o.result }

// Renderer returns the current engine, or nil.
func (o *Orchestrator) Renderer() Renderer { return o.renderer }

// Config returns the installed configuration.
func (o *Orchestrator) Config() *survey.MapConfig { return o.cfg }

// Base returns the selected base style.
func (o *Orchestrator) Base() BaseStyle { return o.base }

// Selected returns the highlighted feature, if any.
func (o *Orchestrator) Selected() *FeatureRef { return o.selected }

// Hovered returns the layer under the pointer.
func (o *Orchestrator) Hovered() string { return o.hovered }

// LastClick returns the last click event.
func (o *Orchestrator) LastClick() *Event { return o.clicked }
