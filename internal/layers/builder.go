// Package layers builds the ordered rendering pipeline for a survey's
// sources.
package layers

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/joeblew999/plat-survey/internal/style"
	"github.com/joeblew999/plat-survey/internal/survey"
)

// Names that bypass the topography dispatch.
const (
	TracksName    = "tracks"
	WaypointsName = "waypoints"
)

const (
	defaultTrackColor     = "#3388ff"
	defaultTrackWidth     = 2.0
	defaultLabelField     = "name"
	defaultHighlightColor = "#ffcc00"
	defaultFontSize       = 12.0
)

// Layout visibility values.
const (
	Visible = "visible"
	None    = "none"
)

// Descriptor is one layer in the rendering engine's style.
type Descriptor struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	SourceLayer string         `json:"source-layer,omitempty"`
	Filter      any            `json:"filter,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
}

// Entry pairs a descriptor with its sort priority.
type Entry struct {
	Priority   int        `json:"priority"`
	Descriptor Descriptor `json:"descriptor"`
}

// Skipped records a layer that produced no descriptor.
type Skipped struct {
	SourceID int64  `json:"sourceId"`
	LayerID  int64  `json:"layerId,omitempty"`
	Name     string `json:"name"`
	Reason   string `json:"reason"`
}

// Result is the output of Build. Raster and Vector are each sorted by
// priority and must be added to the engine rasters first.
type Result struct {
	Raster  []Entry   `json:"raster"`
	Vector  []Entry   `json:"vector"`
	Skipped []Skipped `json:"skipped,omitempty"`
}

// Descriptors returns rasters then vectors in commit order.
func (r Result) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.Raster)+len(r.Vector))
	for _, e := range r.Raster {
		out = append(out, e.Descriptor)
	}
	for _, e := range r.Vector {
		out = append(out, e.Descriptor)
	}
	return out
}

// IDs returns every descriptor ID in commit order.
func (r Result) IDs() []string {
	ds := r.Descriptors()
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return ids
}

// Options tune Build.
type Options struct {
	EnableHighlight bool
	HighlightColor  string
	// LabelField is the feature property symbol layers render.
	LabelField string
}

func (o Options) labelField() string {
	if o.LabelField == "" {
		return defaultLabelField
	}
	return o.LabelField
}

func (o Options) highlightColor() string {
	if o.HighlightColor == "" {
		return defaultHighlightColor
	}
	return o.HighlightColor
}

// Key is the engine layer ID for l under src. Waypoint layers are keyed per
// source; every other layer uses its bare name.
func Key(src *survey.Source, l *survey.Layer) string {
	if l.Name == WaypointsName {
		return strconv.FormatInt(src.ID, 10) + "-" + WaypointsName
	}
	return l.Name
}

// HighlightKey is the ID of the feature-state overlay drawn above a fill layer.
func HighlightKey(key string) string {
	return key + "-highlight"
}

// VisibilityValue maps a boolean onto the layout visibility value.
func VisibilityValue(visible bool) string {
	if visible {
		return Visible
	}
	return None
}

// Build turns sources into raster and vector descriptor lists.
func Build(sources []*survey.Source, opts Options) Result {
	var res Result
	for _, src := range sources {
		switch src.DataType {
		case survey.Raster:
			res.Raster = append(res.Raster, Entry{
				Priority: src.Priority,
				Descriptor: Descriptor{
					ID:     src.Name,
					Type:   "raster",
					Source: src.Name,
					Layout: map[string]any{"visibility": VisibilityValue(bool(src.Visibility))},
				},
			})
		case survey.Vector:
			for _, l := range src.Layers {
				entries, skip := vectorEntries(src, l, opts)
				if skip != "" {
					res.Skipped = append(res.Skipped, Skipped{SourceID: src.ID, LayerID: l.ID, Name: l.Name, Reason: skip})
					continue
				}
				res.Vector = append(res.Vector, entries...)
			}
		default:
			res.Skipped = append(res.Skipped, Skipped{
				SourceID: src.ID,
				Name:     src.Name,
				Reason:   fmt.Sprintf("unknown data type %q", src.DataType),
			})
		}
	}

	byPriority := func(a, b Entry) int { return a.Priority - b.Priority }
	slices.SortStableFunc(res.Raster, byPriority)
	slices.SortStableFunc(res.Vector, byPriority)
	return res
}

// SkipReason reports why Build draws no layer for the vector layer l, or ""
// when it is drawn.
func SkipReason(l *survey.Layer) string {
	if l.Name == TracksName || l.Name == WaypointsName {
		return ""
	}
	if l.Topography == nil {
		return "no topography"
	}
	switch l.Topography.VectorType {
	case survey.Symbol, survey.Line, survey.Circle, survey.Fill:
		return ""
	}
	return fmt.Sprintf("unknown vector type %q", l.Topography.VectorType)
}

func vectorEntries(src *survey.Source, l *survey.Layer, opts Options) ([]Entry, string) {
	if reason := SkipReason(l); reason != "" {
		return nil, reason
	}
	d := Descriptor{
		ID:          Key(src, l),
		Source:      src.Name,
		SourceLayer: src.Name,
		Layout:      map[string]any{"visibility": VisibilityValue(l.Visible())},
		Paint:       map[string]any{},
	}
	topo := l.Topography

	switch {
	case l.Name == TracksName:
		d.Type = "line"
		d.Layout["line-join"] = "round"
		d.Layout["line-cap"] = "round"
		d.Paint["line-color"] = defaultTrackColor
		d.Paint["line-width"] = defaultTrackWidth
		if topo != nil {
			if c := style.Color(l, ""); c != "" {
				d.Paint["line-color"] = c
			}
			if topo.Width > 0 {
				d.Paint["line-width"] = topo.Width
			}
		}
	case l.Name == WaypointsName:
		d.Type = "symbol"
		d.Layout["text-field"] = []any{"get", defaultLabelField}
		d.Layout["text-size"] = fontSize(topo)
		d.Layout["text-offset"] = []float64{0, 1.2}
		d.Layout["text-anchor"] = "top"
		d.Paint["text-color"] = "#000000"
		if c := style.Color(l, ""); c != "" {
			d.Paint["text-color"] = c
		}
	case topo.VectorType == survey.Symbol:
		d.Type = "symbol"
		d.Layout["text-field"] = []any{"get", opts.labelField()}
		d.Layout["text-size"] = fontSize(topo)
		d.Layout["text-allow-overlap"] = false
		if c := style.Color(l, ""); c != "" {
			d.Paint["text-color"] = c
		}
	default:
		d.Type = string(topo.VectorType)
		for k, v := range style.BasePaint(topo) {
			d.Paint[k] = v
		}
		if expr := style.ResolveColor(l, ""); expr != nil {
			d.Paint[style.ColorProperty(topo.VectorType)] = expr
		}
	}

	entries := []Entry{{Priority: l.Priority, Descriptor: d}}
	if d.Type == string(survey.Fill) && opts.EnableHighlight {
		entries = append(entries, Entry{Priority: l.Priority, Descriptor: highlight(d, opts.highlightColor())})
	}
	return entries, ""
}

// highlight draws the clicked feature of a fill layer in color, driven by
// the "highlight" feature state.
func highlight(base Descriptor, color string) Descriptor {
	return Descriptor{
		ID:          HighlightKey(base.ID),
		Type:        "fill",
		Source:      base.Source,
		SourceLayer: base.SourceLayer,
		Layout:      map[string]any{"visibility": base.Layout["visibility"]},
		Paint: map[string]any{
			"fill-color": color,
			"fill-opacity": []any{
				"case",
				[]any{"boolean", []any{"feature-state", "highlight"}, false},
				0.6,
				0,
			},
		},
	}
}

func fontSize(t *survey.Topography) float64 {
	if t != nil && t.FontSize > 0 {
		return t.FontSize
	}
	return defaultFontSize
}
