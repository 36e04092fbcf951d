// Package toggle classifies a survey's layers into the control model the
// viewer renders as checkboxes and category tabs.
package toggle

import (
	"github.com/joeblew999/plat-survey/internal/layers"
	"github.com/joeblew999/plat-survey/internal/survey"
)

// Scheme names the toggle map a Toggle belongs to.
type Scheme string

const (
	Global   Scheme = "GLOBAL"
	Classic  Scheme = "CLASSIC"
	Category Scheme = "VIEW_BY_CLASSIFICATION"
	Filter   Scheme = "FILTER"
)

// Valid reports whether s is one of the four schemes.
func (s Scheme) Valid() bool {
	switch s {
	case Global, Classic, Category, Filter:
		return true
	}
	return false
}

// Meta links a Toggle back to the record it controls.
type Meta struct {
	Layer    *survey.Layer  `json:"-"`
	Source   *survey.Source `json:"-"`
	LayerID  int64          `json:"layerId,omitempty"`
	SourceID int64          `json:"sourceId"`
	Scheme   Scheme         `json:"groupType"`
}

// Toggle is one checkbox. ID is the engine layer ID it drives.
type Toggle struct {
	ID      string `json:"id"`
	Checked bool   `json:"checked"`
	Name    string `json:"name,omitempty"`
	Meta    Meta   `json:"metaData"`
}

// Underlying reports the visibility of the record t controls.
func (t Toggle) Underlying() bool {
	if t.Meta.Layer != nil {
		return t.Meta.Layer.Visible()
	}
	if t.Meta.Source != nil {
		return t.Meta.Source.Visibility.Bool()
	}
	return false
}

// PaintProperty is a live paint update for one engine layer.
type PaintProperty struct {
	Layer    string `json:"layer"`
	Property string `json:"property"`
	Color    any    `json:"color"`
}

// Bucket holds the toggles of one group.
type Bucket struct {
	Name       string   `json:"name"`
	Toggles    []Toggle `json:"toggles"`
	Visibility bool     `json:"visibility"`
	Expand     bool     `json:"expand"`
}

// Buckets keeps groups in first-seen order.
type Buckets []Bucket

// Find returns the bucket named name, or nil.
func (b Buckets) Find(name string) *Bucket {
	for i := range b {
		if b[i].Name == name {
			return &b[i]
		}
	}
	return nil
}

func (b Buckets) clone() Buckets {
	if b == nil {
		return nil
	}
	out := make(Buckets, len(b))
	for i, bk := range b {
		bk.Toggles = append([]Toggle(nil), bk.Toggles...)
		out[i] = bk
	}
	return out
}

// State is the full control model. Transitions take a State by value and
// return a new one; use Clone before mutating.
type State struct {
	Global              []Toggle `json:"global"`
	Classic             Buckets  `json:"classic"`
	Category            Buckets  `json:"category"`
	Filter              Buckets  `json:"filter"`
	SelectedGroupType   Scheme   `json:"selectedGroupType"`
	SelectedGroupToggle string   `json:"selectedGroupToggle,omitempty"`
}

// Clone copies every slice. Meta back-references are shared.
func (s State) Clone() State {
	s.Global = append([]Toggle(nil), s.Global...)
	s.Classic = s.Classic.clone()
	s.Category = s.Category.clone()
	s.Filter = s.Filter.clone()
	return s
}

// Buckets returns the bucket map for scheme, or nil for Global.
func (s *State) Buckets(scheme Scheme) Buckets {
	switch scheme {
	case Classic:
		return s.Classic
	case Category:
		return s.Category
	case Filter:
		return s.Filter
	}
	return nil
}

// Toggles returns pointers to every toggle of scheme, in order.
func (s *State) Toggles(scheme Scheme) []*Toggle {
	var out []*Toggle
	if scheme == Global {
		for i := range s.Global {
			out = append(out, &s.Global[i])
		}
		return out
	}
	buckets := s.Buckets(scheme)
	for i := range buckets {
		for j := range buckets[i].Toggles {
			out = append(out, &buckets[i].Toggles[j])
		}
	}
	return out
}

// Classify buckets every raster source and every grouped vector layer the
// layer builder draws. Layers it skips get no toggle.
// SelectedGroupToggle is the last visible classification group met.
func Classify(sources []*survey.Source) State {
	s := State{SelectedGroupType: Classic}

	for _, src := range sources {
		if src.DataType == survey.Raster {
			s.Global = append(s.Global, Toggle{
				ID:      src.Name,
				Checked: src.Visibility.Bool(),
				Name:    src.Name,
				Meta:    Meta{Source: src, SourceID: src.ID, Scheme: Global},
			})
			continue
		}
		if src.DataType != survey.Vector {
			continue
		}

		for _, l := range src.Layers {
			g := l.Group
			if g == nil || layers.SkipReason(l) != "" {
				continue
			}
			t := Toggle{
				ID:      layers.Key(src, l),
				Checked: l.Visible(),
				Name:    l.Label(),
				Meta:    Meta{Layer: l, Source: src, LayerID: l.ID, SourceID: src.ID},
			}

			switch g.Type {
			case survey.GroupGlobal:
				t.Meta.Scheme = Global
				s.Global = append(s.Global, t)
			case survey.GroupClassic:
				t.Meta.Scheme = Classic
				s.Classic = appendToggle(s.Classic, g.Name, g.Visibility.Bool(), t)
			case survey.GroupViewByClassification:
				t.Meta.Scheme = Category
				s.Category = appendToggle(s.Category, g.Name, false, t)
				s.Filter = appendToggle(s.Filter, g.Name, g.Visibility.Bool(), t.Fork(Filter))
				if g.Visibility.Bool() {
					s.SelectedGroupToggle = g.Name
				}
			}
		}
	}
	return s
}

// Fork copies t into scheme, keeping its back-references.
func (t Toggle) Fork(scheme Scheme) Toggle {
	t.Meta.Scheme = scheme
	return t
}

func appendToggle(b Buckets, name string, visibility bool, t Toggle) Buckets {
	if bk := b.Find(name); bk != nil {
		bk.Toggles = append(bk.Toggles, t)
		return b
	}
	return append(b, Bucket{Name: name, Toggles: []Toggle{t}, Visibility: visibility, Expand: visibility})
}
