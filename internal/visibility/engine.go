// Package visibility is the state machine that turns toggle events into
// engine commands. Every transition takes a toggle.State by value and
// returns the next state with the Batch the engine must apply.
package visibility

import (
	"errors"
	"fmt"
	"slices"

	"github.com/joeblew999/plat-survey/internal/layers"
	"github.com/joeblew999/plat-survey/internal/toggle"
)

var (
	ErrUnknownToggle = errors.New("unknown toggle")
	ErrUnknownGroup  = errors.New("unknown group")
	ErrUnknownScheme = errors.New("unknown scheme")
)

// Filter sets the filter of one engine layer. A nil Expression clears it.
type Filter struct {
	Layer      string `json:"layer"`
	Expression any    `json:"expression"`
}

// Batch is the set of commands produced by one transition.
type Batch struct {
	Toggles []toggle.Toggle        `json:"toggles"`
	Paints  []toggle.PaintProperty `json:"paints,omitempty"`
	Filters []Filter               `json:"filters,omitempty"`
}

// Empty reports whether the batch carries no commands.
func (b Batch) Empty() bool {
	return len(b.Toggles) == 0 && len(b.Paints) == 0 && len(b.Filters) == 0
}

// OnLayerToggle sets the checked state of the toggle t.ID in t.Meta.Scheme.
// Filter toggles also repaint and recompute the shared filter.
func OnLayerToggle(s toggle.State, t toggle.Toggle) (toggle.State, Batch, error) {
	scheme := t.Meta.Scheme
	if !scheme.Valid() {
		return s, Batch{}, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	next := s.Clone()

	var b Batch
	for _, tg := range next.Toggles(scheme) {
		if tg.ID != t.ID {
			continue
		}
		tg.Checked = t.Checked
		b.Toggles = append(b.Toggles, *tg)
		if scheme == toggle.Filter {
			b.Paints = appendFilterPaint(b.Paints, *tg)
		}
	}
	if len(b.Toggles) == 0 {
		return s, Batch{}, fmt.Errorf("%w: %s/%s", ErrUnknownToggle, scheme, t.ID)
	}
	if scheme == toggle.Filter {
		b.Filters = SetFilters(next)
	}
	return next, b, nil
}

// OnGroupToggle checks or unchecks every toggle of one bucket.
func OnGroupToggle(s toggle.State, scheme toggle.Scheme, group string, checked bool) (toggle.State, Batch, error) {
	if !scheme.Valid() || scheme == toggle.Global {
		return s, Batch{}, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	next := s.Clone()
	bk := next.Buckets(scheme).Find(group)
	if bk == nil {
		return s, Batch{}, fmt.Errorf("%w: %s/%s", ErrUnknownGroup, scheme, group)
	}

	bk.Visibility = checked
	var b Batch
	for i := range bk.Toggles {
		bk.Toggles[i].Checked = checked
		b.Toggles = append(b.Toggles, bk.Toggles[i])
		if scheme == toggle.Filter {
			b.Paints = appendFilterPaint(b.Paints, bk.Toggles[i])
		}
	}
	if scheme == toggle.Filter {
		b.Filters = SetFilters(next)
	}
	return next, b, nil
}

// OnCategoryChange makes category the only visible category tab.
func OnCategoryChange(s toggle.State, category string) (toggle.State, Batch, error) {
	if s.Category.Find(category) == nil {
		return s, Batch{}, fmt.Errorf("%w: %s", ErrUnknownGroup, category)
	}
	next := s.Clone()
	next.SelectedGroupToggle = category

	var b Batch
	for i := range next.Category {
		bk := &next.Category[i]
		on := bk.Name == category
		bk.Visibility = on
		for j := range bk.Toggles {
			bk.Toggles[j].Checked = on
			b.Toggles = append(b.Toggles, bk.Toggles[j])
		}
	}
	return next, b, nil
}

// ChangeLayoutGroupType selects the displayed scheme and resets it.
func ChangeLayoutGroupType(s toggle.State, scheme toggle.Scheme) (toggle.State, Batch, error) {
	if !scheme.Valid() {
		return s, Batch{}, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	s = s.Clone()
	s.SelectedGroupType = scheme
	return ResetTogglesVisibility(s, scheme)
}

// ResetTogglesVisibility re-derives every toggle of scheme from the
// visibility of its layer (or raster source), never from its group.
func ResetTogglesVisibility(s toggle.State, scheme toggle.Scheme) (toggle.State, Batch, error) {
	if !scheme.Valid() {
		return s, Batch{}, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	next := s.Clone()

	var b Batch
	for _, tg := range next.Toggles(scheme) {
		tg.Checked = tg.Underlying()
		b.Toggles = append(b.Toggles, *tg)

		switch scheme {
		case toggle.Classic, toggle.Category:
			if prop, color := layers.ColorPaint(tg.Meta.Layer, ""); prop != "" && color != nil {
				b.Paints = append(b.Paints, toggle.PaintProperty{Layer: tg.ID, Property: prop, Color: color})
			}
		case toggle.Filter:
			b.Paints = appendFilterPaint(b.Paints, *tg)
		}
	}

	if scheme == toggle.Filter {
		b.Filters = SetFilters(next)
	} else {
		b.Filters = RemoveFilters(next)
	}
	return next, b, nil
}

// SetFilters builds one compound filter from every checked filter toggle:
// an "in" clause per attribute listing the layer names that share it, all
// joined under "all". The same expression is applied to each checked layer.
func SetFilters(s toggle.State) []Filter {
	var (
		attrs   []string
		names   = map[string][]any{}
		targets []string
	)
	for _, tg := range s.Toggles(toggle.Filter) {
		if !tg.Checked || tg.Meta.Layer == nil {
			continue
		}
		if !slices.Contains(targets, tg.ID) {
			targets = append(targets, tg.ID)
		}
		attr := tg.Meta.Layer.Attribute
		if attr == "" {
			continue
		}
		if _, ok := names[attr]; !ok {
			attrs = append(attrs, attr)
		}
		if !slices.Contains(names[attr], any(tg.Meta.Layer.Name)) {
			names[attr] = append(names[attr], tg.Meta.Layer.Name)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	expr := []any{"all"}
	for _, attr := range attrs {
		clause := append([]any{"in", attr}, names[attr]...)
		expr = append(expr, clause)
	}

	filters := make([]Filter, 0, len(targets))
	for _, id := range targets {
		filters = append(filters, Filter{Layer: id, Expression: expr})
	}
	return filters
}

// RemoveFilters clears the filter of every layer in the filter scheme.
func RemoveFilters(s toggle.State) []Filter {
	var filters []Filter
	seen := map[string]bool{}
	for _, tg := range s.Toggles(toggle.Filter) {
		if seen[tg.ID] {
			continue
		}
		seen[tg.ID] = true
		filters = append(filters, Filter{Layer: tg.ID})
	}
	return filters
}

func appendFilterPaint(paints []toggle.PaintProperty, tg toggle.Toggle) []toggle.PaintProperty {
	var (
		prop  string
		color any
	)
	if tg.Checked {
		prop, color = layers.ColorPaint(tg.Meta.Layer, "")
	} else {
		prop, color = layers.TransparentPaint(tg.Meta.Layer)
	}
	if prop == "" || color == nil {
		return paints
	}
	return append(paints, toggle.PaintProperty{Layer: tg.ID, Property: prop, Color: color})
}
