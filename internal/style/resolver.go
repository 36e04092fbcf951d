// Package style turns a layer's topography into paint values the rendering
// engine understands.
package style

import (
	"github.com/joeblew999/plat-survey/internal/survey"
)

// Transparent is the color used for features that must not render.
const Transparent = "transparent"

// Color returns the flat color for a layer: the override when set, else the
// topography color, else the topography fill color. It returns "" when none
// of them resolve.
func Color(l *survey.Layer, override string) string {
	if override != "" {
		return override
	}
	if l == nil || l.Topography == nil {
		return ""
	}
	if l.Topography.Color != "" {
		return l.Topography.Color
	}
	return l.Topography.FillColor
}

// ResolveColor returns a conditional color expression that paints features
// whose l.Attribute value equals l.Name and leaves every other feature
// transparent, so sibling layers on one source-layer can share a paint rule.
//
// The result is nil when no color resolves. Callers must not issue a paint
// command with a nil expression.
func ResolveColor(l *survey.Layer, override string) any {
	c := Color(l, override)
	if l == nil || c == "" {
		return nil
	}
	return []any{
		"case",
		[]any{"==", []any{"get", l.Attribute}, l.Name},
		c,
		Transparent,
	}
}

// ColorProperty is the paint property that carries the color for vt.
func ColorProperty(vt survey.VectorType) string {
	switch vt {
	case survey.Line:
		return "line-color"
	case survey.Circle:
		return "circle-color"
	case survey.Symbol:
		return "text-color"
	default:
		return "fill-color"
	}
}

// BasePaint is the non-color part of the paint block for a topography.
func BasePaint(t *survey.Topography) map[string]any {
	paint := map[string]any{}
	if t == nil {
		return paint
	}
	switch t.VectorType {
	case survey.Line:
		paint["line-width"] = orDefault(t.Width, 1)
	case survey.Circle:
		paint["circle-radius"] = orDefault(t.Radius, 4)
		if t.FillOpacity > 0 {
			paint["circle-opacity"] = t.FillOpacity
		}
	case survey.Fill:
		paint["fill-opacity"] = orDefault(t.FillOpacity, 1)
		if t.Color != "" && t.FillColor != "" {
			paint["fill-outline-color"] = t.Color
		}
	}
	return paint
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
