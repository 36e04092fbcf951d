package layers

import (
	"github.com/joeblew999/plat-survey/internal/style"
	"github.com/joeblew999/plat-survey/internal/survey"
)

// ColorPaint returns the color paint property Build assigns to l, with
// override in place of the topography color. The value is nil when l has
// no color to paint.
func ColorPaint(l *survey.Layer, override string) (property string, value any) {
	switch {
	case l == nil:
		return "", nil
	case l.Name == TracksName:
		if c := style.Color(l, override); c != "" {
			return "line-color", c
		}
		return "line-color", defaultTrackColor
	case l.Name == WaypointsName:
		if c := style.Color(l, override); c != "" {
			return "text-color", c
		}
		return "text-color", "#000000"
	case l.Topography == nil:
		return "", nil
	case l.Topography.VectorType == survey.Symbol:
		if c := style.Color(l, override); c != "" {
			return "text-color", c
		}
		return "text-color", nil
	}
	return style.ColorProperty(l.Topography.VectorType), style.ResolveColor(l, override)
}

// TransparentPaint returns the color paint property for l set to transparent.
func TransparentPaint(l *survey.Layer) (property string, value any) {
	property, _ = ColorPaint(l, style.Transparent)
	return property, style.Transparent
}
