package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-survey/internal/survey"
)

func fill(color string) *survey.Topography {
	return &survey.Topography{VectorType: survey.Fill, Color: color}
}

func TestKey(t *testing.T) {
	s7 := &survey.Source{ID: 7, Name: "a"}
	s9 := &survey.Source{ID: 9, Name: "b"}

	assert.Equal(t, "7-waypoints", Key(s7, &survey.Layer{Name: "waypoints"}))
	assert.Equal(t, "9-waypoints", Key(s9, &survey.Layer{Name: "waypoints"}))
	assert.Equal(t, "roads", Key(s7, &survey.Layer{Name: "roads"}))
	assert.Equal(t, "roads", Key(s9, &survey.Layer{Name: "roads"}))
}

func TestBuildSortsByPriorityStable(t *testing.T) {
	sources := []*survey.Source{
		{ID: 1, DataType: survey.Raster, Name: "ortho", Priority: 5, Visibility: true},
		{ID: 2, DataType: survey.Raster, Name: "dem", Priority: 1},
		{ID: 3, DataType: survey.Vector, Name: "plots", Layers: []*survey.Layer{
			{ID: 1, Name: "b", Priority: 2, Topography: fill("#111")},
			{ID: 2, Name: "a", Priority: 1, Topography: fill("#222")},
			{ID: 3, Name: "c", Priority: 2, Topography: fill("#333")},
		}},
		{ID: 4, DataType: survey.Vector, Name: "roads", Layers: []*survey.Layer{
			{ID: 4, Name: "d", Priority: 1, Topography: &survey.Topography{VectorType: survey.Line, Color: "#444"}},
		}},
	}

	res := Build(sources, Options{})

	require.Len(t, res.Raster, 2)
	assert.Equal(t, "dem", res.Raster[0].Descriptor.ID)
	assert.Equal(t, "ortho", res.Raster[1].Descriptor.ID)
	assert.Equal(t, None, res.Raster[0].Descriptor.Layout["visibility"])
	assert.Equal(t, Visible, res.Raster[1].Descriptor.Layout["visibility"])

	var ids []string
	for i, e := range res.Vector {
		ids = append(ids, e.Descriptor.ID)
		if i > 0 {
			assert.LessOrEqual(t, res.Vector[i-1].Priority, e.Priority)
		}
	}
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids)
	assert.Equal(t, []string{"dem", "ortho", "a", "d", "b", "c"}, res.IDs())
	assert.Empty(t, res.Skipped)
}

func TestBuildDescriptorShapes(t *testing.T) {
	src := &survey.Source{ID: 7, DataType: survey.Vector, Name: "plots", Layers: []*survey.Layer{
		{ID: 1, Name: "tracks"},
		{ID: 2, Name: "waypoints", Visibility: survey.NewFlag(true)},
		{ID: 3, Name: "labels", Topography: &survey.Topography{VectorType: survey.Symbol, FontSize: 14}},
		{ID: 4, Name: "East", Attribute: "facing", Topography: fill("#f00")},
		{ID: 5, Name: "wells", Attribute: "kind", Topography: &survey.Topography{VectorType: survey.Circle, Color: "#0f0", Radius: 6}},
	}}

	res := Build([]*survey.Source{src}, Options{LabelField: "plot_no"})
	require.Len(t, res.Vector, 5)

	tracks := res.Vector[0].Descriptor
	assert.Equal(t, "line", tracks.Type)
	assert.Equal(t, "#3388ff", tracks.Paint["line-color"])
	assert.Equal(t, 2.0, tracks.Paint["line-width"])

	wp := res.Vector[1].Descriptor
	assert.Equal(t, "7-waypoints", wp.ID)
	assert.Equal(t, "symbol", wp.Type)
	assert.Equal(t, Visible, wp.Layout["visibility"])

	labels := res.Vector[2].Descriptor
	assert.Equal(t, "symbol", labels.Type)
	assert.Equal(t, []any{"get", "plot_no"}, labels.Layout["text-field"])
	assert.Equal(t, 14.0, labels.Layout["text-size"])

	east := res.Vector[3].Descriptor
	assert.Equal(t, "fill", east.Type)
	assert.Equal(t, "plots", east.Source)
	assert.Equal(t, "plots", east.SourceLayer)
	assert.Equal(t, []any{"case", []any{"==", []any{"get", "facing"}, "East"}, "#f00", "transparent"}, east.Paint["fill-color"])
	assert.Equal(t, None, east.Layout["visibility"])

	wells := res.Vector[4].Descriptor
	assert.Equal(t, "circle", wells.Type)
	assert.Equal(t, 6.0, wells.Paint["circle-radius"])
	assert.NotNil(t, wells.Paint["circle-color"])
}

func TestBuildHighlightOverlay(t *testing.T) {
	src := &survey.Source{ID: 1, DataType: survey.Vector, Name: "plots", Layers: []*survey.Layer{
		{ID: 1, Name: "plot", Priority: 1, Topography: fill("#f00")},
		{ID: 2, Name: "road", Priority: 1, Topography: &survey.Topography{VectorType: survey.Line, Color: "#000"}},
	}}

	res := Build([]*survey.Source{src}, Options{EnableHighlight: true, HighlightColor: "#abcdef"})
	require.Len(t, res.Vector, 3)
	assert.Equal(t, "plot", res.Vector[0].Descriptor.ID)
	assert.Equal(t, "plot-highlight", res.Vector[1].Descriptor.ID)
	assert.Equal(t, "#abcdef", res.Vector[1].Descriptor.Paint["fill-color"])
	assert.Equal(t, "road", res.Vector[2].Descriptor.ID)

	res = Build([]*survey.Source{src}, Options{})
	assert.Len(t, res.Vector, 2)
}

func TestBuildSkipsUnresolvableLayers(t *testing.T) {
	src := &survey.Source{ID: 1, DataType: survey.Vector, Name: "plots", Layers: []*survey.Layer{
		{ID: 1, Name: "orphan"},
		{ID: 2, Name: "odd", Topography: &survey.Topography{VectorType: "heatmap"}},
		{ID: 3, Name: "ok", Topography: fill("#f00")},
	}}

	res := Build([]*survey.Source{src, {ID: 2, DataType: "geojson", Name: "x"}}, Options{})
	require.Len(t, res.Vector, 1)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, "no topography", res.Skipped[0].Reason)
	assert.Equal(t, int64(1), res.Skipped[0].LayerID)
	assert.Equal(t, `unknown vector type "heatmap"`, res.Skipped[1].Reason)
	assert.Equal(t, `unknown data type "geojson"`, res.Skipped[2].Reason)
}

func TestColorPaint(t *testing.T) {
	prop, v := ColorPaint(&survey.Layer{Name: "tracks"}, "")
	assert.Equal(t, "line-color", prop)
	assert.Equal(t, "#3388ff", v)

	l := &survey.Layer{Name: "East", Attribute: "facing", Topography: fill("#f00")}
	prop, v = ColorPaint(l, "")
	assert.Equal(t, "fill-color", prop)
	assert.Equal(t, []any{"case", []any{"==", []any{"get", "facing"}, "East"}, "#f00", "transparent"}, v)

	prop, v = TransparentPaint(l)
	assert.Equal(t, "fill-color", prop)
	assert.Equal(t, "transparent", v)

	prop, v = ColorPaint(&survey.Layer{Name: "bare"}, "")
	assert.Empty(t, prop)
	assert.Nil(t, v)
}
