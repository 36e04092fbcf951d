package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-survey/internal/layers"
	"github.com/joeblew999/plat-survey/internal/survey"
	"github.com/joeblew999/plat-survey/internal/toggle"
	"github.com/joeblew999/plat-survey/internal/visibility"
)

type recorder struct {
	docs []*StyleDocument
	opts []RendererOptions
}

func (r *recorder) factory(opts RendererOptions) (Renderer, error) {
	d := NewStyleDocument(opts)
	r.docs = append(r.docs, d)
	r.opts = append(r.opts, opts)
	return d, nil
}

func (r *recorder) last() *StyleDocument { return r.docs[len(r.docs)-1] }

func testConfig(t *testing.T, highlight bool) *survey.MapConfig {
	t.Helper()
	groups := []survey.Group{
		{ID: 1, Name: "Roads", Type: survey.GroupClassic, Visibility: true},
		{ID: 2, Name: "Facing", Type: survey.GroupViewByClassification, Visibility: true},
	}
	sources := []survey.Source{
		{ID: 1, DataType: survey.Vector, Name: "plots", Link: "pmtiles://plots", Priority: 1},
		{ID: 2, DataType: survey.Raster, Name: "ortho", Link: "https://tiles/ortho.json", Priority: 2, Visibility: true},
		{ID: 3, DataType: survey.Raster, Name: "dem", Link: "https://tiles/dem.json", Priority: 1},
	}
	topos := []survey.Topography{
		{ID: 1, VectorType: survey.Fill, Color: "#f00"},
		{ID: 2, VectorType: survey.Line, Color: "#000"},
	}
	ls := []survey.Layer{
		{ID: 1, SourceID: 1, GroupID: 1, TopoID: 2, Name: "roads", Priority: 3},
		{ID: 2, SourceID: 1, GroupID: 2, TopoID: 1, Name: "East", Attribute: "facing", Priority: 1},
		{ID: 3, SourceID: 1, GroupID: 2, TopoID: 1, Name: "West", Attribute: "facing", Priority: 2},
		{ID: 4, SourceID: 1, Name: "nostyle", Priority: 1},
	}
	_, linked, _ := survey.Link(groups, sources, ls, topos)
	return &survey.MapConfig{
		StreetURL:       "https://styles/street.json",
		SatelliteURL:    "https://styles/satellite.json",
		Latitude:        12.9,
		Longitude:       77.6,
		Zoom:            15,
		MinZoom:         10,
		MaxZoom:         20,
		Sources:         linked,
		Landmarks:       []survey.Landmark{{ID: 1, Name: "School", Latitude: 12.91, Longitude: 77.61}},
		EnableHighlight: highlight,
	}
}

func TestSetConfigBuildsPipeline(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{Controls: []string{"navigation", "draw"}})

	require.NoError(t, o.SetConfig(testConfig(t, true)))
	doc := rec.last()

	assert.Equal(t, []string{"dem", "ortho", "East", "East-highlight", "West", "West-highlight", "roads", "landmarks"}, doc.LayerIDs())
	assert.Equal(t, []string{"navigation", "draw"}, doc.Controls())
	assert.Equal(t, "https://styles/street.json", rec.opts[0].StyleURL)
	assert.Equal(t, 77.6, rec.opts[0].Center.Lon())

	src, ok := doc.Source("plots")
	require.True(t, ok)
	assert.Equal(t, SourceSpec{Type: "vector", URL: "pmtiles://plots"}, src)
	_, ok = doc.Source(LandmarksID)
	assert.True(t, ok)

	require.Len(t, o.Result().Skipped, 1)
	assert.Equal(t, "nostyle", o.Result().Skipped[0].Name)

	st := o.State()
	assert.Len(t, st.Global, 2)
	assert.NotNil(t, st.Classic.Find("Roads"))
	assert.Equal(t, "Facing", st.SelectedGroupToggle)
}

func TestSetConfigRebuildsOnNewPointer(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	cfg := testConfig(t, false)

	require.NoError(t, o.SetConfig(cfg))
	require.NoError(t, o.SetConfig(cfg))
	assert.Len(t, rec.docs, 1)

	require.NoError(t, o.SetConfig(testConfig(t, false)))
	require.Len(t, rec.docs, 2)
	assert.ErrorIs(t, rec.docs[0].AddControl("x"), ErrNoRenderer)
	assert.NotEmpty(t, rec.docs[1].LayerIDs())
}

func TestSwitchBaseStyle(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, false)))

	require.NoError(t, o.SwitchBaseStyle(Satellite))
	require.Len(t, rec.opts, 2)
	assert.Equal(t, "https://styles/satellite.json", rec.opts[1].StyleURL)
	assert.Equal(t, Satellite, o.Base())

	assert.Error(t, o.SwitchBaseStyle("terrain"))
}

func TestLayerToggleUpdatesDocument(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, true)))
	doc := rec.last()

	_, err := o.LayerToggle(toggle.Toggle{ID: "West", Checked: false, Meta: toggle.Meta{Scheme: toggle.Filter}})
	require.NoError(t, err)

	west, _ := doc.Layer("West")
	assert.Equal(t, layers.None, west.Layout["visibility"])
	assert.Equal(t, "transparent", west.Paint["fill-color"])
	overlay, _ := doc.Layer("West-highlight")
	assert.Equal(t, layers.None, overlay.Layout["visibility"])

	east, _ := doc.Layer("East")
	assert.Equal(t, []any{"all", []any{"in", "facing", "East"}}, east.Filter)

	_, err = o.ChangeScheme(toggle.Classic)
	require.NoError(t, err)
	east, _ = doc.Layer("East")
	assert.Nil(t, east.Filter)
}

func TestCategoryChangeAndReset(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, false)))
	doc := rec.last()

	_, err := o.GroupToggle(toggle.Classic, "Roads", false)
	require.NoError(t, err)
	roads, _ := doc.Layer("roads")
	assert.Equal(t, layers.None, roads.Layout["visibility"])

	_, err = o.Reset(toggle.Classic)
	require.NoError(t, err)
	roads, _ = doc.Layer("roads")
	assert.Equal(t, layers.Visible, roads.Layout["visibility"])

	_, err = o.CategoryChange("Missing")
	assert.ErrorIs(t, err, visibility.ErrUnknownGroup)
	_, err = o.CategoryChange("Facing")
	assert.NoError(t, err)
}

func TestClickHighlightsSingleFeature(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, true)))
	doc := rec.last()

	a := FeatureRef{Source: "plots", SourceLayer: "plots", ID: 1}
	b := FeatureRef{Source: "plots", SourceLayer: "plots", ID: 2}

	require.NoError(t, doc.Emit(Event{Type: EventClick, Layer: "East", Feature: &a}))
	assert.Equal(t, map[string]any{"highlight": true}, doc.FeatureState(a))

	require.NoError(t, doc.Emit(Event{Type: EventClick, Layer: "West", Feature: &b}))
	assert.Equal(t, map[string]any{"highlight": false}, doc.FeatureState(a))
	assert.Equal(t, map[string]any{"highlight": true}, doc.FeatureState(b))
	assert.Equal(t, &b, o.Selected())

	// not a registered layer
	require.NoError(t, doc.Emit(Event{Type: EventClick, Layer: "basemap-water", Feature: &a}))
	assert.Equal(t, &b, o.Selected())

	require.NoError(t, doc.Emit(Event{Type: EventMouseMove, Layer: "roads"}))
	assert.Equal(t, "roads", o.Hovered())
	require.NoError(t, doc.Emit(Event{Type: EventMouseLeave, Layer: "roads"}))
	assert.Empty(t, o.Hovered())
}

func TestClickWithoutHighlight(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, false)))

	a := FeatureRef{Source: "plots", ID: 1}
	require.NoError(t, rec.last().Emit(Event{Type: EventClick, Layer: "East", Feature: &a}))
	assert.Nil(t, o.Selected())
	assert.Empty(t, rec.last().FeatureState(a))
	require.NotNil(t, o.LastClick())
}

func TestDuplicateBareKeyFailsFast(t *testing.T) {
	sources := []survey.Source{
		{ID: 1, DataType: survey.Vector, Name: "a"},
		{ID: 2, DataType: survey.Vector, Name: "b"},
	}
	topos := []survey.Topography{{ID: 1, VectorType: survey.Line, Color: "#000"}}
	ls := []survey.Layer{
		{ID: 1, SourceID: 1, TopoID: 1, Name: "roads"},
		{ID: 2, SourceID: 2, TopoID: 1, Name: "roads"},
	}
	_, linked, _ := survey.Link(nil, sources, ls, topos)

	o := New((&recorder{}).factory, Options{})
	err := o.SetConfig(&survey.MapConfig{Sources: linked})
	assert.ErrorIs(t, err, ErrDuplicateLayer)
}

func TestApplySkipsNilPaint(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, false)))

	err := o.Apply(visibility.Batch{Paints: []toggle.PaintProperty{{Layer: "East", Property: "fill-color"}}})
	require.NoError(t, err)
	east, _ := rec.last().Layer("East")
	assert.NotNil(t, east.Paint["fill-color"])

	err = o.Apply(visibility.Batch{Filters: []visibility.Filter{{Layer: "missing"}}})
	assert.ErrorIs(t, err, ErrUnknownLayer)
}

func TestApplyWithoutRenderer(t *testing.T) {
	o := New(StyleDocumentFactory, Options{})
	assert.ErrorIs(t, o.Apply(visibility.Batch{}), ErrNoRenderer)
	_, err := o.Reset(toggle.Global)
	assert.ErrorIs(t, err, ErrNoRenderer)
}

func TestStyleDocumentFailsFast(t *testing.T) {
	d := NewStyleDocument(RendererOptions{})
	err := d.AddLayer(layers.Descriptor{ID: "x", Type: "fill", Source: "nope"})
	assert.ErrorIs(t, err, ErrUnknownSource)

	require.NoError(t, d.AddSource("s", SourceSpec{Type: "vector"}))
	assert.ErrorIs(t, d.AddSource("s", SourceSpec{Type: "vector"}), ErrDuplicateSource)
	require.NoError(t, d.AddLayer(layers.Descriptor{ID: "x", Type: "fill", Source: "s"}))
	assert.ErrorIs(t, d.AddLayer(layers.Descriptor{ID: "x", Type: "fill", Source: "s"}), ErrDuplicateLayer)
	assert.ErrorIs(t, d.SetPaintProperty("y", "fill-color", "#fff"), ErrUnknownLayer)
	assert.ErrorIs(t, d.SetFeatureState(FeatureRef{Source: "nope", ID: 1}, nil), ErrUnknownSource)

	doc := d.Document()
	assert.Equal(t, 8, doc.Version)
	require.Len(t, doc.Layers, 1)
}

func TestGroupedLayerWithoutTopography(t *testing.T) {
	cfg := testConfig(t, false)
	for _, l := range cfg.Sources[0].Layers {
		if l.Name == "nostyle" {
			l.Group = cfg.Sources[0].Layers[0].Group
		}
	}
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(cfg))

	for _, tg := range o.State().Classic.Find("Roads").Toggles {
		assert.NotEqual(t, "nostyle", tg.ID)
	}
	_, err := o.Reset(toggle.Classic)
	require.NoError(t, err)
	_, err = o.GroupToggle(toggle.Classic, "Roads", false)
	require.NoError(t, err)
	roads, _ := rec.last().Layer("roads")
	assert.Equal(t, layers.None, roads.Layout["visibility"])
}

func TestFailedBatchKeepsState(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, false)))
	doc := rec.last()
	before := o.State()

	err := o.Apply(visibility.Batch{
		Toggles: []toggle.Toggle{{ID: "roads", Checked: false}, {ID: "missing"}},
	})
	assert.ErrorIs(t, err, ErrUnknownLayer)
	roads, _ := doc.Layer("roads")
	assert.Equal(t, layers.Visible, roads.Layout["visibility"])
	assert.Equal(t, before, o.State())
}

type failingDocument struct {
	*StyleDocument
	failOn string
}

func (f *failingDocument) SetLayoutProperty(layerID, property string, value any) error {
	if layerID == f.failOn {
		return assert.AnError
	}
	return f.StyleDocument.SetLayoutProperty(layerID, property, value)
}

func TestEngineErrorKeepsState(t *testing.T) {
	o := New(func(opts RendererOptions) (Renderer, error) {
		return &failingDocument{StyleDocument: NewStyleDocument(opts), failOn: "roads"}, nil
	}, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, false)))
	before := o.State()

	_, err := o.GroupToggle(toggle.Classic, "Roads", false)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, before, o.State())
	assert.True(t, o.State().Classic.Find("Roads").Visibility)
}

func TestFilterReachesHighlightOverlay(t *testing.T) {
	rec := &recorder{}
	o := New(rec.factory, Options{})
	require.NoError(t, o.SetConfig(testConfig(t, true)))
	doc := rec.last()

	_, err := o.LayerToggle(toggle.Toggle{ID: "West", Checked: false, Meta: toggle.Meta{Scheme: toggle.Filter}})
	require.NoError(t, err)

	east, _ := doc.Layer("East")
	overlay, _ := doc.Layer("East-highlight")
	assert.Equal(t, east.Filter, overlay.Filter)
	assert.Equal(t, []any{"all", []any{"in", "facing", "East"}}, overlay.Filter)
}
