package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink(t *testing.T) {
	groups := []Group{
		{ID: 1, Name: "Roads", Type: GroupClassic, Visibility: true},
		{ID: 2, Name: "Facing", Type: GroupViewByClassification, Visibility: false},
	}
	sources := []Source{
		{ID: 10, DataType: Vector, Name: "plots"},
		{ID: 11, DataType: Raster, Name: "ortho"},
	}
	topos := []Topography{{ID: 5, VectorType: Fill, Color: "#00ff00"}}
	layers := []Layer{
		{ID: 100, SourceID: 10, GroupID: 1, TopoID: 5, Name: "roads"},
		{ID: 101, SourceID: 10, GroupID: 2, TopoID: 5, Name: "East", Visibility: NewFlag(true)},
		{ID: 102, SourceID: 99, Name: "lost"},
	}

	linkedGroups, linked, orphans := Link(groups, sources, layers, topos)

	require.Len(t, linkedGroups, 2)
	require.Len(t, linked, 2)
	assert.Equal(t, []int64{102}, orphans)

	plots := linked[0]
	require.Len(t, plots.Layers, 2)
	assert.Equal(t, "roads", plots.Layers[0].Name)
	assert.Equal(t, "East", plots.Layers[1].Name)
	assert.Empty(t, linked[1].Layers)

	roads := plots.Layers[0]
	require.NotNil(t, roads.Group)
	assert.Equal(t, "Roads", roads.Group.Name)
	require.NotNil(t, roads.Topography)
	assert.Equal(t, "#00ff00", roads.Topography.Color)

	// seeded from the group when the record has no visibility of its own
	assert.True(t, roads.Visible())
	// an explicit layer flag wins over the group flag
	assert.True(t, plots.Layers[1].Visible())
	assert.False(t, bool(plots.Layers[1].Group.Visibility))
}

func TestLinkDoesNotMutateInputs(t *testing.T) {
	sources := []Source{{ID: 1, DataType: Vector, Name: "plots"}}
	layers := []Layer{{ID: 1, SourceID: 1, Name: "a", Visibility: NewFlag(false)}}

	_, first, _ := Link(nil, sources, layers, nil)
	_, second, _ := Link(nil, sources, layers, nil)

	assert.Nil(t, sources[0].Layers)
	assert.Nil(t, layers[0].Topography)
	require.Len(t, first[0].Layers, 1)
	require.Len(t, second[0].Layers, 1)

	*first[0].Layers[0].Visibility = true
	assert.False(t, bool(*layers[0].Visibility))
	assert.False(t, second[0].Layers[0].Visible())
}

func TestLayerWithoutGroupDefaultsHidden(t *testing.T) {
	_, linked, _ := Link(nil, []Source{{ID: 1, DataType: Vector}}, []Layer{{ID: 1, SourceID: 1, Name: "x"}}, nil)
	require.Len(t, linked[0].Layers, 1)
	assert.False(t, linked[0].Layers[0].Visible())
}

func TestLandmarkCollection(t *testing.T) {
	cfg := &MapConfig{
		Latitude:  12.9,
		Longitude: 77.6,
		Landmarks: []Landmark{{ID: 1, Name: "School", Category: "education", Latitude: 12.91, Longitude: 77.61}},
	}
	assert.Equal(t, 77.6, cfg.Center().Lon())
	assert.Equal(t, 12.9, cfg.Center().Lat())

	fc := cfg.LandmarkCollection()
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "School", fc.Features[0].Properties["name"])
	assert.Equal(t, "education", fc.Features[0].Properties["category"])
}
