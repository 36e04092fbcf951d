// Package survey holds the records the map subsystem loads per survey and
// the linking pass that wires them together.
package survey

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DataType is the kind of tiles a Source provides.
type DataType string

const (
	Vector DataType = "vector"
	Raster DataType = "raster"
)

// UnmarshalText normalises case and whitespace.
func (d *DataType) UnmarshalText(text []byte) error {
	*d = DataType(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// VectorType is the rendering primitive of a Topography.
type VectorType string

const (
	Line   VectorType = "line"
	Circle VectorType = "circle"
	Fill   VectorType = "fill"
	Symbol VectorType = "symbol"
)

// UnmarshalText normalises case and whitespace.
func (v *VectorType) UnmarshalText(text []byte) error {
	*v = VectorType(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// GroupType decides which toggle map a grouped Layer is classified into.
type GroupType string

const (
	GroupGlobal               GroupType = "GLOBAL"
	GroupClassic              GroupType = "CLASSIC"
	GroupViewByClassification GroupType = "VIEW_BY_CLASSIFICATION"
)

// ParseGroupType accepts the canonical names plus the "by-category" spellings
// older records use.
func ParseGroupType(s string) GroupType {
	n := strings.ToUpper(strings.TrimSpace(s))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)
	switch n {
	case "GLOBAL":
		return GroupGlobal
	case "CLASSIC":
		return GroupClassic
	case "VIEW_BY_CLASSIFICATION", "BY_CATEGORY", "CATEGORY":
		return GroupViewByClassification
	}
	return GroupType(n)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GroupType) UnmarshalText(text []byte) error {
	*g = ParseGroupType(string(text))
	return nil
}

// Topography is a named styling rule. It is lookup data and never mutated.
type Topography struct {
	ID          int64      `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	VectorType  VectorType `json:"vectorType" yaml:"vectorType"`
	Color       string     `json:"color,omitempty" yaml:"color"`
	FillColor   string     `json:"fillColor,omitempty" yaml:"fillColor"`
	Width       float64    `json:"width,omitempty" yaml:"width"`
	FillOpacity float64    `json:"fillOpacity,omitempty" yaml:"fillOpacity"`
	Radius      float64    `json:"radius,omitempty" yaml:"radius"`
	FontSize    float64    `json:"fontSize,omitempty" yaml:"fontSize"`
}

// Group is a classification bucket. Type is fixed for the session.
type Group struct {
	ID         int64     `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Type       GroupType `json:"type" yaml:"type"`
	SurveyID   int64     `json:"surveyId" yaml:"surveyId"`
	Priority   int       `json:"priority" yaml:"priority"`
	Visibility Flag      `json:"visibility" yaml:"visibility"`
}

// Layer is a named sublayer of a vector Source. Topography and Group are
// back-references filled in by Link.
type Layer struct {
	ID          int64  `json:"id" yaml:"id"`
	SourceID    int64  `json:"sourceId" yaml:"sourceId"`
	TopoID      int64  `json:"topoId,omitempty" yaml:"topoId"`
	GroupID     int64  `json:"groupId,omitempty" yaml:"groupId"`
	Attribute   string `json:"attribute,omitempty" yaml:"attribute"`
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName"`
	// Visibility is nil when the record carries none; Link seeds it from the group.
	Visibility *Flag `json:"visibility" yaml:"visibility"`
	Priority   int   `json:"priority" yaml:"priority"`

	Topography *Topography `json:"topography,omitempty" yaml:"-"`
	Group      *Group      `json:"group,omitempty" yaml:"-"`
}

// Visible reports the layer's own visibility.
func (l *Layer) Visible() bool {
	return l != nil && ToBool(l.Visibility)
}

// Label returns the display name, falling back to the layer name.
func (l *Layer) Label() string {
	if l.DisplayName != "" {
		return l.DisplayName
	}
	return l.Name
}

// Source is a tiled data provider.
type Source struct {
	ID         int64    `json:"id" yaml:"id"`
	SurveyID   int64    `json:"surveyId" yaml:"surveyId"`
	DataType   DataType `json:"dataType" yaml:"dataType"`
	Name       string   `json:"name" yaml:"name"`
	Link       string   `json:"link" yaml:"link"`
	Priority   int      `json:"priority" yaml:"priority"`
	Visibility Flag     `json:"visibility" yaml:"visibility"`
	Layers     []*Layer `json:"layers,omitempty" yaml:"-"`
}

// Survey is the unit a map view is scoped to.
type Survey struct {
	ID              int64   `json:"id" yaml:"id"`
	ProjectID       int64   `json:"projectId" yaml:"projectId"`
	Name            string  `json:"name" yaml:"name"`
	Latitude        float64 `json:"latitude" yaml:"latitude"`
	Longitude       float64 `json:"longitude" yaml:"longitude"`
	Zoom            float64 `json:"zoom,omitempty" yaml:"zoom"`
	EnableHighlight Flag    `json:"enableHighlight" yaml:"enableHighlight"`
}

// Layout is a plot layout document attached to a survey.
type Layout struct {
	ID       int64  `json:"id" yaml:"id"`
	SurveyID int64  `json:"surveyId" yaml:"surveyId"`
	Name     string `json:"name" yaml:"name"`
	Link     string `json:"link" yaml:"link"`
}

// Asset is a gallery image or document shown next to the map.
type Asset struct {
	ID       int64  `json:"id" yaml:"id"`
	SurveyID int64  `json:"surveyId" yaml:"surveyId"`
	Name     string `json:"name" yaml:"name"`
	Kind     string `json:"kind" yaml:"kind"`
	URL      string `json:"url" yaml:"url"`
}

// Landmark is a named point of interest near the survey.
type Landmark struct {
	ID        int64   `json:"id" yaml:"id"`
	SurveyID  int64   `json:"surveyId" yaml:"surveyId"`
	Name      string  `json:"name" yaml:"name"`
	Category  string  `json:"category,omitempty" yaml:"category"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// MapStyle is a selectable base style.
type MapStyle struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// Category is a plot category lookup entry.
type Category struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Attribute is a layout or plot attribute lookup entry.
type Attribute struct {
	ID   int64  `json:"id" yaml:"id"`
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name" yaml:"name"`
}

// View bundles the global lookup lists.
type View struct {
	MapStyles        []MapStyle   `json:"mapStyles" yaml:"mapStyles"`
	Categories       []Category   `json:"categories" yaml:"categories"`
	Topographies     []Topography `json:"topographies" yaml:"topographies"`
	LayoutAttributes []Attribute  `json:"layoutAttributes" yaml:"layoutAttributes"`
	PlotAttributes   []Attribute  `json:"plotAttributes" yaml:"plotAttributes"`
}

// MapConfig is the resolved view configuration. The orchestrator rebuilds
// the renderer whenever it receives a different *MapConfig.
type MapConfig struct {
	StreetURL       string     `json:"streetUrl"`
	SatelliteURL    string     `json:"satelliteUrl"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	Zoom            float64    `json:"zoom"`
	MinZoom         float64    `json:"minZoom"`
	MaxZoom         float64    `json:"maxZoom"`
	Sources         []*Source  `json:"sources"`
	Landmarks       []Landmark `json:"landmarks"`
	EnableHighlight bool       `json:"enableHighlight"`
}

// Center returns the map center as lon/lat.
func (c *MapConfig) Center() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// LandmarkCollection converts the landmarks into a GeoJSON source payload.
func (c *MapConfig) LandmarkCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, lm := range c.Landmarks {
		f := geojson.NewFeature(orb.Point{lm.Longitude, lm.Latitude})
		f.ID = lm.ID
		f.Properties["name"] = lm.Name
		if lm.Category != "" {
			f.Properties["category"] = lm.Category
		}
		fc.Append(f)
	}
	return fc
}
