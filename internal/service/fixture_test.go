package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joeblew999/plat-survey/internal/survey"
)

// record builds a survey with one raster, one vector source, a classic
// group and a classification group whose layers split plots by facing.
func record(id int64) Record {
	base := id * 100
	return Record{
		Survey: survey.Survey{ID: id, Name: "Survey", Latitude: 12.9, Longitude: 77.6, Zoom: 15, EnableHighlight: true},
		Groups: []survey.Group{
			{ID: base + 1, SurveyID: id, Name: "Roads", Type: survey.GroupClassic, Visibility: true},
			{ID: base + 2, SurveyID: id, Name: "Facing", Type: survey.GroupViewByClassification, Visibility: true},
		},
		Sources: []survey.Source{
			{ID: base + 1, SurveyID: id, DataType: survey.Raster, Name: "ortho", Link: "https://tiles/ortho.json", Visibility: true},
			{ID: base + 2, SurveyID: id, DataType: survey.Vector, Name: "plots", Link: "https://tiles/plots.json", Priority: 1},
		},
		Layers: []survey.Layer{
			{ID: base + 1, SourceID: base + 2, GroupID: base + 1, TopoID: 2, Name: "roads", Priority: 2},
			{ID: base + 2, SourceID: base + 2, GroupID: base + 2, TopoID: 1, Name: "East", Attribute: "facing", Priority: 1},
			{ID: base + 3, SourceID: base + 2, GroupID: base + 2, TopoID: 1, Name: "West", Attribute: "facing", Priority: 1, Visibility: survey.NewFlag(false)},
		},
		Layouts:   []survey.Layout{{ID: base + 1, SurveyID: id, Name: "Phase 1", Link: "https://docs/layout.pdf"}},
		Assets:    []survey.Asset{{ID: base + 1, SurveyID: id, Name: "Gate", Kind: "image", URL: "https://img/gate.jpg"}},
		Landmarks: []survey.Landmark{{ID: base + 1, SurveyID: id, Name: "School", Category: "education", Latitude: 12.91, Longitude: 77.61}},
	}
}

func view() survey.View {
	return survey.View{
		MapStyles:  []survey.MapStyle{{ID: 1, Name: "Streets", URL: "https://styles/street.json"}},
		Categories: []survey.Category{{ID: 1, Name: "Residential"}},
		Topographies: []survey.Topography{
			{ID: 1, Name: "plot", VectorType: survey.Fill, Color: "#ff0000"},
			{ID: 2, Name: "road", VectorType: survey.Line, Color: "#000000", Width: 2},
		},
		LayoutAttributes: []survey.Attribute{{ID: 1, Key: "facing", Name: "Facing"}},
		PlotAttributes:   []survey.Attribute{{ID: 1, Key: "status", Name: "Status"}},
	}
}

// memStore serves records from memory and counts store calls.
type memStore struct {
	records map[int64]Record
	v       survey.View
	calls   atomic.Int64
	failOn  string

	mu      sync.Mutex
	block   map[int64]chan struct{}
	entered chan int64
}

func newMemStore(recs ...Record) *memStore {
	m := &memStore{records: map[int64]Record{}, v: view(), block: map[int64]chan struct{}{}}
	for _, r := range recs {
		m.records[r.Survey.ID] = r
	}
	return m
}

func (m *memStore) step(name string) error {
	m.calls.Add(1)
	if m.failOn == name {
		return context.DeadlineExceeded
	}
	return nil
}

func (m *memStore) Surveys(ctx context.Context) ([]survey.Survey, error) {
	var out []survey.Survey
	for _, r := range m.records {
		out = append(out, r.Survey)
	}
	return out, m.step("surveys")
}

func (m *memStore) Survey(ctx context.Context, id int64) (survey.Survey, error) {
	m.mu.Lock()
	ch := m.block[id]
	m.mu.Unlock()
	if ch != nil {
		if m.entered != nil {
			m.entered <- id
		}
		<-ch
	}
	if err := m.step("survey"); err != nil {
		return survey.Survey{}, err
	}
	r, ok := m.records[id]
	if !ok {
		return survey.Survey{}, ErrNotFound
	}
	return r.Survey, nil
}

func (m *memStore) Groups(ctx context.Context, id int64) ([]survey.Group, error) {
	return m.records[id].Groups, m.step("groups")
}

func (m *memStore) Sources(ctx context.Context, id int64) ([]survey.Source, error) {
	return m.records[id].Sources, m.step("sources")
}

func (m *memStore) Layers(ctx context.Context, sourceIDs []int64) ([]survey.Layer, error) {
	var out []survey.Layer
	for _, id := range sourceIDs {
		for _, r := range m.records {
			for _, l := range r.Layers {
				if l.SourceID == id {
					out = append(out, l)
				}
			}
		}
	}
	return out, m.step("layers")
}

func (m *memStore) Layouts(ctx context.Context, id int64) ([]survey.Layout, error) {
	return m.records[id].Layouts, m.step("layouts")
}

func (m *memStore) Assets(ctx context.Context, id int64) ([]survey.Asset, error) {
	return m.records[id].Assets, m.step("assets")
}

func (m *memStore) Landmarks(ctx context.Context, id int64) ([]survey.Landmark, error) {
	return m.records[id].Landmarks, m.step("landmarks")
}

func (m *memStore) View(ctx context.Context) (survey.View, error) {
	return m.v, m.step("view")
}
