package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-survey/internal/survey"
)

// FileStore serves survey records from a data directory:
//
//	<dataDir>/view.yaml             lookup lists
//	<dataDir>/surveys/<id>.json     one Record per survey (.yaml and .yml also read)
type FileStore struct {
	dataDir string
	records map[int64]Record
	view    survey.View
	mu      sync.RWMutex
}

// NewFileStore loads every survey file under dataDir. A missing directory
// yields an empty store.
func NewFileStore(dataDir string) (*FileStore, error) {
	s := &FileStore{
		dataDir: dataDir,
		records: make(map[int64]Record),
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) surveysDir() string {
	return filepath.Join(s.dataDir, "surveys")
}

func (s *FileStore) viewFile() string {
	return filepath.Join(s.dataDir, "view.yaml")
}

func decode(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

// loadFromDisk reads view.yaml and every survey file.
func (s *FileStore) loadFromDisk() error {
	if data, err := os.ReadFile(s.viewFile()); err == nil {
		if err := decode(s.viewFile(), data, &s.view); err != nil {
			return fmt.Errorf("%s: %w", s.viewFile(), err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	entries, err := os.ReadDir(s.surveysDir())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(s.surveysDir(), e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var rec Record
		if err := decode(path, data, &rec); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.records[rec.Survey.ID] = rec
	}
	return nil
}

// Put stores rec and writes it to <dataDir>/surveys/<id>.json.
func (s *FileStore) Put(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.surveysDir(), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	name := strconv.FormatInt(rec.Survey.ID, 10) + ".json"
	if err := os.WriteFile(filepath.Join(s.surveysDir(), name), data, 0644); err != nil {
		return err
	}
	s.records[rec.Survey.ID] = rec
	return nil
}

// PutView replaces the lookup lists and writes view.yaml.
func (s *FileStore) PutView(ctx context.Context, v survey.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.viewFile(), data, 0644); err != nil {
		return err
	}
	s.view = v
	return nil
}

func (s *FileStore) record(id int64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("survey %d: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (s *FileStore) Surveys(ctx context.Context) ([]survey.Survey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]survey.Survey, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Survey)
	}
	slices.SortFunc(out, func(a, b survey.Survey) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *FileStore) Survey(ctx context.Context, id int64) (survey.Survey, error) {
	rec, err := s.record(id)
	return rec.Survey, err
}

func (s *FileStore) Groups(ctx context.Context, surveyID int64) ([]survey.Group, error) {
	rec, err := s.record(surveyID)
	return slices.Clone(rec.Groups), err
}

func (s *FileStore) Sources(ctx context.Context, surveyID int64) ([]survey.Source, error) {
	rec, err := s.record(surveyID)
	return slices.Clone(rec.Sources), err
}

// Layers returns the layers of the given sources, in source order then
// file order.
func (s *FileStore) Layers(ctx context.Context, sourceIDs []int64) ([]survey.Layer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource := map[int64][]survey.Layer{}
	for _, rec := range s.records {
		for _, l := range rec.Layers {
			bySource[l.SourceID] = append(bySource[l.SourceID], l)
		}
	}
	var out []survey.Layer
	for _, id := range sourceIDs {
		out = append(out, bySource[id]...)
	}
	return out, nil
}

func (s *FileStore) Layouts(ctx context.Context, surveyID int64) ([]survey.Layout, error) {
	rec, err := s.record(surveyID)
	return slices.Clone(rec.Layouts), err
}

func (s *FileStore) Assets(ctx context.Context, surveyID int64) ([]survey.Asset, error) {
	rec, err := s.record(surveyID)
	return slices.Clone(rec.Assets), err
}

func (s *FileStore) Landmarks(ctx context.Context, surveyID int64) ([]survey.Landmark, error) {
	rec, err := s.record(surveyID)
	return slices.Clone(rec.Landmarks), err
}

func (s *FileStore) View(ctx context.Context) (survey.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, nil
}
