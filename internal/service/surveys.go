package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/joeblew999/plat-survey/internal/config"
	"github.com/joeblew999/plat-survey/internal/survey"
)

// SurveyService loads and links survey bundles. Store responses are
// memoised per key for the service lifetime.
type SurveyService struct {
	store  Store
	logger *slog.Logger
	memo   sync.Map
}

// NewSurveyService creates a loader over store.
func NewSurveyService(store Store, logger *slog.Logger) *SurveyService {
	return &SurveyService{store: store, logger: logger}
}

func (s *SurveyService) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// cached returns the memoised value for key, calling fetch on a miss.
// Failures are not cached.
func cached[T any](s *SurveyService, key string, fetch func() (T, error)) (T, error) {
	if v, ok := s.memo.Load(key); ok {
		return v.(T), nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	actual, _ := s.memo.LoadOrStore(key, v)
	return actual.(T), nil
}

func idKey(prefix string, ids ...int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return prefix + ":" + strings.Join(parts, ",")
}

// Surveys lists every survey.
func (s *SurveyService) Surveys(ctx context.Context) ([]survey.Survey, error) {
	return cached(s, "surveys", func() ([]survey.Survey, error) { return s.store.Surveys(ctx) })
}

// Load fetches survey, groups, sources, the sources' layers, layouts,
// assets, landmarks and the view one after another, then links them. Any
// failure aborts the whole load.
func (s *SurveyService) Load(ctx context.Context, id int64) (*survey.Bundle, error) {
	fail := func(what string, err error) (*survey.Bundle, error) {
		s.log().Error("survey load failed", "survey", id, "step", what, "error", err)
		return nil, fmt.Errorf("%w: %s of survey %d: %w", ErrLoad, what, id, err)
	}
	s.log().Info("loading survey", "survey", id)

	sv, err := cached(s, idKey("survey", id), func() (survey.Survey, error) { return s.store.Survey(ctx, id) })
	if err != nil {
		return fail("survey", err)
	}
	groups, err := cached(s, idKey("groups", id), func() ([]survey.Group, error) { return s.store.Groups(ctx, id) })
	if err != nil {
		return fail("groups", err)
	}
	sources, err := cached(s, idKey("sources", id), func() ([]survey.Source, error) { return s.store.Sources(ctx, id) })
	if err != nil {
		return fail("sources", err)
	}
	sourceIDs := survey.SourceIDs(sources)
	layers, err := cached(s, idKey("layers", sourceIDs...), func() ([]survey.Layer, error) { return s.store.Layers(ctx, sourceIDs) })
	if err != nil {
		return fail("layers", err)
	}
	layouts, err := cached(s, idKey("layouts", id), func() ([]survey.Layout, error) { return s.store.Layouts(ctx, id) })
	if err != nil {
		return fail("layouts", err)
	}
	assets, err := cached(s, idKey("assets", id), func() ([]survey.Asset, error) { return s.store.Assets(ctx, id) })
	if err != nil {
		return fail("assets", err)
	}
	landmarks, err := cached(s, idKey("landmarks", id), func() ([]survey.Landmark, error) { return s.store.Landmarks(ctx, id) })
	if err != nil {
		return fail("landmarks", err)
	}
	view, err := cached(s, "view", func() (survey.View, error) { return s.store.View(ctx) })
	if err != nil {
		return fail("view", err)
	}

	linkedGroups, linkedSources, orphans := survey.Link(groups, sources, layers, view.Topographies)
	if len(orphans) > 0 {
		s.log().Warn("layers without a source", "survey", id, "layers", orphans)
	}
	s.log().Info("survey loaded", "survey", id, "groups", len(groups), "sources", len(sources), "layers", len(layers))

	return &survey.Bundle{
		Survey:    sv,
		Groups:    linkedGroups,
		Sources:   linkedSources,
		Layouts:   layouts,
		Assets:    assets,
		Landmarks: landmarks,
		View:      view,
		Orphans:   orphans,
	}, nil
}

// MapConfig resolves a fresh view configuration for b on top of defaults.
func MapConfig(b *survey.Bundle, defaults config.Map) *survey.MapConfig {
	zoom := b.Survey.Zoom
	if zoom == 0 {
		zoom = defaults.Zoom
	}
	return &survey.MapConfig{
		StreetURL:       defaults.StreetURL,
		SatelliteURL:    defaults.SatelliteURL,
		Latitude:        b.Survey.Latitude,
		Longitude:       b.Survey.Longitude,
		Zoom:            zoom,
		MinZoom:         defaults.MinZoom,
		MaxZoom:         defaults.MaxZoom,
		Sources:         b.Sources,
		Landmarks:       b.Landmarks,
		EnableHighlight: bool(b.Survey.EnableHighlight),
	}
}
