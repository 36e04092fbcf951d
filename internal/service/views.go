package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-survey/internal/config"
	"github.com/joeblew999/plat-survey/internal/layers"
	"github.com/joeblew999/plat-survey/internal/mapview"
	"github.com/joeblew999/plat-survey/internal/survey"
	"github.com/joeblew999/plat-survey/internal/toggle"
	"github.com/joeblew999/plat-survey/internal/visibility"
)

// Session is one map view: an orchestrator bound to one survey.
type Session struct {
	ID      string
	Created time.Time

	mu         sync.Mutex
	orch       *mapview.Orchestrator
	surveyID   int64
	bundle     *survey.Bundle
	generation uint64
	revision   int64
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID        string              `json:"id"`
	SurveyID  int64               `json:"surveyId"`
	Revision  int64               `json:"revision"`
	Base      mapview.BaseStyle   `json:"base"`
	State     toggle.State        `json:"state"`
	Skipped   []layers.Skipped    `json:"skipped,omitempty"`
	Orphans   []int64             `json:"orphans,omitempty"`
	Selected  *mapview.FeatureRef `json:"selected,omitempty"`
	Hovered   string              `json:"hovered,omitempty"`
	LastClick *mapview.Event      `json:"lastClick,omitempty"`
	Config    *survey.MapConfig   `json:"config,omitempty"`
	Layouts   []survey.Layout     `json:"layouts,omitempty"`
	Assets    []survey.Asset      `json:"assets,omitempty"`
}

// Update is a Snapshot plus the batch a transition produced.
type Update struct {
	Snapshot
	Batch visibility.Batch `json:"batch"`
}

// ViewService manages view sessions.
type ViewService struct {
	surveys  *SurveyService
	factory  mapview.Factory
	opts     mapview.Options
	defaults config.Map
	bus      *EventBus
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewViewService creates a session manager. Engines are created with factory.
func NewViewService(surveys *SurveyService, factory mapview.Factory, defaults config.Map, bus *EventBus, logger *slog.Logger) *ViewService {
	if bus == nil {
		bus = NewEventBus()
	}
	v := &ViewService{
		surveys:  surveys,
		factory:  factory,
		defaults: defaults,
		bus:      bus,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	v.opts = mapview.Options{
		HighlightColor: defaults.HighlightColor,
		LabelField:     defaults.LabelField,
		Controls:       defaults.Controls,
		Logger:         logger,
	}
	return v
}

func (v *ViewService) log() *slog.Logger {
	if v.logger != nil {
		return v.logger
	}
	return slog.Default()
}

// Bus returns the event bus sessions publish on.
func (v *ViewService) Bus() *EventBus { return v.bus }

// Open loads surveyID and creates a session for it.
func (v *ViewService) Open(ctx context.Context, surveyID int64) (Snapshot, error) {
	b, err := v.surveys.Load(ctx, surveyID)
	if err != nil {
		return Snapshot{}, err
	}
	s := &Session{
		ID:       uuid.NewString(),
		Created:  time.Now(),
		orch:     mapview.New(v.factory, v.opts),
		surveyID: surveyID,
		bundle:   b,
	}
	if err := s.orch.SetConfig(MapConfig(b, v.defaults)); err != nil {
		s.orch.Close()
		return Snapshot{}, err
	}
	s.revision = 1

	v.mu.Lock()
	v.sessions[s.ID] = s
	v.mu.Unlock()

	v.log().Info("view opened", "session", s.ID, "survey", surveyID)
	snap := s.snapshot()
	v.bus.Publish(Event{Session: s.ID, Action: "opened", Revision: snap.Revision})
	return snap, nil
}

func (v *ViewService) session(id string) (*Session, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.sessions[id]
	if !ok {
		return nil, fmt.Errorf("view %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// Get returns the current snapshot of a session.
func (v *ViewService) Get(id string) (Snapshot, error) {
	s, err := v.session(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// List returns snapshots of every session.
func (v *ViewService) List() []Snapshot {
	v.mu.RLock()
	sessions := make([]*Session, 0, len(v.sessions))
	for _, s := range v.sessions {
		sessions = append(sessions, s)
	}
	v.mu.RUnlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, s.snapshot())
		s.mu.Unlock()
	}
	return out
}

// SwitchSurvey loads surveyID and rebuilds the session's map. When another
// switch on the same session starts before this one finishes loading, this
// one returns ErrStale and leaves the session untouched. When the new map
// cannot be built the session keeps its previous survey, whose map is
// rebuilt with fresh toggles under a new revision.
func (v *ViewService) SwitchSurvey(ctx context.Context, id string, surveyID int64) (Snapshot, error) {
	s, err := v.session(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	b, err := v.surveys.Load(ctx, surveyID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		v.log().Info("discarding stale survey load", "session", id, "survey", surveyID)
		return Snapshot{}, fmt.Errorf("survey %d: %w", surveyID, ErrStale)
	}
	if err != nil {
		return Snapshot{}, err
	}
	prev := s.orch.Config()
	if err := s.orch.SetConfig(MapConfig(b, v.defaults)); err != nil {
		// the engine was torn down for the new survey; rebuild the old one
		if rerr := s.orch.SetConfig(prev); rerr != nil {
			err = errors.Join(err, rerr)
		}
		s.revision++
		v.log().Warn("survey switch failed", "session", id, "survey", surveyID, "error", err)
		v.bus.Publish(Event{Session: id, Action: "restored", Revision: s.revision})
		return Snapshot{}, err
	}
	s.bundle = b
	s.surveyID = surveyID
	s.revision++

	snap := s.snapshot()
	v.bus.Publish(Event{Session: id, Action: "survey", Revision: snap.Revision})
	return snap, nil
}

// mutate runs fn under the session lock and publishes the resulting batch.
func (v *ViewService) mutate(id, action string, fn func(*mapview.Orchestrator) (visibility.Batch, error)) (Update, error) {
	s, err := v.session(id)
	if err != nil {
		return Update{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := fn(s.orch)
	if err != nil {
		return Update{}, err
	}
	s.revision++
	u := Update{Snapshot: s.snapshot(), Batch: b}
	v.bus.Publish(Event{Session: id, Action: action, Revision: u.Revision, Batch: b})
	return u, nil
}

// Toggle flips one toggle.
func (v *ViewService) Toggle(id string, t toggle.Toggle) (Update, error) {
	return v.mutate(id, "toggle", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		return o.LayerToggle(t)
	})
}

// Group flips every toggle of a group bucket.
func (v *ViewService) Group(id string, scheme toggle.Scheme, group string, checked bool) (Update, error) {
	return v.mutate(id, "group", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		return o.GroupToggle(scheme, group, checked)
	})
}

// Category selects the visible category tab.
func (v *ViewService) Category(id, category string) (Update, error) {
	return v.mutate(id, "category", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		return o.CategoryChange(category)
	})
}

// Scheme switches the displayed classification scheme.
func (v *ViewService) Scheme(id string, scheme toggle.Scheme) (Update, error) {
	return v.mutate(id, "scheme", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		return o.ChangeScheme(scheme)
	})
}

// Reset re-derives a scheme's toggles from layer visibility.
func (v *ViewService) Reset(id string, scheme toggle.Scheme) (Update, error) {
	return v.mutate(id, "reset", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		return o.Reset(scheme)
	})
}

type emitter interface {
	Emit(mapview.Event) error
}

// Click forwards a click to the session's engine.
func (v *ViewService) Click(id string, ev mapview.Event) (Update, error) {
	ev.Type = mapview.EventClick
	return v.mutate(id, "click", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		e, ok := o.Renderer().(emitter)
		if !ok {
			return visibility.Batch{}, mapview.ErrNoRenderer
		}
		return visibility.Batch{}, e.Emit(ev)
	})
}

// Hover reports the pointer over layer, or leaving the layer it was over
// when layer is empty.
func (v *ViewService) Hover(id, layer string) (Update, error) {
	return v.mutate(id, "hover", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		e, ok := o.Renderer().(emitter)
		if !ok {
			return visibility.Batch{}, mapview.ErrNoRenderer
		}
		ev := mapview.Event{Type: mapview.EventMouseMove, Layer: layer}
		if layer == "" {
			ev = mapview.Event{Type: mapview.EventMouseLeave, Layer: o.Hovered()}
		}
		return visibility.Batch{}, e.Emit(ev)
	})
}

// BaseStyle switches between the street and satellite base styles.
func (v *ViewService) BaseStyle(id string, base mapview.BaseStyle) (Update, error) {
	return v.mutate(id, "style", func(o *mapview.Orchestrator) (visibility.Batch, error) {
		return visibility.Batch{}, o.SwitchBaseStyle(base)
	})
}

// Revision returns a session's revision. It changes with every transition.
func (v *ViewService) Revision(id string) (int64, error) {
	s, err := v.session(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision, nil
}

type documenter interface {
	Document() mapview.Document
}

// Style returns the session's current style document and its revision.
func (v *ViewService) Style(id string) (mapview.Document, int64, error) {
	s, err := v.session(id)
	if err != nil {
		return mapview.Document{}, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.orch.Renderer().(documenter)
	if !ok {
		return mapview.Document{}, 0, mapview.ErrNoRenderer
	}
	return d.Document(), s.revision, nil
}

// Close tears a session down.
func (v *ViewService) Close(id string) error {
	v.mu.Lock()
	s, ok := v.sessions[id]
	delete(v.sessions, id)
	v.mu.Unlock()
	if !ok {
		return fmt.Errorf("view %s: %w", id, ErrNotFound)
	}

	s.mu.Lock()
	err := s.orch.Close()
	s.mu.Unlock()

	v.log().Info("view closed", "session", id)
	v.bus.Publish(Event{Session: id, Action: "closed"})
	return err
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.ID,
		SurveyID:  s.surveyID,
		Revision:  s.revision,
		Base:      s.orch.Base(),
		State:     s.orch.State(),
		Skipped:   s.orch.Result().Skipped,
		Selected:  s.orch.Selected(),
		Hovered:   s.orch.Hovered(),
		LastClick: s.orch.LastClick(),
		Config:    s.orch.Config(),
	}
	if s.bundle != nil {
		snap.Orphans = s.bundle.Orphans
		snap.Layouts = s.bundle.Layouts
		snap.Assets = s.bundle.Assets
	}
	return snap
}
