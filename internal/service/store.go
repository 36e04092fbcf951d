// Package service loads survey records and manages map view sessions.
package service

import (
	"context"
	"errors"

	"github.com/joeblew999/plat-survey/internal/survey"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrLoad wraps any failure while loading a survey. Loads are all or
	// nothing.
	ErrLoad = errors.New("survey load failed")
	// ErrStale is returned for a survey switch superseded by a later one.
	ErrStale = errors.New("stale survey load")
)

// Store is the backend the map subsystem reads records from.
type Store interface {
	Surveys(ctx context.Context) ([]survey.Survey, error)
	Survey(ctx context.Context, id int64) (survey.Survey, error)
	Groups(ctx context.Context, surveyID int64) ([]survey.Group, error)
	Sources(ctx context.Context, surveyID int64) ([]survey.Source, error)
	Layers(ctx context.Context, sourceIDs []int64) ([]survey.Layer, error)
	Layouts(ctx context.Context, surveyID int64) ([]survey.Layout, error)
	Assets(ctx context.Context, surveyID int64) ([]survey.Asset, error)
	Landmarks(ctx context.Context, surveyID int64) ([]survey.Landmark, error)
	View(ctx context.Context) (survey.View, error)
}

// Writer persists survey records.
type Writer interface {
	Put(ctx context.Context, rec Record) error
	PutView(ctx context.Context, v survey.View) error
}

// Record is every row of one survey, as stored in a survey file.
type Record struct {
	Survey    survey.Survey     `json:"survey" yaml:"survey"`
	Groups    []survey.Group    `json:"groups" yaml:"groups"`
	Sources   []survey.Source   `json:"sources" yaml:"sources"`
	Layers    []survey.Layer    `json:"layers" yaml:"layers"`
	Layouts   []survey.Layout   `json:"layouts,omitempty" yaml:"layouts"`
	Assets    []survey.Asset    `json:"assets,omitempty" yaml:"assets"`
	Landmarks []survey.Landmark `json:"landmarks,omitempty" yaml:"landmarks"`
}

// Export reads every record of surveyID from s.
func Export(ctx context.Context, s Store, surveyID int64) (Record, error) {
	var (
		rec Record
		err error
	)
	if rec.Survey, err = s.Survey(ctx, surveyID); err != nil {
		return rec, err
	}
	if rec.Groups, err = s.Groups(ctx, surveyID); err != nil {
		return rec, err
	}
	if rec.Sources, err = s.Sources(ctx, surveyID); err != nil {
		return rec, err
	}
	if rec.Layers, err = s.Layers(ctx, survey.SourceIDs(rec.Sources)); err != nil {
		return rec, err
	}
	if rec.Layouts, err = s.Layouts(ctx, surveyID); err != nil {
		return rec, err
	}
	if rec.Assets, err = s.Assets(ctx, surveyID); err != nil {
		return rec, err
	}
	if rec.Landmarks, err = s.Landmarks(ctx, surveyID); err != nil {
		return rec, err
	}
	return rec, nil
}

// Copy exports every survey and the view from src into dst.
func Copy(ctx context.Context, src Store, dst Writer) (int, error) {
	surveys, err := src.Surveys(ctx)
	if err != nil {
		return 0, err
	}
	for _, sv := range surveys {
		rec, err := Export(ctx, src, sv.ID)
		if err != nil {
			return 0, err
		}
		if err := dst.Put(ctx, rec); err != nil {
			return 0, err
		}
	}
	v, err := src.View(ctx)
	if err != nil {
		return 0, err
	}
	return len(surveys), dst.PutView(ctx, v)
}
