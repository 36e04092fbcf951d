package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/layers"
	"github.com/joeblew999/plat-survey/internal/service"
	"github.com/joeblew999/plat-survey/internal/survey"
	"github.com/joeblew999/plat-survey/internal/toggle"
)

type SurveysOutput struct {
	Body []survey.Survey
}

type BundleOutput struct {
	Body *survey.Bundle
}

type SourcesOutput struct {
	Body []*survey.Source
}

type LayersOutput struct {
	Body layers.Result
}

type TogglesOutput struct {
	Body toggle.State
}

func (h *APIHandler) surveys() (*service.SurveyService, error) {
	if h.svc == nil || h.svc.Surveys == nil {
		return nil, huma.Error503ServiceUnavailable("survey service not available")
	}
	return h.svc.Surveys, nil
}

func (h *APIHandler) load(ctx context.Context, id int64) (*survey.Bundle, error) {
	s, err := h.surveys()
	if err != nil {
		return nil, err
	}
	b, err := s.Load(ctx, id)
	if err != nil {
		return nil, apiError(err)
	}
	return b, nil
}

func (h *APIHandler) ListSurveys(ctx context.Context, input *struct{}) (*SurveysOutput, error) {
	s, err := h.surveys()
	if err != nil {
		return nil, err
	}
	list, err := s.Surveys(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	if list == nil {
		list = []survey.Survey{}
	}
	return &SurveysOutput{Body: list}, nil
}

func (h *APIHandler) GetSurvey(ctx context.Context, input *SurveyIDInput) (*BundleOutput, error) {
	b, err := h.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BundleOutput{Body: b}, nil
}

func (h *APIHandler) GetSurveySources(ctx context.Context, input *SurveyIDInput) (*SourcesOutput, error) {
	b, err := h.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	sources := b.Sources
	if sources == nil {
		sources = []*survey.Source{}
	}
	return &SourcesOutput{Body: sources}, nil
}

// GetSurveyLayers returns the layer pipeline a view of the survey would
// commit, including the entries that were skipped.
func (h *APIHandler) GetSurveyLayers(ctx context.Context, input *SurveyIDInput) (*LayersOutput, error) {
	b, err := h.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	cfg := service.MapConfig(b, h.svc.Map)
	res := layers.Build(cfg.Sources, layers.Options{
		EnableHighlight: cfg.EnableHighlight,
		HighlightColor:  h.svc.Map.HighlightColor,
		LabelField:      h.svc.Map.LabelField,
	})
	return &LayersOutput{Body: res}, nil
}

// GetSurveyToggles returns the initial toggle state of the survey.
func (h *APIHandler) GetSurveyToggles(ctx context.Context, input *SurveyIDInput) (*TogglesOutput, error) {
	b, err := h.load(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &TogglesOutput{Body: toggle.Classify(b.Sources)}, nil
}
