package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-survey/internal/mapview"
	"github.com/joeblew999/plat-survey/internal/service"
	"github.com/joeblew999/plat-survey/internal/toggle"
)

type ViewsOutput struct {
	Body []service.Snapshot
}

type OpenViewInput struct {
	Body struct {
		SurveyID int64 `json:"surveyId" minimum:"1" doc:"Survey to open" example:"1"`
	}
}

type OpenViewOutput struct {
	Location string `header:"Location" doc:"URL of the new view"`
	Body     service.Snapshot
}

type SwitchSurveyInput struct {
	ViewIDInput
	Body struct {
		SurveyID int64 `json:"surveyId" minimum:"1" doc:"Survey to switch to" example:"2"`
	}
}

type SwitchBaseInput struct {
	ViewIDInput
	Body struct {
		Base mapview.BaseStyle `json:"base" enum:"street,satellite" doc:"Base map style"`
	}
}

type StyleOutput struct {
	ETag  string `header:"ETag" doc:"Session revision of the document"`
	Cache string `header:"X-Cache" doc:"HIT when served from the style cache"`
	Body  mapview.Document
}

type ToggleInput struct {
	ViewIDInput
	Body struct {
		ID      string        `json:"id" doc:"Toggle ID" example:"East"`
		Checked bool          `json:"checked" doc:"New checked state"`
		Scheme  toggle.Scheme `json:"groupType" enum:"GLOBAL,CLASSIC,VIEW_BY_CLASSIFICATION,FILTER" doc:"Scheme the toggle belongs to"`
	}
}

type GroupInput struct {
	ViewIDInput
	Body struct {
		Scheme  toggle.Scheme `json:"groupType" enum:"CLASSIC,VIEW_BY_CLASSIFICATION,FILTER" doc:"Scheme of the group"`
		Group   string        `json:"group" doc:"Group name" example:"Facing"`
		Checked bool          `json:"checked" doc:"New checked state for every toggle in the group"`
	}
}

type CategoryInput struct {
	ViewIDInput
	Body struct {
		Category string `json:"category" doc:"Classification group to show" example:"Facing"`
	}
}

type SchemeInput struct {
	ViewIDInput
	Body struct {
		Scheme toggle.Scheme `json:"groupType" enum:"GLOBAL,CLASSIC,VIEW_BY_CLASSIFICATION,FILTER" doc:"Scheme to display"`
	}
}

type ClickInput struct {
	ViewIDInput
	Body struct {
		Layer      string              `json:"layer" doc:"Engine layer ID that was clicked"`
		Feature    *mapview.FeatureRef `json:"feature,omitempty" doc:"Clicked feature"`
		Properties map[string]any      `json:"properties,omitempty" doc:"Feature properties"`
		Lng        float64             `json:"lng,omitempty" doc:"Click longitude"`
		Lat        float64             `json:"lat,omitempty" doc:"Click latitude"`
	}
}

type HoverInput struct {
	ViewIDInput
	Body struct {
		Layer string `json:"layer,omitempty" doc:"Engine layer ID under the pointer; empty when the pointer left it"`
	}
}

func (h *APIHandler) views() (*service.ViewService, error) {
	if h.svc == nil || h.svc.Views == nil {
		return nil, huma.Error503ServiceUnavailable("view service not available")
	}
	return h.svc.Views, nil
}

func (h *APIHandler) update(u service.Update, err error) (*UpdateOutput, error) {
	if err != nil {
		return nil, apiError(err)
	}
	return &UpdateOutput{Body: u}, nil
}

func (h *APIHandler) ListViews(ctx context.Context, input *struct{}) (*ViewsOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	return &ViewsOutput{Body: v.List()}, nil
}

func (h *APIHandler) OpenView(ctx context.Context, input *OpenViewInput) (*OpenViewOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	snap, err := v.Open(ctx, input.Body.SurveyID)
	if err != nil {
		return nil, apiError(err)
	}
	return &OpenViewOutput{Location: "/api/v1/views/" + snap.ID, Body: snap}, nil
}

func (h *APIHandler) GetView(ctx context.Context, input *ViewIDInput) (*SnapshotOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	snap, err := v.Get(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &SnapshotOutput{Body: snap}, nil
}

func (h *APIHandler) CloseView(ctx context.Context, input *ViewIDInput) (*struct{ Body MessageBody }, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	if err := v.Close(input.ID); err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "View closed"}}, nil
}

func (h *APIHandler) SwitchSurvey(ctx context.Context, input *SwitchSurveyInput) (*SnapshotOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	snap, err := v.SwitchSurvey(ctx, input.ID, input.Body.SurveyID)
	if err != nil {
		return nil, apiError(err)
	}
	return &SnapshotOutput{Body: snap}, nil
}

func (h *APIHandler) SwitchBase(ctx context.Context, input *SwitchBaseInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	return h.update(v.BaseStyle(input.ID, input.Body.Base))
}

// GetStyle returns the style document the session's engine holds.
func (h *APIHandler) GetStyle(ctx context.Context, input *ViewIDInput) (*StyleOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	rev, err := v.Revision(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	if doc, ok := h.svc.Styles.Get(input.ID, rev); ok {
		return &StyleOutput{ETag: etag(rev), Cache: "HIT", Body: doc}, nil
	}
	doc, rev, err := v.Style(input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	h.svc.Styles.Set(input.ID, rev, doc)
	return &StyleOutput{ETag: etag(rev), Cache: "MISS", Body: doc}, nil
}

func etag(rev int64) string {
	return strconv.Quote(fmt.Sprintf("r%d", rev))
}

func (h *APIHandler) ToggleLayer(ctx context.Context, input *ToggleInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	t := toggle.Toggle{
		ID:      input.Body.ID,
		Checked: input.Body.Checked,
		Meta:    toggle.Meta{Scheme: input.Body.Scheme},
	}
	return h.update(v.Toggle(input.ID, t))
}

func (h *APIHandler) ToggleGroup(ctx context.Context, input *GroupInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	return h.update(v.Group(input.ID, input.Body.Scheme, input.Body.Group, input.Body.Checked))
}

func (h *APIHandler) ChangeCategory(ctx context.Context, input *CategoryInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	return h.update(v.Category(input.ID, input.Body.Category))
}

func (h *APIHandler) ChangeScheme(ctx context.Context, input *SchemeInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	return h.update(v.Scheme(input.ID, input.Body.Scheme))
}

func (h *APIHandler) ResetToggles(ctx context.Context, input *SchemeInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	return h.update(v.Reset(input.ID, input.Body.Scheme))
}

// Click forwards a map click, updating the highlighted feature.
func (h *APIHandler) Click(ctx context.Context, input *ClickInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	ev := mapview.Event{
		Layer:      input.Body.Layer,
		Feature:    input.Body.Feature,
		Properties: input.Body.Properties,
		LngLat:     orb.Point{input.Body.Lng, input.Body.Lat},
	}
	return h.update(v.Click(input.ID, ev))
}

// Hover reports the layer under the pointer.
func (h *APIHandler) Hover(ctx context.Context, input *HoverInput) (*UpdateOutput, error) {
	v, err := h.views()
	if err != nil {
		return nil, err
	}
	return h.update(v.Hover(input.ID, input.Body.Layer))
}
