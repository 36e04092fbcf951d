// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/config"
	"github.com/joeblew999/plat-survey/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Surveys *service.SurveyService
	Views   *service.ViewService
	Styles  *StyleCache
	Map     config.Map
}

// Types

type SurveyIDInput struct {
	ID int64 `path:"id" doc:"Survey ID" example:"1"`
}

type ViewIDInput struct {
	ID string `path:"id" doc:"View session ID" example:"5b1c0c3e-8f51-4bd4-9d8e-7b9c1c3f7a20"`
}

type SnapshotOutput struct {
	Body service.Snapshot
}

type UpdateOutput struct {
	Body service.Update
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterSurveys registers read-only survey routes.
func (h *APIHandler) RegisterSurveys(api huma.API) {
	huma.Get(api, "/api/v1/surveys", h.ListSurveys, huma.OperationTags("surveys"))
	huma.Get(api, "/api/v1/surveys/{id}", h.GetSurvey, huma.OperationTags("surveys"))
	huma.Get(api, "/api/v1/surveys/{id}/sources", h.GetSurveySources, huma.OperationTags("surveys"))
	huma.Get(api, "/api/v1/surveys/{id}/layers", h.GetSurveyLayers, huma.OperationTags("surveys"))
	huma.Get(api, "/api/v1/surveys/{id}/toggles", h.GetSurveyToggles, huma.OperationTags("surveys"))
}

// RegisterViews registers view session routes.
func (h *APIHandler) RegisterViews(api huma.API) {
	huma.Get(api, "/api/v1/views", h.ListViews, huma.OperationTags("views"))
	huma.Post(api, "/api/v1/views", h.OpenView, huma.OperationTags("views"), func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})
	huma.Get(api, "/api/v1/views/{id}", h.GetView, huma.OperationTags("views"))
	huma.Delete(api, "/api/v1/views/{id}", h.CloseView, huma.OperationTags("views"))
	huma.Put(api, "/api/v1/views/{id}/survey", h.SwitchSurvey, huma.OperationTags("views"))
	huma.Put(api, "/api/v1/views/{id}/base", h.SwitchBase, huma.OperationTags("views"))
	huma.Get(api, "/api/v1/views/{id}/style", h.GetStyle, huma.OperationTags("views"))
}

// RegisterTransitions registers the visibility transition routes.
func (h *APIHandler) RegisterTransitions(api huma.API) {
	huma.Post(api, "/api/v1/views/{id}/toggles", h.ToggleLayer, huma.OperationTags("transitions"))
	huma.Post(api, "/api/v1/views/{id}/groups", h.ToggleGroup, huma.OperationTags("transitions"))
	huma.Post(api, "/api/v1/views/{id}/category", h.ChangeCategory, huma.OperationTags("transitions"))
	huma.Post(api, "/api/v1/views/{id}/scheme", h.ChangeScheme, huma.OperationTags("transitions"))
	huma.Post(api, "/api/v1/views/{id}/reset", h.ResetToggles, huma.OperationTags("transitions"))
	huma.Post(api, "/api/v1/views/{id}/click", h.Click, huma.OperationTags("transitions"))
	huma.Post(api, "/api/v1/views/{id}/hover", h.Hover, huma.OperationTags("transitions"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}
