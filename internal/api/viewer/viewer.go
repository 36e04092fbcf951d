// Package viewer streams view session changes to a Datastar front end and
// accepts transitions as Datastar signals.
package viewer

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/humastar"
	"github.com/joeblew999/plat-survey/internal/service"
	"github.com/joeblew999/plat-survey/internal/toggle"
)

// Handler serves the Datastar endpoints of a view session.
type Handler struct {
	humastar.Handler
	views  *service.ViewService
	logger *slog.Logger
}

// New creates a viewer handler.
func New(views *service.ViewService, logger *slog.Logger) *Handler {
	return &Handler{views: views, logger: logger}
}

func (h *Handler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/views/{id}/events", h.Events,
		huma.OperationTags("viewer"),
	)
	huma.Post(api, "/api/v1/views/{id}/signals/toggle", h.Toggle,
		huma.OperationTags("viewer"),
	)
	huma.Post(api, "/api/v1/views/{id}/signals/group", h.Group,
		huma.OperationTags("viewer"),
	)
	huma.Post(api, "/api/v1/views/{id}/signals/scheme", h.Scheme,
		huma.OperationTags("viewer"),
	)
}

type ViewInput struct {
	ID string `path:"id" doc:"View session ID"`
}

type SignalsInput struct {
	ViewInput
	humastar.SignalsInput
}

func stateSignals(snap service.Snapshot) map[string]any {
	return map[string]any{
		"view":     snap.ID,
		"survey":   snap.SurveyID,
		"revision": snap.Revision,
		"base":     snap.Base,
		"state":    snap.State,
		"skipped":  len(snap.Skipped),
		"hovered":  snap.Hovered,
	}
}

// Events streams one message per session change until the client goes away
// or the session closes.
func (h *Handler) Events(ctx context.Context, input *ViewInput) (*huma.StreamResponse, error) {
	if _, err := h.views.Get(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return h.Stream(func(sse humastar.SSE) {
		bus := h.views.Bus()
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		snap, err := h.views.Get(input.ID)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		if err := sse.Signals(stateSignals(snap)); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if ev.Session != input.ID {
					continue
				}
				if ev.Action == "closed" {
					sse.Signals(map[string]any{"closed": true})
					return
				}
				signals := map[string]any{"action": ev.Action, "revision": ev.Revision}
				if !ev.Batch.Empty() {
					signals["batch"] = ev.Batch
				}
				if snap, err := h.views.Get(input.ID); err == nil {
					signals["state"] = snap.State
					signals["base"] = snap.Base
					signals["hovered"] = snap.Hovered
				}
				if err := sse.Signals(signals); err != nil {
					h.log().Debug("event stream ended", "session", input.ID, "error", err)
					return
				}
				sse.Patch(strconv.FormatInt(ev.Revision, 10), "#view-revision")
			}
		}
	}), nil
}

// reply streams the outcome of one transition back as signals.
func (h *Handler) reply(action string, u service.Update, err error) *huma.StreamResponse {
	return h.Stream(func(sse humastar.SSE) {
		if err != nil {
			if !errors.Is(err, service.ErrNotFound) {
				h.log().Warn("transition rejected", "action", action, "error", err)
			}
			sse.Error(err.Error())
			return
		}
		if err := sse.Signals(map[string]any{"revision": u.Revision, "batch": u.Batch}); err != nil {
			return
		}
		sse.Success(action + " applied")
	})
}

func (h *Handler) reject(msg string) *huma.StreamResponse {
	return h.Stream(func(sse humastar.SSE) { sse.Error(msg) })
}

// Toggle reads the toggleid, checked and grouptype signals.
func (h *Handler) Toggle(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Decode()
	if err != nil {
		return nil, err
	}
	id := signals.String("toggleid")
	if id == "" {
		return h.reject("toggleid is required"), nil
	}
	if !signals.Has("checked") {
		return h.reject("checked is required"), nil
	}
	t := toggle.Toggle{
		ID:      id,
		Checked: signals.Bool("checked"),
		Meta:    toggle.Meta{Scheme: toggle.Scheme(signals.String("grouptype"))},
	}
	u, err := h.views.Toggle(input.ID, t)
	return h.reply("toggle", u, err), nil
}

// Group reads the group, checked and grouptype signals.
func (h *Handler) Group(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Decode()
	if err != nil {
		return nil, err
	}
	if !signals.Has("checked") {
		return h.reject("checked is required"), nil
	}
	scheme := toggle.Scheme(signals.String("grouptype"))
	u, err := h.views.Group(input.ID, scheme, signals.String("group"), signals.Bool("checked"))
	return h.reply("group", u, err), nil
}

// Scheme reads the grouptype signal.
func (h *Handler) Scheme(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Decode()
	if err != nil {
		return nil, err
	}
	u, err := h.views.Scheme(input.ID, toggle.Scheme(signals.String("grouptype")))
	return h.reply("scheme", u, err), nil
}
