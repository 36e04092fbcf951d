package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/mapview"
	"github.com/joeblew999/plat-survey/internal/service"
	"github.com/joeblew999/plat-survey/internal/visibility"
)

// apiError maps service and engine errors to Huma status errors.
func apiError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrStale):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, service.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrLoad):
		return huma.Error500InternalServerError("internal server error", err)
	case errors.Is(err, visibility.ErrUnknownToggle),
		errors.Is(err, visibility.ErrUnknownGroup),
		errors.Is(err, visibility.ErrUnknownScheme):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, mapview.ErrNoRenderer):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("internal server error", err)
}
