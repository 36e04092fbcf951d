package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/humastar"
	"github.com/joeblew999/plat-survey/internal/service"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/surveys>; rel="surveys"`,
		`</api/v1/views>; rel="views"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/surveys>; rel="surveys"`,
	},
	"/api/v1/surveys": {
		`</api/v1/views>; rel="views"`,
	},
	"/api/v1/surveys/{id}": {
		`</api/v1/surveys>; rel="collection"`,
	},
	"/api/v1/surveys/{id}/sources": {
		`</api/v1/surveys>; rel="up"`,
	},
	"/api/v1/surveys/{id}/layers": {
		`</api/v1/surveys>; rel="up"`,
	},
	"/api/v1/surveys/{id}/toggles": {
		`</api/v1/surveys>; rel="up"`,
	},
	"/api/v1/views": {
		`</api/v1/surveys>; rel="surveys"`,
	},
	"/api/v1/views/{id}": {
		`</api/v1/views>; rel="collection"`,
	},
	"/api/v1/views/{id}/style": {
		`</api/v1/views>; rel="up"`,
	},
	"/api/v1/tables": {
		`</api/v1/info>; rel="info"`,
	},
}

// viewActions are the transitions a view session accepts.
var viewActions = []humastar.ActionDef{
	{Rel: "toggle", Pattern: "/api/v1/views/%s/toggles", Method: "POST", Title: "Toggle a layer"},
	{Rel: "group", Pattern: "/api/v1/views/%s/groups", Method: "POST", Title: "Toggle a group"},
	{Rel: "category", Pattern: "/api/v1/views/%s/category", Method: "POST", Title: "Change category"},
	{Rel: "scheme", Pattern: "/api/v1/views/%s/scheme", Method: "POST", Title: "Change scheme"},
	{Rel: "reset", Pattern: "/api/v1/views/%s/reset", Method: "POST", Title: "Reset toggles"},
	{Rel: "style", Pattern: "/api/v1/views/%s/style", Method: "GET", Title: "Style document"},
	{Rel: "events", Pattern: "/api/v1/views/%s/events", Method: "GET", Title: "Event stream"},
	{Rel: "delete", Pattern: "/api/v1/views/%s", Method: "DELETE", Title: "Close view"},
}

func sessionOf(v any) string {
	switch b := v.(type) {
	case service.Snapshot:
		return b.ID
	case service.Update:
		return b.ID
	}
	return ""
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if id := sessionOf(v); id != "" {
			for _, a := range humastar.ActionsFor(id, viewActions) {
				ctx.AppendHeader("Link", a.LinkHeader())
			}
		}

		return v, nil
	}
}
