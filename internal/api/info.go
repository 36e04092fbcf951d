package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	driver  string
	dataDir string
	views   func() int
}

// NewInfoHandler reports the store driver, data directory and, when views is
// non-nil, the number of open view sessions.
func NewInfoHandler(driver, dataDir string, views func() int) *InfoHandler {
	return &InfoHandler{driver: driver, dataDir: dataDir, views: views}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Store    string   `json:"store" doc:"Survey store driver" example:"file"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Views    int      `json:"views" doc:"Open view sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	n := 0
	if h.views != nil {
		n = h.views()
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-survey",
		Version:  "0.1.0",
		Store:    h.driver,
		DataDir:  h.dataDir,
		Views:    n,
		Features: []string{"layers", "toggles", "filters", "highlight", "landmarks", "sse"},
	}}, nil
}
