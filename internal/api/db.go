package api

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-survey/internal/db"
)

// DBHandler handles database-related endpoints.
type DBHandler struct {
	db     *sql.DB
	driver string
}

// NewDBHandler creates a new database handler.
func NewDBHandler(conn *sql.DB, driver string) *DBHandler {
	return &DBHandler{db: conn, driver: driver}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Get(api, "/api/v1/tables/{name}", h.CountRows, huma.OperationTags("db"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Driver string   `json:"driver" doc:"SQL driver" example:"sqlite"`
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all tables of the survey database.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	tables, err := db.Tables(ctx, h.db, h.driver)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	out := &TablesOutput{}
	out.Body.Driver = h.driver
	out.Body.Tables = tables
	return out, nil
}

type TableInput struct {
	Name string `path:"name" doc:"Table name" example:"layers"`
}

type CountOutput struct {
	Body struct {
		Table string `json:"table" doc:"Table name"`
		Rows  int64  `json:"rows" doc:"Number of rows"`
	}
}

// CountRows returns the row count of one table. Only existing tables are
// accepted, so the name is safe to interpolate.
func (h *DBHandler) CountRows(ctx context.Context, input *TableInput) (*CountOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	tables, err := db.Tables(ctx, h.db, h.driver)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	if !slices.Contains(tables, input.Name) {
		return nil, huma.Error404NotFound("table not found")
	}

	out := &CountOutput{}
	out.Body.Table = input.Name
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", input.Name)
	if err := h.db.QueryRowContext(ctx, q).Scan(&out.Body.Rows); err != nil {
		return nil, huma.Error500InternalServerError("Failed to count rows", err)
	}
	return out, nil
}
