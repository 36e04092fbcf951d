// Package db opens the SQL database backing the survey store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Config holds database configuration.
type Config struct {
	// Driver is "duckdb" or "sqlite".
	Driver string
	// DSN overrides the file derived from DataDir and DBName.
	DSN     string
	DataDir string
	DBName  string
}

func (c Config) dsn() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	dir := filepath.Join(c.DataDir, c.Driver)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", c.Driver, err)
	}
	switch c.Driver {
	case "duckdb":
		return filepath.Join(dir, c.DBName+".duckdb"), nil
	default:
		return filepath.Join(dir, c.DBName+".db"), nil
	}
}

// Open opens a new connection pool and applies the schema.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	switch cfg.Driver {
	case "duckdb", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// a single connection keeps ":memory:" databases shared
		conn.SetMaxOpenConns(1)
	}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS surveys (
		id BIGINT PRIMARY KEY,
		project_id BIGINT,
		name VARCHAR NOT NULL,
		latitude DOUBLE,
		longitude DOUBLE,
		zoom DOUBLE,
		enable_highlight VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS layer_groups (
		id BIGINT PRIMARY KEY,
		survey_id BIGINT NOT NULL,
		name VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		priority INTEGER,
		visibility VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		id BIGINT PRIMARY KEY,
		survey_id BIGINT NOT NULL,
		data_type VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		link VARCHAR,
		priority INTEGER,
		visibility VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS layers (
		id BIGINT PRIMARY KEY,
		source_id BIGINT NOT NULL,
		topo_id BIGINT,
		group_id BIGINT,
		attribute VARCHAR,
		name VARCHAR NOT NULL,
		display_name VARCHAR,
		visibility VARCHAR,
		priority INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS topographies (
		id BIGINT PRIMARY KEY,
		name VARCHAR,
		vector_type VARCHAR,
		color VARCHAR,
		fill_color VARCHAR,
		width DOUBLE,
		fill_opacity DOUBLE,
		radius DOUBLE,
		font_size DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS layouts (
		id BIGINT PRIMARY KEY,
		survey_id BIGINT NOT NULL,
		name VARCHAR,
		link VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS assets (
		id BIGINT PRIMARY KEY,
		survey_id BIGINT NOT NULL,
		name VARCHAR,
		kind VARCHAR,
		url VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS landmarks (
		id BIGINT PRIMARY KEY,
		survey_id BIGINT NOT NULL,
		name VARCHAR,
		category VARCHAR,
		latitude DOUBLE,
		longitude DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS map_styles (
		id BIGINT PRIMARY KEY,
		name VARCHAR,
		url VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT PRIMARY KEY,
		name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS attributes (
		id BIGINT NOT NULL,
		scope VARCHAR NOT NULL,
		attr_key VARCHAR,
		name VARCHAR,
		PRIMARY KEY (scope, id)
	)`,
}

// Migrate creates missing tables.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Tables lists the tables of conn in name order.
func Tables(ctx context.Context, conn *sql.DB, driver string) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`
	if driver == "duckdb" {
		query = `SELECT table_name FROM information_schema.tables ORDER BY table_name`
	}
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
