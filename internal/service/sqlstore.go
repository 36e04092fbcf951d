package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/joeblew999/plat-survey/internal/survey"
)

// SQLStore reads survey records from the tables created by db.Migrate.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func query[T any](ctx context.Context, db *sql.DB, scan func(*sql.Rows) (T, error), q string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const surveyColumns = `id, COALESCE(project_id, 0), name, COALESCE(latitude, 0), COALESCE(longitude, 0), COALESCE(zoom, 0), COALESCE(enable_highlight, '0')`

func scanSurvey(rows *sql.Rows) (survey.Survey, error) {
	var s survey.Survey
	err := rows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Latitude, &s.Longitude, &s.Zoom, &s.EnableHighlight)
	return s, err
}

func (s *SQLStore) Surveys(ctx context.Context) ([]survey.Survey, error) {
	return query(ctx, s.db, scanSurvey, `SELECT `+surveyColumns+` FROM surveys ORDER BY id`)
}

func (s *SQLStore) Survey(ctx context.Context, id int64) (survey.Survey, error) {
	out, err := query(ctx, s.db, scanSurvey, `SELECT `+surveyColumns+` FROM surveys WHERE id = ?`, id)
	if err != nil {
		return survey.Survey{}, err
	}
	if len(out) == 0 {
		return survey.Survey{}, fmt.Errorf("survey %d: %w", id, ErrNotFound)
	}
	return out[0], nil
}

func (s *SQLStore) Groups(ctx context.Context, surveyID int64) ([]survey.Group, error) {
	return query(ctx, s.db, func(rows *sql.Rows) (survey.Group, error) {
		var g survey.Group
		var typ string
		err := rows.Scan(&g.ID, &g.SurveyID, &g.Name, &typ, &g.Priority, &g.Visibility)
		g.Type = survey.ParseGroupType(typ)
		return g, err
	}, `SELECT id, survey_id, name, type, COALESCE(priority, 0), COALESCE(visibility, '0')
		FROM layer_groups WHERE survey_id = ? ORDER BY id`, surveyID)
}

func (s *SQLStore) Sources(ctx context.Context, surveyID int64) ([]survey.Source, error) {
	return query(ctx, s.db, func(rows *sql.Rows) (survey.Source, error) {
		var src survey.Source
		var dt string
		err := rows.Scan(&src.ID, &src.SurveyID, &dt, &src.Name, &src.Link, &src.Priority, &src.Visibility)
		src.DataType = survey.DataType(strings.ToLower(dt))
		return src, err
	}, `SELECT id, survey_id, data_type, name, COALESCE(link, ''), COALESCE(priority, 0), COALESCE(visibility, '0')
		FROM sources WHERE survey_id = ? ORDER BY id`, surveyID)
}

// Layers returns the layers of sourceIDs ordered by source position in
// sourceIDs, then by layer id.
func (s *SQLStore) Layers(ctx context.Context, sourceIDs []int64) ([]survey.Layer, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(sourceIDs))
	for i, id := range sourceIDs {
		args[i] = id
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(sourceIDs)), ",")

	found, err := query(ctx, s.db, func(rows *sql.Rows) (survey.Layer, error) {
		var (
			l   survey.Layer
			vis sql.NullString
		)
		err := rows.Scan(&l.ID, &l.SourceID, &l.TopoID, &l.GroupID, &l.Attribute, &l.Name, &l.DisplayName, &vis, &l.Priority)
		if vis.Valid {
			l.Visibility = survey.NewFlag(survey.ToBool(vis.String))
		}
		return l, err
	}, `SELECT id, source_id, COALESCE(topo_id, 0), COALESCE(group_id, 0), COALESCE(attribute, ''), name,
		COALESCE(display_name, ''), visibility, COALESCE(priority, 0)
		FROM layers WHERE source_id IN (`+marks+`) ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}

	out := make([]survey.Layer, 0, len(found))
	for _, id := range sourceIDs {
		for _, l := range found {
			if l.SourceID == id {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (s *SQLStore) Layouts(ctx context.Context, surveyID int64) ([]survey.Layout, error) {
	return query(ctx, s.db, func(rows *sql.Rows) (survey.Layout, error) {
		var l survey.Layout
		err := rows.Scan(&l.ID, &l.SurveyID, &l.Name, &l.Link)
		return l, err
	}, `SELECT id, survey_id, COALESCE(name, ''), COALESCE(link, '') FROM layouts WHERE survey_id = ? ORDER BY id`, surveyID)
}

func (s *SQLStore) Assets(ctx context.Context, surveyID int64) ([]survey.Asset, error) {
	return query(ctx, s.db, func(rows *sql.Rows) (survey.Asset, error) {
		var a survey.Asset
		err := rows.Scan(&a.ID, &a.SurveyID, &a.Name, &a.Kind, &a.URL)
		return a, err
	}, `SELECT id, survey_id, COALESCE(name, ''), COALESCE(kind, ''), COALESCE(url, '') FROM assets WHERE survey_id = ? ORDER BY id`, surveyID)
}

func (s *SQLStore) Landmarks(ctx context.Context, surveyID int64) ([]survey.Landmark, error) {
	return query(ctx, s.db, func(rows *sql.Rows) (survey.Landmark, error) {
		var l survey.Landmark
		err := rows.Scan(&l.ID, &l.SurveyID, &l.Name, &l.Category, &l.Latitude, &l.Longitude)
		return l, err
	}, `SELECT id, survey_id, COALESCE(name, ''), COALESCE(category, ''), COALESCE(latitude, 0), COALESCE(longitude, 0)
		FROM landmarks WHERE survey_id = ? ORDER BY id`, surveyID)
}

func (s *SQLStore) View(ctx context.Context) (survey.View, error) {
	var (
		v   survey.View
		err error
	)
	v.MapStyles, err = query(ctx, s.db, func(rows *sql.Rows) (survey.MapStyle, error) {
		var m survey.MapStyle
		err := rows.Scan(&m.ID, &m.Name, &m.URL)
		return m, err
	}, `SELECT id, COALESCE(name, ''), COALESCE(url, '') FROM map_styles ORDER BY id`)
	if err != nil {
		return v, err
	}
	v.Categories, err = query(ctx, s.db, func(rows *sql.Rows) (survey.Category, error) {
		var c survey.Category
		err := rows.Scan(&c.ID, &c.Name)
		return c, err
	}, `SELECT id, COALESCE(name, '') FROM categories ORDER BY id`)
	if err != nil {
		return v, err
	}
	v.Topographies, err = query(ctx, s.db, func(rows *sql.Rows) (survey.Topography, error) {
		var t survey.Topography
		var vt string
		err := rows.Scan(&t.ID, &t.Name, &vt, &t.Color, &t.FillColor, &t.Width, &t.FillOpacity, &t.Radius, &t.FontSize)
		t.VectorType = survey.VectorType(strings.ToLower(vt))
		return t, err
	}, `SELECT id, COALESCE(name, ''), COALESCE(vector_type, ''), COALESCE(color, ''), COALESCE(fill_color, ''),
		COALESCE(width, 0), COALESCE(fill_opacity, 0), COALESCE(radius, 0), COALESCE(font_size, 0)
		FROM topographies ORDER BY id`)
	if err != nil {
		return v, err
	}
	attrs := func(scope string) ([]survey.Attribute, error) {
		return query(ctx, s.db, func(rows *sql.Rows) (survey.Attribute, error) {
			var a survey.Attribute
			err := rows.Scan(&a.ID, &a.Key, &a.Name)
			return a, err
		}, `SELECT id, COALESCE(attr_key, ''), COALESCE(name, '') FROM attributes WHERE scope = ? ORDER BY id`, scope)
	}
	if v.LayoutAttributes, err = attrs("layout"); err != nil {
		return v, err
	}
	v.PlotAttributes, err = attrs("plot")
	return v, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func flagArg(f *survey.Flag) any {
	if f == nil {
		return nil
	}
	return strings.ToLower(fmt.Sprint(bool(*f)))
}

// Put upserts every row of rec in one transaction.
func (s *SQLStore) Put(ctx context.Context, rec Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	sv := rec.Survey
	if err = exec(ctx, tx, `INSERT OR REPLACE INTO surveys VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sv.ID, sv.ProjectID, sv.Name, sv.Latitude, sv.Longitude, sv.Zoom, flagArg(&sv.EnableHighlight)); err != nil {
		return err
	}
	for _, g := range rec.Groups {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO layer_groups VALUES (?, ?, ?, ?, ?, ?)`,
			g.ID, sv.ID, g.Name, string(g.Type), g.Priority, flagArg(&g.Visibility)); err != nil {
			return err
		}
	}
	for _, src := range rec.Sources {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO sources VALUES (?, ?, ?, ?, ?, ?, ?)`,
			src.ID, sv.ID, string(src.DataType), src.Name, src.Link, src.Priority, flagArg(&src.Visibility)); err != nil {
			return err
		}
	}
	for _, l := range rec.Layers {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO layers VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.SourceID, l.TopoID, l.GroupID, l.Attribute, l.Name, l.DisplayName, flagArg(l.Visibility), l.Priority); err != nil {
			return err
		}
	}
	for _, l := range rec.Layouts {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO layouts VALUES (?, ?, ?, ?)`, l.ID, sv.ID, l.Name, l.Link); err != nil {
			return err
		}
	}
	for _, a := range rec.Assets {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO assets VALUES (?, ?, ?, ?, ?)`, a.ID, sv.ID, a.Name, a.Kind, a.URL); err != nil {
			return err
		}
	}
	for _, l := range rec.Landmarks {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO landmarks VALUES (?, ?, ?, ?, ?, ?)`,
			l.ID, sv.ID, l.Name, l.Category, l.Latitude, l.Longitude); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PutView upserts the lookup lists.
func (s *SQLStore) PutView(ctx context.Context, v survey.View) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, m := range v.MapStyles {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO map_styles VALUES (?, ?, ?)`, m.ID, m.Name, m.URL); err != nil {
			return err
		}
	}
	for _, c := range v.Categories {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO categories VALUES (?, ?)`, c.ID, c.Name); err != nil {
			return err
		}
	}
	for _, t := range v.Topographies {
		if err = exec(ctx, tx, `INSERT OR REPLACE INTO topographies VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Name, string(t.VectorType), t.Color, t.FillColor, t.Width, t.FillOpacity, t.Radius, t.FontSize); err != nil {
			return err
		}
	}
	for scope, list := range map[string][]survey.Attribute{"layout": v.LayoutAttributes, "plot": v.PlotAttributes} {
		for _, a := range list {
			if err = exec(ctx, tx, `INSERT OR REPLACE INTO attributes VALUES (?, ?, ?, ?)`, a.ID, scope, a.Key, a.Name); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func exec(ctx context.Context, e execer, q string, args ...any) error {
	_, err := e.ExecContext(ctx, q, args...)
	return err
}
