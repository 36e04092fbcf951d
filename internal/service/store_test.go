package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-survey/internal/db"
	"github.com/joeblew999/plat-survey/internal/survey"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Put(ctx, record(1)))
	require.NoError(t, fs.PutView(ctx, view()))

	reloaded, err := NewFileStore(dir)
	require.NoError(t, err)

	surveys, err := reloaded.Surveys(ctx)
	require.NoError(t, err)
	require.Len(t, surveys, 1)
	assert.True(t, bool(surveys[0].EnableHighlight))

	rec, err := Export(ctx, reloaded, 1)
	require.NoError(t, err)
	assert.Equal(t, record(1), rec)

	v, err := reloaded.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, view(), v)

	_, err = reloaded.Survey(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreReadsYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "surveys"), 0755))
	data := []byte(`
survey: {id: 7, name: Hilltop, latitude: 1, longitude: 2, enableHighlight: "1"}
groups:
  - {id: 1, name: Facing, type: by-category, visibility: "true"}
sources:
  - {id: 1, dataType: Raster, name: ortho, visibility: "0"}
  - {id: 2, dataType: vector, name: plots}
layers:
  - {id: 1, sourceId: 2, groupId: 1, name: East, attribute: facing}
  - {id: 2, sourceId: 2, groupId: 1, name: West, attribute: facing, visibility: 0}
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "surveys", "7.yaml"), data, 0644))

	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	sv, err := fs.Survey(ctx, 7)
	require.NoError(t, err)
	assert.True(t, bool(sv.EnableHighlight))

	groups, err := fs.Groups(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, survey.GroupViewByClassification, groups[0].Type)
	assert.True(t, bool(groups[0].Visibility))

	sources, err := fs.Sources(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, survey.Raster, sources[0].DataType)
	assert.False(t, bool(sources[0].Visibility))

	ls, err := fs.Layers(ctx, []int64{2})
	require.NoError(t, err)
	require.Len(t, ls, 2)
	assert.Nil(t, ls[0].Visibility)
	require.NotNil(t, ls[1].Visibility)
	assert.False(t, bool(*ls[1].Visibility))
}

func TestFileStoreRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "surveys"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "surveys", "1.json"), []byte("{"), 0644))
	_, err := NewFileStore(dir)
	assert.Error(t, err)
}

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	conn, err := db.Open(context.Background(), db.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewSQLStore(conn)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)

	require.NoError(t, st.Put(ctx, record(1)))
	require.NoError(t, st.Put(ctx, record(2)))
	require.NoError(t, st.PutView(ctx, view()))

	rec, err := Export(ctx, st, 2)
	require.NoError(t, err)
	assert.Equal(t, record(2), rec)

	v, err := st.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, view(), v)

	surveys, err := st.Surveys(ctx)
	require.NoError(t, err)
	assert.Len(t, surveys, 2)

	_, err = st.Survey(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	ls, err := st.Layers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ls)
}

func TestSQLStoreLayersFollowSourceOrder(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)
	require.NoError(t, st.Put(ctx, record(1)))
	require.NoError(t, st.Put(ctx, record(2)))

	ls, err := st.Layers(ctx, []int64{202, 102})
	require.NoError(t, err)
	require.Len(t, ls, 6)
	assert.Equal(t, int64(202), ls[0].SourceID)
	assert.Equal(t, int64(102), ls[5].SourceID)
}

func TestCopyFileStoreToSQL(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.Put(ctx, record(3)))
	require.NoError(t, fs.PutView(ctx, view()))

	st := openSQLite(t)
	n, err := Copy(ctx, fs, st)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := Export(ctx, st, 3)
	require.NoError(t, err)
	assert.Equal(t, record(3), rec)
}
