package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-survey/internal/config"
)

func TestLoadLinksBundle(t *testing.T) {
	svc := NewSurveyService(newMemStore(record(1)), nil)

	b, err := svc.Load(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, b.Sources, 2)
	plots := b.Sources[1]
	require.Len(t, plots.Layers, 3)
	assert.Equal(t, "Roads", plots.Layers[0].Group.Name)
	assert.Equal(t, "#000000", plots.Layers[0].Topography.Color)
	assert.True(t, plots.Layers[1].Visible(), "seeded from the group")
	assert.False(t, plots.Layers[2].Visible(), "own flag kept")
	assert.Len(t, b.Layouts, 1)
	assert.Len(t, b.Assets, 1)
	assert.Len(t, b.Landmarks, 1)
	assert.Len(t, b.View.Topographies, 2)
}

func TestLoadMemoisesPerKey(t *testing.T) {
	store := newMemStore(record(1), record(2))
	svc := NewSurveyService(store, nil)
	ctx := context.Background()

	_, err := svc.Load(ctx, 1)
	require.NoError(t, err)
	first := store.calls.Load()
	assert.Equal(t, int64(8), first)

	b1, err := svc.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first, store.calls.Load())

	// the view is shared across surveys
	_, err = svc.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, first+7, store.calls.Load())

	// cached records are relinked, not shared
	b2, err := svc.Load(ctx, 1)
	require.NoError(t, err)
	assert.NotSame(t, b1.Sources[1], b2.Sources[1])
}

func TestLoadAbortsOnAnyFailure(t *testing.T) {
	for _, step := range []string{"survey", "groups", "sources", "layers", "layouts", "assets", "landmarks", "view"} {
		t.Run(step, func(t *testing.T) {
			store := newMemStore(record(1))
			store.failOn = step
			b, err := NewSurveyService(store, nil).Load(context.Background(), 1)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, ErrLoad)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestLoadFailureIsNotCached(t *testing.T) {
	store := newMemStore(record(1))
	store.failOn = "layers"
	svc := NewSurveyService(store, nil)

	_, err := svc.Load(context.Background(), 1)
	require.Error(t, err)

	store.failOn = ""
	_, err = svc.Load(context.Background(), 1)
	assert.NoError(t, err)
}

func TestLoadUnknownSurvey(t *testing.T) {
	_, err := NewSurveyService(newMemStore(), nil).Load(context.Background(), 5)
	assert.ErrorIs(t, err, ErrLoad)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapConfig(t *testing.T) {
	b, err := NewSurveyService(newMemStore(record(1)), nil).Load(context.Background(), 1)
	require.NoError(t, err)

	defaults := config.Map{StreetURL: "https://styles/street.json", Zoom: 12, MinZoom: 3, MaxZoom: 20}
	cfg := MapConfig(b, defaults)
	assert.Equal(t, 15.0, cfg.Zoom)
	assert.Equal(t, "https://styles/street.json", cfg.StreetURL)
	assert.True(t, cfg.EnableHighlight)
	assert.Equal(t, 77.6, cfg.Center().Lon())

	b.Survey.Zoom = 0
	assert.Equal(t, 12.0, MapConfig(b, defaults).Zoom)
	assert.NotSame(t, cfg, MapConfig(b, defaults))
}
