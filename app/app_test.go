package app

import (
	"context"
	"path/filepath"
	"testing"

	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg, err := config.Load(ctx, filepath.Join(t.TempDir(), "none.yaml"), nil)
	require.NoError(t, err)
	cfg.Queue.MaxSize = 2

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Notifier)
	for _, ts := range []string{"2024-06-10T08:00:00Z", "2024-06-10T09:00:00Z", "2024-06-10T10:00:00Z"} {
		_, err := a.Queue.Enqueue(ctx, core.Punch{EmployeeID: "E1", Type: "in", Timestamp: ts})
		require.NoError(t, err)
	}
	stats, err := a.Queue.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)

	res := a.Runner.Tick(ctx)
	assert.Equal(t, push.NothingToDo, res.Outcome)
	assert.ErrorIs(t, res.Err, core.ErrNoSession)
}
