package push

import (
	"context"
	"testing"
	"time"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSession struct {
	sess *core.Session
}

func (f fixedSession) Current(context.Context) (*core.Session, error) {
	if f.sess == nil {
		return nil, core.ErrNoSession
	}
	return f.sess, nil
}

func TestRunnerSettings(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	r := NewRunner(nil, fixedSession{}, store, Options{BatchSize: 20, MaxRetries: 3}, 10*time.Minute)

	freq, opts := r.Settings(ctx)
	assert.Equal(t, 10*time.Minute, freq)
	assert.Equal(t, 20, opts.BatchSize)

	require.NoError(t, store.Set(ctx, kvstore.KeyPushFrequency, "2"))
	require.NoError(t, store.Set(ctx, kvstore.KeyBatchSize, "7"))
	freq, opts = r.Settings(ctx)
	assert.Equal(t, 2*time.Minute, freq)
	assert.Equal(t, 7, opts.BatchSize)
	assert.Equal(t, 3, opts.MaxRetries)

	// garbage falls back to the configured values
	require.NoError(t, store.Set(ctx, kvstore.KeyPushFrequency, "often"))
	require.NoError(t, store.Set(ctx, kvstore.KeyBatchSize, "-1"))
	freq, opts = r.Settings(ctx)
	assert.Equal(t, 10*time.Minute, freq)
	assert.Equal(t, 20, opts.BatchSize)
}

func TestRunnerTick(t *testing.T) {
	f := newFixture(t, &stubERP{})
	f.enqueue(t, 3)
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), kvstore.KeyBatchSize, "2"))

	idle := NewRunner(f.sched, fixedSession{}, store, Options{MaxRetries: 1}, time.Minute)
	res := idle.Tick(context.Background())
	assert.Equal(t, NothingToDo, res.Outcome)
	assert.ErrorIs(t, res.Err, core.ErrNoSession)
	assert.Equal(t, 0, f.stub.attempts())

	r := NewRunner(f.sched, fixedSession{sess: f.sess}, store, Options{MaxRetries: 1}, time.Minute)
	res = r.Tick(context.Background())
	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, 2, res.Uploaded)
}

func TestRunnerStopsWithContext(t *testing.T) {
	r := NewRunner(nil, fixedSession{}, kvstore.NewMemoryStore(), Options{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}
