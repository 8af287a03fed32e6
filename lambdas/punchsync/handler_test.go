package main

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/ingest"
	"axiapac.com/punchsync/kvstore"
	"axiapac.com/punchsync/push"
	"axiapac.com/punchsync/queue"
	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBucket struct {
	files map[string]string
	moved map[string]string
}

func (b *memoryBucket) ReadFile(_ context.Context, key string, w io.Writer) error {
	body, ok := b.files[key]
	if !ok {
		return errors.New("no such key")
	}
	_, err := io.Copy(w, strings.NewReader(body))
	return err
}

func (b *memoryBucket) ListFiles(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range b.files {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *memoryBucket) MoveFile(_ context.Context, key, dest string) error {
	b.files[dest] = b.files[key]
	delete(b.files, key)
	b.moved[key] = dest
	return nil
}

type fakeTicker struct {
	result push.Result
	calls  int
}

func (f *fakeTicker) Tick(context.Context) push.Result {
	f.calls++
	return f.result
}

const export = "employee_id,timestamp,type\nE1,2024-06-10 08:00:00,in\nE2,2024-06-10 17:00:00,out\n"

func newHandler(bucket *memoryBucket, ticker *fakeTicker, cfg config.IngestConfig) (*Handler, *queue.Queue) {
	q := queue.New(kvstore.NewMemoryStore())
	return &Handler{
		runner:   ticker,
		queue:    q,
		importer: ingest.NewImporter(0),
		ingest:   cfg,
		open: func(_ context.Context, name string) (Bucket, error) {
			if name != "exports" {
				return nil, errors.New("unknown bucket")
			}
			return bucket, nil
		},
	}, q
}

func TestHandlePush(t *testing.T) {
	ticker := &fakeTicker{result: push.Result{Outcome: push.Success, Uploaded: 3, Attempts: 1}}
	h, _ := newHandler(&memoryBucket{}, ticker, config.IngestConfig{})

	resp, err := h.Handle(context.Background(), Event{Action: ActionPush})
	require.NoError(t, err)
	assert.Equal(t, 1, ticker.calls)
	assert.Equal(t, "pushed 3 records", resp.Message)

	ticker.result = push.Result{Outcome: push.Failed, Attempts: 3, Err: errors.New("boom")}
	_, err = h.Handle(context.Background(), Event{})
	assert.Error(t, err)
}

func TestHandleImportPrefix(t *testing.T) {
	bucket := &memoryBucket{
		files: map[string]string{
			"incoming/a.csv":      export,
			"incoming/b.csv":      "employee_id,timestamp,type\nE3,2024-06-11 08:00:00,in\n",
			"incoming/done/x.csv": export,
		},
		moved: map[string]string{},
	}
	h, q := newHandler(bucket, &fakeTicker{}, config.IngestConfig{Bucket: "exports", Prefix: "incoming/", Processed: "incoming/done/"})

	resp, err := h.Handle(context.Background(), Event{Action: ActionImport})
	require.NoError(t, err)
	assert.Equal(t, "3 punches imported from 2 files", resp.Message)
	assert.Equal(t, map[string]string{
		"incoming/a.csv": "incoming/done/a.csv",
		"incoming/b.csv": "incoming/done/b.csv",
	}, bucket.moved)

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pending)
}

func TestHandleS3Notification(t *testing.T) {
	bucket := &memoryBucket{files: map[string]string{"site 1/a.csv": export}, moved: map[string]string{}}
	h, _ := newHandler(bucket, &fakeTicker{}, config.IngestConfig{})

	var record events.S3EventRecord
	record.S3.Bucket.Name = "exports"
	record.S3.Object.Key = "site+1/a.csv"

	resp, err := h.Handle(context.Background(), Event{Records: []events.S3EventRecord{record}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Imports["site 1/a.csv"].Imported)
	assert.Empty(t, bucket.moved)
}

func TestHandleImportErrors(t *testing.T) {
	h, _ := newHandler(&memoryBucket{files: map[string]string{}, moved: map[string]string{}}, &fakeTicker{}, config.IngestConfig{})

	_, err := h.Handle(context.Background(), Event{Action: ActionImport, Key: "a.csv"})
	assert.EqualError(t, err, "no bucket to import from")

	_, err = h.Handle(context.Background(), Event{Action: ActionImport, Bucket: "exports", Key: "missing.csv"})
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), Event{Action: "rebuild"})
	assert.Error(t, err)
}
