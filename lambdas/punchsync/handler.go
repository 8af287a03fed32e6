package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/ingest"
	"axiapac.com/punchsync/push"
	"github.com/aws/aws-lambda-go/events"
)

const (
	ActionPush   = "push"
	ActionImport = "import"
)

// Event is either a scheduled invocation ({"action":"push"}), a manual
// import ({"action":"import","bucket":"...","key":"..."}) or an S3
// notification carrying Records.
type Event struct {
	Action  string                 `json:"action"`
	Bucket  string                 `json:"bucket"`
	Key     string                 `json:"key"`
	Records []events.S3EventRecord `json:"Records"`
}

type Response struct {
	Message string                    `json:"message"`
	Push    *push.Result              `json:"push,omitempty"`
	Imports map[string]ingest.Summary `json:"imports,omitempty"`
}

type Bucket interface {
	ingest.ObjectReader
	ListFiles(ctx context.Context, prefix string) ([]string, error)
	MoveFile(ctx context.Context, key, dest string) error
}

type Ticker interface {
	Tick(ctx context.Context) push.Result
}

type Handler struct {
	runner   Ticker
	queue    ingest.Enqueuer
	importer *ingest.Importer
	ingest   config.IngestConfig
	open     func(ctx context.Context, name string) (Bucket, error)
}

func (h *Handler) Handle(ctx context.Context, event Event) (*Response, error) {
	if len(event.Records) > 0 {
		return h.handleS3(ctx, event.Records)
	}

	switch event.Action {
	case ActionPush, "":
		res := h.runner.Tick(ctx)
		log.Infof("push: %s", res.Message())
		if res.Outcome == push.Failed {
			return nil, fmt.Errorf("%s", res.Message())
		}
		return &Response{Message: res.Message(), Push: &res}, nil
	case ActionImport:
		bucket := event.Bucket
		if bucket == "" {
			bucket = h.ingest.Bucket
		}
		key := event.Key
		if key == "" {
			key = h.ingest.Prefix
		}
		return h.importKeys(ctx, bucket, key)
	}
	return nil, fmt.Errorf("unknown action %q", event.Action)
}

func (h *Handler) handleS3(ctx context.Context, records []events.S3EventRecord) (*Response, error) {
	resp := &Response{Imports: map[string]ingest.Summary{}}
	var errs []error
	for _, record := range records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}
		r, err := h.importKeys(ctx, record.S3.Bucket.Name, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for k, v := range r.Imports {
			resp.Imports[k] = v
		}
	}
	resp.Message = summarize(resp.Imports)
	return resp, errors.Join(errs...)
}

// importKeys imports key, or every object under it when key is a prefix.
func (h *Handler) importKeys(ctx context.Context, bucketName, key string) (*Response, error) {
	if bucketName == "" {
		return nil, errors.New("no bucket to import from")
	}
	bucket, err := h.open(ctx, bucketName)
	if err != nil {
		return nil, err
	}

	keys := []string{key}
	if key == "" || strings.HasSuffix(key, "/") {
		keys, err = bucket.ListFiles(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucketName, key, err)
		}
	}

	resp := &Response{Imports: map[string]ingest.Summary{}}
	var errs []error
	for _, k := range keys {
		if h.ingest.Processed != "" && strings.HasPrefix(k, h.ingest.Processed) {
			continue
		}
		summary, err := h.importer.ImportObject(ctx, h.queue, bucket, k)
		if err != nil {
			log.Errorf("import %s: %v", k, err)
			errs = append(errs, fmt.Errorf("import %s: %w", k, err))
			continue
		}
		resp.Imports[k] = summary
		log.Infof("imported %d punches from %s (%d skipped)", summary.Imported, k, summary.Skipped)

		if h.ingest.Processed != "" {
			dest := strings.TrimSuffix(h.ingest.Processed, "/") + "/" + path.Base(k)
			if err := bucket.MoveFile(ctx, k, dest); err != nil {
				errs = append(errs, fmt.Errorf("move %s: %w", k, err))
			}
		}
	}
	resp.Message = summarize(resp.Imports)
	return resp, errors.Join(errs...)
}

func summarize(imports map[string]ingest.Summary) string {
	total := 0
	for _, s := range imports {
		total += s.Imported
	}
	return fmt.Sprintf("%d punches imported from %d files", total, len(imports))
}
