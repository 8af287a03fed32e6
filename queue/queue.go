// Package queue is the local log of attendance punches waiting to be pushed.
//
// The whole list lives under a single store key and is rewritten on every
// mutation; one mutex serialises the read-modify-write so concurrent
// enqueues and status updates cannot overwrite each other.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/kvstore"
	"axiapac.com/punchsync/utils"
	"github.com/google/uuid"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("queue")

const DefaultMaxSize = 5000

type Queue struct {
	store   kvstore.Store
	maxSize int
	now     func() time.Time

	mu sync.Mutex

	subMu  sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

type Option func(*Queue)

// WithMaxSize sets the retention bound. Values below 1 are ignored.
func WithMaxSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func New(store kvstore.Store, opts ...Option) *Queue {
	q := &Queue{
		store:   store,
		maxSize: DefaultMaxSize,
		now:     time.Now,
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) newID() string {
	return fmt.Sprintf("%d-%s", q.now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// load reads the full list. Callers hold q.mu.
func (q *Queue) load(ctx context.Context) ([]core.Transaction, error) {
	raw, ok, err := q.store.Get(ctx, kvstore.KeyQueueTransactions)
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	if !ok || raw == "" {
		return []core.Transaction{}, nil
	}
	var txs []core.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return txs, nil
}

// save overwrites the key with the full list. Callers hold q.mu.
func (q *Queue) save(ctx context.Context, txs []core.Transaction) error {
	b, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := q.store.Set(ctx, kvstore.KeyQueueTransactions, string(b)); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	return nil
}

// Enqueue validates p, assigns an id and stores it as not uploaded.
func (q *Queue) Enqueue(ctx context.Context, p core.Punch) (*core.Transaction, error) {
	tx, err := q.build(p)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	txs, err := q.load(ctx)
	if err != nil {
		q.mu.Unlock()
		return nil, err
	}
	txs = append(txs, *tx)
	sortNewestFirst(txs)
	txs, evicted := evict(txs, q.maxSize)
	if slices.Contains(evicted, tx.ID) {
		q.mu.Unlock()
		log.Warningf("queue full of pending records, dropped %s at %s", tx.ID, tx.Timestamp)
		return nil, fmt.Errorf("%w: %s at %s", core.ErrEvictedOnArrival, tx.EmployeeID, tx.Timestamp)
	}
	err = q.save(ctx, txs)
	q.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if len(evicted) > 0 {
		log.Warningf("queue over %d records, evicted %d", q.maxSize, len(evicted))
	}
	log.Debugf("enqueued %s employee=%s type=%s at %s", tx.ID, tx.EmployeeID, tx.Type, tx.Timestamp)
	q.emit(Event{Kind: Enqueued, IDs: []string{tx.ID}, Changed: 1, Evicted: evicted})
	return tx, nil
}

func (q *Queue) build(p core.Punch) (*core.Transaction, error) {
	employeeID := strings.TrimSpace(p.EmployeeID)
	if employeeID == "" {
		return nil, errors.New("employee id is required")
	}
	punchType, err := core.ParsePunchType(p.Type)
	if err != nil {
		return nil, err
	}
	ts, err := utils.ParseISOTime(strings.TrimSpace(p.Timestamp))
	if err != nil {
		return nil, err
	}

	return &core.Transaction{
		ID:           q.newID(),
		EmployeeID:   employeeID,
		Type:         punchType,
		Timestamp:    ts.UTC().Format(time.RFC3339),
		SourceLabel:  p.SourceLabel,
		DeviceID:     p.DeviceID,
		UploadStatus: core.NotUploaded,
	}, nil
}

// List returns every record, newest first.
func (q *Queue) List(ctx context.Context) ([]core.Transaction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	txs, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(txs)
	return txs, nil
}

// Pending returns up to limit not-uploaded records, oldest first. The order
// is stable so a failing batch is selected again unchanged.
func (q *Queue) Pending(ctx context.Context, limit int) ([]core.Transaction, error) {
	txs, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := utils.Filter(txs, func(tx core.Transaction) bool {
		return tx.UploadStatus == core.NotUploaded
	})
	sortOldestFirst(pending)
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// UpdateStatus sets status on the given ids and returns how many records
// actually changed. Applying the same update twice changes nothing the
// second time. Moving an uploaded record back is refused.
func (q *Queue) UpdateStatus(ctx context.Context, ids []string, status core.UploadStatus) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("unknown upload status %q", status)
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	q.mu.Lock()
	txs, err := q.load(ctx)
	if err != nil {
		q.mu.Unlock()
		return 0, err
	}

	var changed []string
	for i := range txs {
		if !wanted[txs[i].ID] || txs[i].UploadStatus == status {
			continue
		}
		if txs[i].UploadStatus == core.Uploaded {
			q.mu.Unlock()
			return 0, fmt.Errorf("%w: %s is already uploaded", core.ErrInvalidTransition, txs[i].ID)
		}
		txs[i].UploadStatus = status
		changed = append(changed, txs[i].ID)
	}

	if len(changed) > 0 {
		err = q.save(ctx, txs)
	}
	q.mu.Unlock()
	if err != nil {
		return 0, err
	}

	if len(changed) > 0 {
		q.emit(Event{Kind: StatusChanged, IDs: changed, Changed: len(changed)})
	}
	return len(changed), nil
}

// Clear empties the queue.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	txs, err := q.load(ctx)
	if err == nil {
		err = q.store.Remove(ctx, kvstore.KeyQueueTransactions)
	}
	q.mu.Unlock()
	if err != nil {
		return err
	}

	log.Infof("cleared %d records", len(txs))
	q.emit(Event{Kind: Cleared, Changed: len(txs)})
	return nil
}

type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Uploaded int `json:"uploaded"`
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	txs, err := q.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(txs)}
	for _, tx := range txs {
		if tx.UploadStatus == core.Uploaded {
			stats.Uploaded++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}
