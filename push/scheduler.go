// Package push moves queued punches to the ERP in bounded batches.
package push

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"axiapac.com/punchsync/core"
	v1 "axiapac.com/punchsync/erp/v1"
	"axiapac.com/punchsync/utils"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("push")

type Queue interface {
	Pending(ctx context.Context, limit int) ([]core.Transaction, error)
	UpdateStatus(ctx context.Context, ids []string, status core.UploadStatus) (int, error)
}

// SessionChecker lets a retry find out the session was logged out meanwhile.
type SessionChecker interface {
	IsCurrent(ctx context.Context, token string) bool
}

// Notifier is told about pushed batches and exhausted retries.
type Notifier interface {
	Info(message string) error
	Error(message string) error
}

type Options struct {
	BatchSize     int           `mapstructure:"batch-size"`
	MaxRetries    int           `mapstructure:"max-retries"`
	RetryDelay    time.Duration `mapstructure:"retry-delay"`
	BackoffFactor float64       `mapstructure:"backoff-factor"`
}

const DefaultBatchSize = 50

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}
	if o.BackoffFactor < 1 {
		o.BackoffFactor = 1
	}
	return o
}

// delay is the wait after the given failed attempt (1-based).
func (o Options) delay(attempt int) time.Duration {
	return time.Duration(float64(o.RetryDelay) * math.Pow(o.BackoffFactor, float64(attempt-1)))
}

type Outcome string

const (
	NothingToDo    Outcome = "nothing_to_do"
	Success        Outcome = "success"
	Failed         Outcome = "failed"
	AlreadyRunning Outcome = "already_running"
	Cancelled      Outcome = "cancelled"
)

type Result struct {
	Outcome  Outcome `json:"outcome"`
	Uploaded int     `json:"uploaded"`
	Attempts int     `json:"attempts"`
	Err      error   `json:"-"`
}

// Message is the short user-facing text for the result.
func (r Result) Message() string {
	switch r.Outcome {
	case NothingToDo:
		return "nothing to push"
	case Success:
		return fmt.Sprintf("pushed %d records", r.Uploaded)
	case AlreadyRunning:
		return "a push is already running"
	case Cancelled:
		return "push cancelled"
	}
	if r.Err != nil {
		return fmt.Sprintf("push failed after %d attempts: %v", r.Attempts, r.Err)
	}
	return "push failed"
}

type Scheduler struct {
	queue    Queue
	client   *v1.ErpClient
	wire     WireFormat
	sessions SessionChecker
	notifier Notifier
	wait     func(ctx context.Context, d time.Duration) error

	running atomic.Bool
}

type SchedulerOption func(*Scheduler)

func WithSessionChecker(c SessionChecker) SchedulerOption {
	return func(s *Scheduler) { s.sessions = c }
}

func WithNotifier(n Notifier) SchedulerOption {
	return func(s *Scheduler) { s.notifier = n }
}

// WithWait replaces the retry delay, for tests.
func WithWait(wait func(ctx context.Context, d time.Duration) error) SchedulerOption {
	return func(s *Scheduler) { s.wait = wait }
}

func NewScheduler(q Queue, client *v1.ErpClient, wire WireFormat, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		queue:  q,
		client: client,
		wire:   wire,
		wait:   sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Running reports whether a push cycle is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Push runs one cycle: select a batch, submit it, retry the same batch on
// failure, and mark it uploaded only after a positive acknowledgment. A
// second call while a cycle is in flight returns AlreadyRunning.
func (s *Scheduler) Push(ctx context.Context, sess *core.Session, opts Options) Result {
	if sess == nil || sess.SessionToken == "" {
		return Result{Outcome: Failed, Err: core.ErrNoSession}
	}
	if !s.running.CompareAndSwap(false, true) {
		log.Infof("push requested while another cycle is running")
		return Result{Outcome: AlreadyRunning, Err: core.ErrConcurrentPush}
	}
	defer s.running.Store(false)

	opts = opts.withDefaults()

	schema, err := s.wire.PushSchema()
	if err != nil {
		return s.fail(Result{Outcome: Failed, Err: err})
	}

	batch, err := s.queue.Pending(ctx, opts.BatchSize)
	if err != nil {
		return s.fail(Result{Outcome: Failed, Err: fmt.Errorf("select batch: %w", err)})
	}
	if len(batch) == 0 {
		log.Debugf("nothing to push")
		return Result{Outcome: NothingToDo}
	}

	records, err := s.wire.Transform(batch)
	if err != nil {
		return s.fail(Result{Outcome: Failed, Err: err})
	}
	ids := utils.Map(batch, func(tx core.Transaction) string { return tx.ID })

	var lastErr error
	attempt := 0
	for attempt < opts.MaxRetries {
		attempt++
		lastErr = s.client.Attendance.Push(ctx, sess.BaseURL, schema, records, sess.Cookie())
		if lastErr == nil {
			return s.acknowledge(ctx, ids, attempt)
		}

		log.Warningf("push attempt %d/%d of %d records failed: %v", attempt, opts.MaxRetries, len(records), lastErr)
		if !core.Retryable(lastErr) || attempt >= opts.MaxRetries {
			break
		}

		if err := s.wait(ctx, opts.delay(attempt)); err != nil {
			log.Infof("push retry cancelled: %v", err)
			return Result{Outcome: Cancelled, Attempts: attempt, Err: err}
		}
		if s.sessions != nil && !s.sessions.IsCurrent(ctx, sess.SessionToken) {
			log.Infof("session ended during push retry, dropping cycle")
			return Result{Outcome: Cancelled, Attempts: attempt, Err: core.ErrNoSession}
		}
	}

	return s.fail(Result{Outcome: Failed, Attempts: attempt, Err: lastErr})
}

func (s *Scheduler) acknowledge(ctx context.Context, ids []string, attempt int) Result {
	changed, err := s.queue.UpdateStatus(ctx, ids, core.Uploaded)
	if err != nil {
		// The remote has the batch; it will be sent again next cycle.
		return s.fail(Result{Outcome: Failed, Attempts: attempt, Err: fmt.Errorf("mark uploaded: %w", err)})
	}

	res := Result{Outcome: Success, Uploaded: changed, Attempts: attempt}
	log.Infof("%s in %d attempt(s)", res.Message(), attempt)
	s.notify(func(n Notifier) error { return n.Info(res.Message()) })
	return res
}

func (s *Scheduler) fail(res Result) Result {
	log.Errorf("%s", res.Message())
	if !errors.Is(res.Err, core.ErrNoSession) {
		s.notify(func(n Notifier) error { return n.Error(res.Message()) })
	}
	return res
}

func (s *Scheduler) notify(send func(Notifier) error) {
	if s.notifier == nil {
		return
	}
	if err := send(s.notifier); err != nil {
		log.Warningf("notify: %v", err)
	}
}
