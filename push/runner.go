package push

import (
	"context"
	"errors"
	"strconv"
	"time"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/kvstore"
)

type SessionSource interface {
	Current(ctx context.Context) (*core.Session, error)
}

// Runner triggers a push cycle on a timer. Frequency and batch size are
// re-read from the store's settings keys before every cycle so changes made
// by an operator apply without a restart.
type Runner struct {
	scheduler *Scheduler
	sessions  SessionSource
	store     kvstore.Store
	defaults  Options
	frequency time.Duration
}

func NewRunner(scheduler *Scheduler, sessions SessionSource, store kvstore.Store, defaults Options, frequency time.Duration) *Runner {
	return &Runner{
		scheduler: scheduler,
		sessions:  sessions,
		store:     store,
		defaults:  defaults,
		frequency: frequency,
	}
}

// Settings returns the push interval and options, store values first.
// settings.pushFrequency is in minutes.
func (r *Runner) Settings(ctx context.Context) (time.Duration, Options) {
	frequency := r.frequency
	opts := r.defaults

	if v, ok := r.intSetting(ctx, kvstore.KeyPushFrequency); ok {
		frequency = time.Duration(v) * time.Minute
	}
	if v, ok := r.intSetting(ctx, kvstore.KeyBatchSize); ok {
		opts.BatchSize = v
	}
	if frequency <= 0 {
		frequency = 5 * time.Minute
	}
	return frequency, opts
}

func (r *Runner) intSetting(ctx context.Context, key string) (int, bool) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		log.Warningf("read setting %s: %v", key, err)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warningf("ignoring setting %s=%q", key, raw)
		return 0, false
	}
	return v, true
}

// Tick runs one cycle with the current session. Without a session there is
// nothing to push to, and the cycle is skipped.
func (r *Runner) Tick(ctx context.Context) Result {
	sess, err := r.sessions.Current(ctx)
	if errors.Is(err, core.ErrNoSession) {
		log.Debugf("no session, skipping scheduled push")
		return Result{Outcome: NothingToDo, Err: err}
	}
	if err != nil {
		log.Errorf("load session: %v", err)
		return Result{Outcome: Failed, Err: err}
	}

	_, opts := r.Settings(ctx)
	return r.scheduler.Push(ctx, sess, opts)
}

// Run ticks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	frequency, _ := r.Settings(ctx)
	log.Infof("scheduled push every %s", frequency)

	timer := time.NewTimer(frequency)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			res := r.Tick(ctx)
			if res.Outcome != NothingToDo {
				log.Infof("scheduled push: %s", res.Message())
			}
			next, _ := r.Settings(ctx)
			if next != frequency {
				log.Infof("push frequency changed to %s", next)
				frequency = next
			}
			timer.Reset(frequency)
		}
	}
}
