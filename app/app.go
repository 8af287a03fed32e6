// Package app assembles a punchsync instance from its configuration.
package app

import (
	"context"
	"fmt"

	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/core"
	v1 "axiapac.com/punchsync/erp/v1"
	"axiapac.com/punchsync/infrastructure/communication"
	"axiapac.com/punchsync/ingest"
	"axiapac.com/punchsync/kvstore"
	"axiapac.com/punchsync/push"
	"axiapac.com/punchsync/queue"
	"axiapac.com/punchsync/session"
	"github.com/op/go-logging"
	"gorm.io/gorm"
)

var log = logging.MustGetLogger("app")

type App struct {
	Config    *config.Config
	Transport *v1.Transport
	Store     kvstore.Store
	Queue     *queue.Queue
	Sessions  *session.Manager
	Scheduler *push.Scheduler
	Runner    *push.Runner
	Importer  *ingest.Importer
	Notifier  push.Notifier

	dm *core.DatabaseManager
}

// OpenStore returns the configured store. The MySQL table is created when
// missing.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (kvstore.Store, *core.DatabaseManager, error) {
	if cfg.Driver != config.StoreMySQL {
		return kvstore.NewMemoryStore(), nil, nil
	}

	dm, err := core.New(cfg.DSN, cfg.MaxConnections, cfg.Schema)
	if err != nil {
		return nil, nil, err
	}
	dm.LogLevel = core.ParseLogLevel(cfg.LogLevel)

	if err := dm.Exec(ctx, func(db *gorm.DB) error { return kvstore.Migrate(db) }); err != nil {
		dm.Close()
		return nil, nil, fmt.Errorf("migrate store: %w", err)
	}
	return kvstore.NewGormStore(dm), dm, nil
}

func notifiers(ctx context.Context, cfg config.NotifyConfig) (push.Notifier, error) {
	var all communication.Multi
	if cfg.Slack.Enabled() {
		all = append(all, communication.NewSlack(cfg.Slack))
	}
	if cfg.Email.Enabled() {
		email, err := communication.NewEmail(ctx, cfg.Email)
		if err != nil {
			return nil, err
		}
		all = append(all, email)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, dm, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	notifier, err := notifiers(ctx, cfg.Notify)
	if err != nil {
		if dm != nil {
			dm.Close()
		}
		return nil, err
	}

	a := &App{Config: cfg, Store: store, Notifier: notifier, dm: dm}
	a.Transport = v1.NewTransport(cfg.RelayTimeout)
	client := v1.NewErpClient(a.Transport)
	a.Sessions = session.NewManager(client, store)
	a.Queue = queue.New(store, queue.WithMaxSize(cfg.Queue.MaxSize))

	opts := []push.SchedulerOption{push.WithSessionChecker(a.Sessions)}
	if notifier != nil {
		opts = append(opts, push.WithNotifier(notifier))
	}
	a.Scheduler = push.NewScheduler(a.Queue, client, cfg.Wire, opts...)
	a.Runner = push.NewRunner(a.Scheduler, a.Sessions, store, cfg.Push.Options, cfg.Push.Frequency)
	a.Importer = ingest.NewImporter(cfg.Ingest.OffsetSeconds())

	log.Infof("store=%s schema=%s batch=%d retries=%d", cfg.Store.Driver, cfg.Wire.Schema, cfg.Push.BatchSize, cfg.Push.MaxRetries)
	return a, nil
}

func (a *App) Close() error {
	if a.dm != nil {
		return a.dm.Close()
	}
	return nil
}
