package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// ParseLogLevel maps a config string onto a LogLevel, defaulting to warn.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "info":
		return LogLevelInfo
	}
	return LogLevelWarn
}

type DatabaseManager struct {
	SqlDB    *sql.DB
	LogLevel LogLevel
	// Schema is selected with `USE` on every borrowed connection when set,
	// so several client instances can share one MySQL server.
	Schema string
}

// New creates the pool. When schema is empty the DSN's own database is used.
func New(dsn string, maxConnection int, schema string) (*DatabaseManager, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	return &DatabaseManager{SqlDB: sqlDB, LogLevel: LogLevelWarn, Schema: schema}, nil
}

func (dm *DatabaseManager) gormLogLevel() logger.LogLevel {
	switch dm.LogLevel {
	case LogLevelError:
		return logger.Error
	case LogLevelWarn:
		return logger.Warn
	case LogLevelInfo:
		return logger.Info
	case LogLevelSilent:
		return logger.Silent
	}
	return logger.Warn
}

// GetDB gets a *gorm.DB bound to a single connection with the schema selected.
// The caller closes the returned connection.
func (dm *DatabaseManager) GetDB(ctx context.Context) (*gorm.DB, *sql.Conn, error) {
	conn, err := dm.SqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conn: %w", err)
	}

	if dm.Schema != "" {
		if _, err := conn.ExecContext(ctx, "USE `"+dm.Schema+"`"); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to use schema %s: %w", dm.Schema, err)
		}
	}

	dialector := mysql.New(mysql.Config{
		Conn: conn, // lock GORM to this connection
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(dm.gormLogLevel()),
	})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return db.WithContext(ctx), conn, nil
}

// Close closes the pool
func (dm *DatabaseManager) Close() error {
	return dm.SqlDB.Close()
}

func (dm *DatabaseManager) Exec(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, conn, err := dm.GetDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(db)
}
