package core

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens a plain gorm handle, for one-shot tools that do not need
// the pooled DatabaseManager.
func ConnectDB(dsn string, level LogLevel) (*gorm.DB, error) {
	dm := DatabaseManager{LogLevel: level}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(dm.gormLogLevel()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB from GORM: %w", err)
	}
	return db, nil
}
