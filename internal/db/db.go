package db

import (
	"fmt"
	"syncd/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}

	DB = conn
	return nil
}

// Open opens and migrates the history database at dbPath.
func Open(dbPath string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := conn.AutoMigrate(&model.History{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return conn, nil
}

func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
