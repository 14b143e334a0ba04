// Package database owns the gorm handle for the client metadata store.
package database

import (
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mhsanaei/xui-gateway/config"
	"github.com/mhsanaei/xui-gateway/database/model"
)

var db *gorm.DB

func initModels() error {
	models := []any{
		&model.ClientMetadata{},
	}
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case config.DatabaseTypeSQLite:
		if err := cfg.EnsureDirectoryExists(); err != nil {
			return nil, err
		}
		return sqlite.Open(cfg.GetDSN() + "?cache=shared&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"), nil
	case config.DatabaseTypePostgreSQL:
		return postgres.Open(cfg.GetDSN()), nil
	case config.DatabaseTypeMySQL:
		return mysql.Open(cfg.GetDSN()), nil
	}
	return nil, errors.New("unsupported database type: " + string(cfg.Type))
}

// InitDB opens the configured store and migrates the schema.
func InitDB(cfg *config.DatabaseConfig) error {
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}
	d, err := dialector(cfg)
	if err != nil {
		return err
	}

	var gormLogger gormlogger.Interface
	if cfg.Echo {
		gormLogger = gormlogger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Info,
		})
	} else {
		gormLogger = gormlogger.Discard
	}

	c := &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	}
	db, err = gorm.Open(d, c)
	if err != nil {
		return err
	}

	if cfg.IsSQLite() {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		// one writer at a time; transactions here never span a panel call
		sqlDB.SetMaxOpenConns(1)
		if _, err = sqlDB.Exec("PRAGMA cache_size = -64000;"); err != nil {
			return err
		}
		if _, err = sqlDB.Exec("PRAGMA temp_store = MEMORY;"); err != nil {
			return err
		}
	}

	return initModels()
}

func CloseDB() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
