package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialector picks the GORM dialect for a configured driver name.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}
}

// NewGormLogger routes GORM's slow-query and error output through logrus.
func NewGormLogger(l *logrus.Logger) logger.Interface {
	return logger.New(l, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func OpenGorm(driver, dsn string, l *logrus.Logger) (*gorm.DB, error) {
	dial, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := OpenGormWithDialector(dial, NewGormLogger(l))
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer; one connection also keeps :memory: databases intact
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	l.WithField("driver", driver).Info("gorm: connected")
	return db, nil
}

// OpenGormWithDialector opens and pings a connection pool. A nil gl silences
// GORM's own logging.
func OpenGormWithDialector(dial gorm.Dialector, gl logger.Interface) (*gorm.DB, error) {
	if gl == nil {
		gl = logger.Discard
	}
	cfg := &gorm.Config{
		Logger:               gl,
		DisableAutomaticPing: true,
	}
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
