package core

import (
	"context"
	"database/sql"
	"fmt"
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

// DatabaseManager owns the global connection pool. Every operation acquires a
// dedicated connection, wraps it in a *gorm.DB and releases it when done, so
// no shared connection object leaks across goroutines.
type DatabaseManager struct {
	SqlDB    *sql.DB
	LogLevel LogLevel
}

// New creates the global pool. The DSN must include the database name and
// parseTime=true, e.g. user:pass@tcp(host:3306)/timetrack?parseTime=true.
func New(dsn string, maxConnection int) (*DatabaseManager, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	return &DatabaseManager{SqlDB: sqlDB}, nil
}

// GetDB gets a *gorm.DB bound to a single pooled connection. The caller owns
// the returned *sql.Conn and must close it.
func (dm *DatabaseManager) GetDB(ctx context.Context) (*gorm.DB, *sql.Conn, error) {
	conn, err := dm.SqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conn: %w", err)
	}
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	dialector := mysql.New(mysql.Config{
		Conn: conn, // lock GORM to this connection
	})

	gormLogLevel := logger.Silent
	switch dm.LogLevel {
	case LogLevelError:
		gormLogLevel = logger.Error
	case LogLevelWarn:
		gormLogLevel = logger.Warn
	case LogLevelInfo:
		gormLogLevel = logger.Info
	case LogLevelSilent:
		gormLogLevel = logger.Silent
	default:
		gormLogLevel = logger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	// cancel the deferred close; caller will close
	defer func() { conn = nil }()
	return db, conn, nil
}

// Exec runs fn with a connection-scoped *gorm.DB and releases the connection
// afterwards.
func (dm *DatabaseManager) Exec(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, conn, err := dm.GetDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(db)
}

// Close closes the global pool.
func (dm *DatabaseManager) Close() error {
	return dm.SqlDB.Close()
}
