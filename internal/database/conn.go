// Package database stores triples in libSQL. In multi-project mode every
// project gets its own database file under the projects directory.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/ZanzyTHEbar/triplemap-go/internal/metrics"
)

const defaultProject = "default"

// DBManager owns one connection pool per project.
type DBManager struct {
	config *Config
	log    zerolog.Logger

	mu  sync.RWMutex
	dbs map[string]*sql.DB

	stmtMu    sync.RWMutex
	stmtCache map[string]map[string]*sql.Stmt

	capMu         sync.RWMutex
	capsByProject map[string]capFlags
}

// NewDBManager creates a new database manager
func NewDBManager(config *Config, log zerolog.Logger) (*DBManager, error) {
	manager := &DBManager{
		config:        config,
		log:           log.With().Str("component", "libsql").Logger(),
		dbs:           make(map[string]*sql.DB),
		stmtCache:     make(map[string]map[string]*sql.Stmt),
		capsByProject: make(map[string]capFlags),
	}

	// If not in multi-project mode, initialize the default database immediately
	if !config.MultiProjectMode {
		_, err := manager.getDB(defaultProject)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize default database: %w", err)
		}
	}

	return manager, nil
}

// Store returns the triple store of a project. Outside multi-project mode
// every project name maps onto the single configured database.
func (dm *DBManager) Store(projectName string) (*Store, error) {
	if !dm.config.MultiProjectMode {
		projectName = defaultProject
	}
	db, err := dm.getDB(projectName)
	if err != nil {
		return nil, err
	}
	return &Store{dm: dm, project: projectName, db: db}, nil
}

// getDB retrieves a database connection for a given project, creating it if necessary
func (dm *DBManager) getDB(projectName string) (*sql.DB, error) {
	dm.mu.RLock()
	db, ok := dm.dbs[projectName]
	dm.mu.RUnlock()

	if ok {
		return db, nil
	}

	dm.mu.Lock()

	// Double-check if another goroutine created the DB while we were waiting for the lock
	db, ok = dm.dbs[projectName]
	if ok {
		dm.mu.Unlock()
		return db, nil
	}

	dbURL, err := dm.projectURL(projectName)
	if err != nil {
		dm.mu.Unlock()
		return nil, err
	}

	newDb, err := sql.Open("libsql", dbURL)
	if err != nil {
		dm.mu.Unlock()
		return nil, fmt.Errorf("failed to create database connector for project %s: %w", projectName, err)
	}

	// Initialize schema
	if err := dm.initialize(newDb); err != nil {
		newDb.Close()
		dm.mu.Unlock()
		return nil, fmt.Errorf("failed to initialize database for project %s: %w", projectName, err)
	}

	// Apply connection pool tuning from config
	if dm.config.MaxOpenConns > 0 {
		newDb.SetMaxOpenConns(dm.config.MaxOpenConns)
	}
	if dm.config.MaxIdleConns > 0 {
		newDb.SetMaxIdleConns(dm.config.MaxIdleConns)
	}
	if dm.config.ConnMaxIdleSec > 0 {
		newDb.SetConnMaxIdleTime(time.Duration(dm.config.ConnMaxIdleSec) * time.Second)
	}
	if dm.config.ConnMaxLifeSec > 0 {
		newDb.SetConnMaxLifetime(time.Duration(dm.config.ConnMaxLifeSec) * time.Second)
	}
	// A local file has a single writer; a second pooled connection would fail
	// with "database is locked" instead of waiting its turn.
	if strings.HasPrefix(dbURL, "file:") {
		newDb.SetMaxOpenConns(1)
	}

	dm.dbs[projectName] = newDb
	// Unlock before capability detection to avoid self-deadlock
	dm.mu.Unlock()

	dm.detectCapabilitiesForProject(context.Background(), projectName, newDb)
	dm.observePool(newDb)
	dm.log.Debug().Str("project", projectName).Msg("opened project database")
	return newDb, nil
}

// projectURL builds the connection URL for a project, adding the auth token
// for remote databases.
func (dm *DBManager) projectURL(projectName string) (string, error) {
	if dm.config.MultiProjectMode {
		if projectName == "" {
			return "", fmt.Errorf("project name cannot be empty in multi-project mode")
		}
		if strings.ContainsAny(projectName, `/\`) || projectName == "." || projectName == ".." {
			return "", fmt.Errorf("invalid project name %q", projectName)
		}
		dbPath := filepath.Join(dm.config.ProjectsDir, projectName, "libsql.db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return "", fmt.Errorf("failed to create project directory for %s: %w", projectName, err)
		}
		return fmt.Sprintf("file:%s", dbPath), nil
	}

	dbURL := dm.config.URL
	if strings.HasPrefix(dbURL, "file:") || dm.config.AuthToken == "" {
		return dbURL, nil
	}
	// Build URL safely and append/override the authToken parameter
	if u, err := url.Parse(dbURL); err == nil {
		q := u.Query()
		q.Set("authToken", dm.config.AuthToken)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return dbURL + sep + "authToken=" + url.QueryEscape(dm.config.AuthToken), nil
}

// initialize creates tables and indexes if they don't exist
func (dm *DBManager) initialize(db *sql.DB) error {
	done := metrics.TimeOp("db_initialize")
	success := false
	defer func() { done(success) }()
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range schema {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

func (dm *DBManager) observePool(db *sql.DB) {
	stats := db.Stats()
	metrics.Default().ObservePoolStats(stats.InUse, stats.Idle)
}

// Ping checks that the project database answers and refreshes the pool
// gauges.
func (dm *DBManager) Ping(ctx context.Context, projectName string) error {
	s, err := dm.Store(projectName)
	if err != nil {
		return err
	}
	dm.observePool(s.db)
	return s.db.PingContext(ctx)
}

// PoolStats returns connection pool statistics for a project.
func (dm *DBManager) PoolStats(projectName string) (sql.DBStats, error) {
	s, err := dm.Store(projectName)
	if err != nil {
		return sql.DBStats{}, err
	}
	return s.db.Stats(), nil
}

// Close closes all database connections
func (dm *DBManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var errs []error
	for name, db := range dm.dbs {
		dm.closeStatements(name)
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database for project %s: %w", name, err))
		}
		delete(dm.dbs, name)
	}
	return errors.Join(errs...)
}
