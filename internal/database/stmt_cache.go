package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/triplemap-go/internal/metrics"
)

// getPreparedStmt returns or prepares and caches a statement for the given project DB
func (dm *DBManager) getPreparedStmt(ctx context.Context, projectName string, db *sql.DB, sqlText string) (*sql.Stmt, error) {
	// fast path read
	dm.stmtMu.RLock()
	if stmt, ok := dm.stmtCache[projectName][sqlText]; ok {
		dm.stmtMu.RUnlock()
		metrics.Default().IncStmtCacheHit("prepare")
		return stmt, nil
	}
	dm.stmtMu.RUnlock()
	metrics.Default().IncStmtCacheMiss("prepare")

	stmt, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	dm.stmtMu.Lock()
	defer dm.stmtMu.Unlock()
	if _, ok := dm.stmtCache[projectName]; !ok {
		dm.stmtCache[projectName] = make(map[string]*sql.Stmt)
	}
	// another goroutine may have won the race; keep its statement
	if existing, ok := dm.stmtCache[projectName][sqlText]; ok {
		_ = stmt.Close()
		return existing, nil
	}
	dm.stmtCache[projectName][sqlText] = stmt
	return stmt, nil
}

// closeStatements closes and forgets every cached statement of a project.
func (dm *DBManager) closeStatements(projectName string) {
	dm.stmtMu.Lock()
	defer dm.stmtMu.Unlock()
	for _, stmt := range dm.stmtCache[projectName] {
		_ = stmt.Close()
	}
	delete(dm.stmtCache, projectName)
}
