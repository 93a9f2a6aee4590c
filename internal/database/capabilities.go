package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// capFlags stores capability detection for a specific project/DB handle
type capFlags struct {
	checked   bool
	returning bool
	version   string
}

// detectCapabilitiesForProject records whether the engine understands
// INSERT ... RETURNING (SQLite 3.35 and later).
func (dm *DBManager) detectCapabilitiesForProject(ctx context.Context, projectName string, db *sql.DB) capFlags {
	dm.capMu.RLock()
	caps, ok := dm.capsByProject[projectName]
	dm.capMu.RUnlock()
	if ok && caps.checked {
		return caps
	}

	ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	var version string
	if err := db.QueryRowContext(ctx2, "SELECT sqlite_version()").Scan(&version); err == nil {
		caps.version = version
		caps.returning = versionAtLeast(version, 3, 35)
	}
	caps.checked = true

	dm.log.Debug().
		Str("project", projectName).
		Str("sqlite_version", caps.version).
		Bool("returning", caps.returning).
		Msg("detected database capabilities")

	dm.capMu.Lock()
	dm.capsByProject[projectName] = caps
	dm.capMu.Unlock()
	return caps
}

func (dm *DBManager) capabilities(projectName string) capFlags {
	dm.capMu.RLock()
	defer dm.capMu.RUnlock()
	return dm.capsByProject[projectName]
}

// versionAtLeast compares a dotted version against major.minor.
func versionAtLeast(version string, major, minor int) bool {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) < 2 {
		return false
	}
	maj, err1 := strconv.Atoi(parts[0])
	mnr, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return false
	}
	if maj != major {
		return maj > major
	}
	return mnr >= minor
}
