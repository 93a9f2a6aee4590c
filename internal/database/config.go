package database

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the database configuration
type Config struct {
	URL              string
	AuthToken        string
	ProjectsDir      string
	MultiProjectMode bool

	// Pool tuning; zero leaves the database/sql default.
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	url := os.Getenv("LIBSQL_URL")
	if url == "" {
		url = "file:./triplemap.db"
	}

	projectsDir := strings.TrimSpace(os.Getenv("PROJECTS_DIR"))

	return &Config{
		URL:              url,
		AuthToken:        os.Getenv("LIBSQL_AUTH_TOKEN"),
		ProjectsDir:      projectsDir,
		MultiProjectMode: projectsDir != "",
		MaxOpenConns:     envInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     envInt("DB_MAX_IDLE_CONNS"),
		ConnMaxIdleSec:   envInt("DB_CONN_MAX_IDLE_SEC"),
		ConnMaxLifeSec:   envInt("DB_CONN_MAX_LIFETIME_SEC"),
	}
}

func envInt(key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
