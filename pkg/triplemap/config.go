package triplemap

import (
	"os"
	"strings"

	"github.com/ZanzyTHEbar/triplemap-go/internal/database"
)

// Config exposes a stable wrapper for store configuration in package mode.
// URL selects the backend: "memory:" keeps triples in process,
// "postgres://" and "postgresql://" use Postgres, anything else is libSQL.
type Config struct {
	URL              string
	AuthToken        string
	ProjectsDir      string
	MultiProjectMode bool
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxIdleSec   int
	ConnMaxLifeSec   int

	// SchemaFile is the YAML schema definition to load when no registry is
	// handed to NewService.
	SchemaFile string
}

// ConfigFromEnv reads the store settings the way the libSQL layer does and
// adds TRIPLEMAP_SCHEMA.
func ConfigFromEnv() *Config {
	dc := database.NewConfig()
	return &Config{
		URL:              dc.URL,
		AuthToken:        dc.AuthToken,
		ProjectsDir:      dc.ProjectsDir,
		MultiProjectMode: dc.MultiProjectMode,
		MaxOpenConns:     dc.MaxOpenConns,
		MaxIdleConns:     dc.MaxIdleConns,
		ConnMaxIdleSec:   dc.ConnMaxIdleSec,
		ConnMaxLifeSec:   dc.ConnMaxLifeSec,
		SchemaFile:       strings.TrimSpace(os.Getenv("TRIPLEMAP_SCHEMA")),
	}
}

func (c *Config) toInternal() *database.Config {
	return &database.Config{
		URL:              c.URL,
		AuthToken:        c.AuthToken,
		ProjectsDir:      c.ProjectsDir,
		MultiProjectMode: c.MultiProjectMode,
		MaxOpenConns:     c.MaxOpenConns,
		MaxIdleConns:     c.MaxIdleConns,
		ConnMaxIdleSec:   c.ConnMaxIdleSec,
		ConnMaxLifeSec:   c.ConnMaxLifeSec,
	}
}
