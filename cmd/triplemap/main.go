// Package main provides the triplemap binary: an MCP server and a command
// line for entities stored as RDF triples.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/triplemap-go/internal/logging"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triplemap"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flags shared by every command. Empty values fall back to
// the environment.
type options struct {
	url         string
	authToken   string
	projectsDir string
	schemaFile  string
	project     string
	logLevel    string
	logPretty   bool
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "triplemap",
		Short: "Map entities onto RDF triples",
		Long: `Triplemap stores entities as RDF triples. A schema file names the
entity kinds, their urn templates and the predicate behind every attribute.

Backends are chosen by URL:
- file:... or libsql://...   libSQL (default file:./triplemap.db)
- postgres://...             Postgres
- memory:                    in-process, lost on exit`,
		SilenceUsage: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.url, "url", "", "Store URL (env LIBSQL_URL)")
	f.StringVar(&opts.authToken, "auth-token", "", "Authentication token for remote libSQL databases (env LIBSQL_AUTH_TOKEN)")
	f.StringVar(&opts.projectsDir, "projects-dir", "", "Base directory for projects, enables multi-project mode (env PROJECTS_DIR)")
	f.StringVarP(&opts.schemaFile, "schema", "s", "", "Schema definition file (env TRIPLEMAP_SCHEMA)")
	f.StringVarP(&opts.project, "project", "p", "", "Project to operate on")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	f.BoolVar(&opts.logPretty, "log-pretty", false, "Human readable log output (env LOG_PRETTY)")

	cmd.AddCommand(
		serveCmd(opts),
		createCmd(opts),
		showCmd(opts),
		getCmd(opts),
		setCmd(opts),
		addCmd(opts),
		deleteCmd(opts),
		schemaCmd(opts),
		versionCmd(),
	)
	return cmd
}

func (o *options) logger() zerolog.Logger {
	cfg := logging.ConfigFromEnv()
	if o.logLevel != "" {
		cfg.Level = o.logLevel
	}
	if o.logPretty {
		cfg.Pretty = true
	}
	return logging.Init(cfg)
}

func (o *options) config() *triplemap.Config {
	cfg := triplemap.ConfigFromEnv()
	if o.url != "" {
		cfg.URL = o.url
	}
	if o.authToken != "" {
		cfg.AuthToken = o.authToken
	}
	if o.projectsDir != "" {
		cfg.ProjectsDir = o.projectsDir
		cfg.MultiProjectMode = true
	}
	if o.schemaFile != "" {
		cfg.SchemaFile = o.schemaFile
	}
	return cfg
}

// open builds the service the command runs against.
func (o *options) open(ctx context.Context) (*triplemap.Service, zerolog.Logger, error) {
	log := o.logger()
	svc, err := triplemap.NewService(ctx, o.config(), triplemap.WithLogger(log))
	if err != nil {
		return nil, log, err
	}
	return svc, log, nil
}
