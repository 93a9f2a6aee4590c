package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/triplemap-go/internal/config"
	"github.com/ZanzyTHEbar/triplemap-go/internal/metrics"
	"github.com/ZanzyTHEbar/triplemap-go/internal/server"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/model"
)

func serveCmd(opts *options) *cobra.Command {
	var (
		transport   string
		addr        string
		sseEndpoint string
		watch       bool
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if transport != "stdio" && transport != "sse" {
				return fmt.Errorf("unknown transport: %s (expected: stdio or sse)", transport)
			}

			// Handle graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, log, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					log.Error().Err(err).Msg("error closing store")
				}
			}()

			if watch {
				schemaFile := svc.Config().SchemaFile
				if schemaFile == "" {
					return fmt.Errorf("--watch needs a schema file")
				}
				w, err := config.NewWatcher(schemaFile, debounce, log, func(r *model.Registry) {
					_ = svc.Reload(r)
				})
				if err != nil {
					return fmt.Errorf("failed to watch schema: %w", err)
				}
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("failed to watch schema: %w", err)
				}
				defer w.Stop()
			}

			// Initialize metrics (noop if disabled)
			if metricsAddr, err := metrics.InitFromEnv(); err != nil {
				log.Warn().Err(err).Msg("metrics disabled")
			} else if metricsAddr != "" {
				log.Info().Str("addr", metricsAddr).Msg("serving prometheus metrics")
			}

			mcpServer := server.NewMCPServer(svc, log)
			log.Info().Str("transport", transport).Str("backend", svc.Backend()).Msg("starting triplemap server")

			if transport == "sse" {
				err = mcpServer.RunSSE(ctx, addr, sseEndpoint)
			} else {
				err = mcpServer.Run(ctx)
			}
			if err != nil && ctx.Err() == nil {
				return err
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to use: stdio or sse")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on when using SSE transport")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the schema file when it changes")
	cmd.Flags().DurationVar(&debounce, "watch-debounce", config.DefaultDebounce, "Wait this long for more writes before reloading")
	return cmd
}
