package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/triplemap-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/triplemap-go/internal/config"
	"github.com/ZanzyTHEbar/triplemap-go/pkg/triplemap"
)

func schemaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the loaded schema definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, svc *triplemap.Service) error {
				out, err := config.FromRegistry(svc.Registry()).Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "triplemap version %s (revision: %s, build: %s)\n",
				buildinfo.Version, buildinfo.Revision, buildinfo.BuildDate)
		},
	}
}
