package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/triplemap-go/pkg/triplemap"
)

// run opens the service, hands it to fn and closes it again.
func run(cmd *cobra.Command, opts *options, fn func(ctx context.Context, svc *triplemap.Service) error) error {
	ctx := cmd.Context()
	svc, log, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("error closing store")
		}
	}()
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseOne parses the text of a single value for attr of kind.
func parseOne(svc *triplemap.Service, kind, attr, text string) (any, error) {
	schema, err := svc.Describe(kind)
	if err != nil {
		return nil, err
	}
	_, v, err := triplemap.ParseValue(schema, attr, text)
	return v, err
}

func createCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create KIND [ATTR=VALUE...]",
		Short: "Create an entity and print its urn",
		Long: `Create an entity of KIND. Repeat ATTR=VALUE for every value of a
multi attribute.`,
		Example: `  triplemap create doc path=/reports/q1.pdf title="Q1 report" tag=finance tag=2024`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, svc *triplemap.Service) error {
				values, err := svc.ParseValues(args[0], args[1:])
				if err != nil {
					return err
				}
				urn, err := svc.Create(ctx, opts.project, args[0], values)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), urn)
				return err
			})
		},
	}
}

func showCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show KIND URN",
		Short: "Print every stored attribute of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, svc *triplemap.Service) error {
				values, err := svc.All(ctx, opts.project, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), values)
			})
		},
	}
}

func getCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get KIND URN ATTR",
		Short: "Print one attribute of an entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, svc *triplemap.Service) error {
				v, err := svc.Get(ctx, opts.project, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func setCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set KIND URN ATTR VALUE",
		Short: "Replace the value of a single attribute",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, svc *triplemap.Service) error {
				v, err := parseOne(svc, args[0], args[2], args[3])
				if err != nil {
					return err
				}
				return svc.Set(ctx, opts.project, args[0], args[1], args[2], v)
			})
		},
	}
}

func addCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add KIND URN ATTR VALUE",
		Short: "Append a value to a multi attribute",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, svc *triplemap.Service) error {
				v, err := parseOne(svc, args[0], args[2], args[3])
				if err != nil {
					return err
				}
				return svc.Add(ctx, opts.project, args[0], args[1], args[2], v)
			})
		},
	}
}

func deleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KIND URN ATTR [VALUE]",
		Short: "Delete one value of an attribute, or all of them",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, svc *triplemap.Service) error {
				if len(args) == 3 {
					return svc.Delete(ctx, opts.project, args[0], args[1], args[2])
				}
				v, err := parseOne(svc, args[0], args[2], args[3])
				if err != nil {
					return err
				}
				return svc.DeleteValue(ctx, opts.project, args[0], args[1], args[2], v)
			})
		},
	}
}
