package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/izzu/internal/config"
	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/store/pg"
	migrations "github.com/dropDatabas3/izzu/migrations/postgres"
)

var errNotPostgres = errors.New("migrate requires storage.driver=postgres")

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica o revierte migraciones del esquema",
	}
	migrator := pg.NewMigrator(migrations.CoreFS, migrations.CoreDir)

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st repository.Store) error {
				pgs, ok := st.(*pg.Store)
				if !ok {
					return errNotPostgres
				}
				res, err := migrator.Up(ctx, pgs)
				if err != nil {
					return err
				}
				cmd.Printf("applied %v, skipped %d (%s)\n", res.Applied, len(res.Skipped), res.Duration)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Revierte las últimas N migraciones (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return errors.New("steps must be a positive integer")
				}
				steps = n
			}
			return opts.withStore(cmd.Context(), func(ctx context.Context, _ *config.Config, st repository.Store) error {
				pgs, ok := st.(*pg.Store)
				if !ok {
					return errNotPostgres
				}
				res, err := migrator.Down(ctx, pgs, steps)
				if err != nil {
					return err
				}
				cmd.Printf("reverted %v (%s)\n", res.Applied, res.Duration)
				return nil
			})
		},
	})
	return cmd
}
