package main

import (
	"time"

	"github.com/couchcryptid/tree-request-service/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

type migrateResult struct {
	Version int64 `json:"version"`
}

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			start := time.Now()
			if !status {
				if err := postgres.Migrate(ctx, pool); err != nil {
					return withCode(exitDB, err)
				}
			}
			version, err := postgres.SchemaVersion(ctx, pool)
			if err != nil {
				return withCode(exitDB, err)
			}

			return writeJSON(cmd.OutOrStdout(), commandOutput{
				Command:    "migrate",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     migrateResult{Version: version},
			})
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Print the schema version without migrating")
	return cmd
}
