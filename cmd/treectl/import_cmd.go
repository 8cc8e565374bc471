package main

import (
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/tree-request-service/internal/adapter/csvimport"
	"github.com/couchcryptid/tree-request-service/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

type importResult struct {
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Skipped  []string `json:"skipped,omitempty"`
	Applied  bool     `json:"applied"`
}

func newImportCmd() *cobra.Command {
	var (
		apply   bool
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import historical tree requests from a 311 CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			res, err := parseCSVFile(args[0], start)
			if err != nil {
				return err
			}

			out := importResult{Parsed: len(res.Requests)}
			for _, skipped := range res.Skipped {
				out.Skipped = append(out.Skipped, skipped.Error())
			}

			if apply {
				ctx := cmd.Context()
				_, pool, logger, err := connect(ctx)
				if err != nil {
					return err
				}
				defer pool.Close()

				if migrate {
					if err := postgres.Migrate(ctx, pool); err != nil {
						return withCode(exitDB, err)
					}
				}
				inserted, err := postgres.NewRepository(pool).Import(ctx, res.Requests)
				if err != nil {
					return withCode(exitDB, err)
				}
				out.Inserted = inserted
				out.Applied = true
				logger.Info("import complete", "file", args[0], "parsed", out.Parsed, "inserted", inserted, "skipped", len(out.Skipped))
			}

			return writeJSON(cmd.OutOrStdout(), commandOutput{
				Command:    "import",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     out,
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Write rows to the database (default is dry-run)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply migrations before importing")
	return cmd
}

func parseCSVFile(path string, now time.Time) (csvimport.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return csvimport.Result{}, withCode(exitUsage, err)
	}
	defer f.Close()

	res, err := csvimport.Parse(f, now)
	if err != nil {
		return csvimport.Result{}, withCode(exitValidation, fmt.Errorf("%s: %w", path, err))
	}
	return res, nil
}
