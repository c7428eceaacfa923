package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ieprep/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [dbname]",
		Short: "Run preflight checks and optionally a corpus health check",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			if len(args) == 1 {
				store, err := ctx.openCorpus(args[0])
				if err != nil {
					return err
				}
				defer store.Close()
				health, err := store.CheckHealth(cmd.Context())
				result := preflight.Result{Name: "Corpus " + args[0], Passed: err == nil && health.IntegrityCheck && len(health.MissingTables) == 0}
				switch {
				case err != nil:
					result.Detail = err.Error()
				case health.Error != "":
					result.Detail = health.Error
				default:
					result.Detail = fmt.Sprintf("%s (schema v%d, %d documents)", health.DBPath, health.SchemaVersion, health.TotalDocuments)
				}
				results = append(results, result)
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Check", "Status", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return &exitError{code: exitFatal, err: fmt.Errorf("%d checks failed", len(failed))}
			}
			return nil
		},
	}
}
