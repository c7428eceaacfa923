package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ieprep/internal/ingest"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var forceHTML bool

	cmd := &cobra.Command{
		Use:   "add <dbname> <files...>",
		Short: "Add text or HTML files to a corpus",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ingest.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			if forceHTML {
				format = ingest.FormatHTML
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openCorpus(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := ingest.NewImporter(store, ingest.WithLogger(logger)).AddFiles(cmd.Context(), args[1:], format)
			out := cmd.OutOrStdout()
			var added, skipped, failed int
			for _, r := range results {
				switch {
				case r.Err != nil:
					failed++
					fmt.Fprintf(out, "error   %s: %v\n", r.Path, r.Err)
				case r.Skipped:
					skipped++
					fmt.Fprintf(out, "exists  %s\n", r.Identifier)
				default:
					added++
					fmt.Fprintf(out, "added   %s (%s)\n", r.Identifier, r.ID)
				}
			}
			fmt.Fprintf(out, "%d added, %d already present, %d failed\n", added, skipped, failed)
			if err != nil {
				return err
			}
			if failed > 0 {
				return &exitError{code: exitFailures, err: fmt.Errorf("%d files could not be added", failed)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "auto", "Input format: auto, text or html (auto uses the file extension)")
	cmd.Flags().BoolVar(&forceHTML, "html", false, "Treat every file as HTML")
	return cmd
}
