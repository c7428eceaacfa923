package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ieprep/internal/corpus"
	"ieprep/internal/preflight"
	"ieprep/internal/runlock"
	"ieprep/internal/workflow"
)

const maxListedFailures = 20

func newPreprocessCommand(ctx *commandContext) *cobra.Command {
	var strict bool
	var workers int
	var skipChecks bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "preprocess <dbname>",
		Short: "Run every pending stage over a corpus",
		Long: "Run every registered stage, in order, over every document that still needs it.\n" +
			"Completed work is never redone. Interrupt with Ctrl-C and rerun to resume.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if !skipChecks {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					names := make([]string, 0, len(failed))
					for _, f := range failed {
						names = append(names, fmt.Sprintf("%s: %s", f.Name, f.Detail))
					}
					return fmt.Errorf("preflight failed (run `ieprep check`):\n  %s", strings.Join(names, "\n  "))
				}
			}

			path, err := cfg.CorpusPath(args[0])
			if err != nil {
				return err
			}
			lock, err := runlock.Acquire(path)
			if err != nil {
				return err
			}
			defer lock.Release()

			store, err := corpus.Open(path)
			if err != nil {
				return fmt.Errorf("open corpus %s: %w", args[0], err)
			}
			defer store.Close()

			mgr, err := buildManager(cfg, store, logger, workflow.WithWorkers(workers))
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, runErr := mgr.ProcessEverything(runCtx)
			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
			}
			if runErr != nil {
				return &exitError{code: exitFatal, err: fmt.Errorf("preprocess halted: %w", runErr)}
			}
			if strict && report.HasFailures() {
				return &exitError{code: exitFailures, err: fmt.Errorf("%d document failures (strict mode)", len(report.Failures))}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any document fails")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Documents processed concurrently per stage (overrides pipeline.workers)")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip preflight checks")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run report as JSON")
	return cmd
}

func printReport(out io.Writer, report workflow.Report) {
	rows := make([][]string, 0, len(report.Stages))
	for _, s := range report.Stages {
		rows = append(rows, []string{
			string(s.Stage),
			strconv.Itoa(s.Attempted),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Skipped),
			s.Duration.Round(time.Millisecond).String(),
		})
	}
	fmt.Fprintf(out, "Run %s\n", report.RunID)
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(out,
			[]string{"Stage", "Attempted", "Succeeded", "Failed", "Skipped", "Duration"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
		))
	}
	for i, f := range report.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(out, "... and %d more failures\n", len(report.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(out, "FAILED %s %s [%s]: %s\n", f.Stage, f.DocumentID, f.Kind, f.Message)
	}
	switch {
	case report.Fatal != "":
		fmt.Fprintf(out, "Halted: %s\n", report.Fatal)
	case report.Interrupted:
		fmt.Fprintln(out, "Interrupted; rerun to resume")
	default:
		fmt.Fprintf(out, "Completed in %s with %d failures\n", report.Duration().Round(time.Millisecond), len(report.Failures))
	}
}
