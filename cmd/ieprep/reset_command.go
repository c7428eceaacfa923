package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ieprep/internal/annotation"
	"ieprep/internal/corpus"
	"ieprep/internal/runlock"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	var documentID string

	cmd := &cobra.Command{
		Use:   "reset <dbname> <stage>",
		Short: "Invalidate a stage and every later stage",
		Long: "Delete the results of a stage and of every stage after it so the next\n" +
			"preprocess run recomputes them. Limit the reset to one document with --document.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := annotation.ParseStage(args[1])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			stages := target.Dependents()
			removed, err := store.ResetStages(cmd.Context(), stages, strings.TrimSpace(documentID))
			if err != nil {
				return err
			}
			names := make([]string, len(stages))
			for i, s := range stages {
				names[i] = string(s)
			}
			scope := "all documents"
			if documentID != "" {
				scope = "document " + documentID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s for %s (%d records removed)\n", strings.Join(names, ", "), scope, removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "Reset only this document ID")
	return cmd
}
