package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ieprep/internal/annotation"
	"ieprep/internal/corpus"
)

type stageStatus struct {
	Stage   annotation.Stage `json:"stage"`
	Done    int              `json:"done"`
	Pending int              `json:"pending"`
	Partial int              `json:"partial"`
}

type corpusStatus struct {
	Corpus    string                   `json:"corpus"`
	Path      string                   `json:"path"`
	Documents int                      `json:"documents"`
	Entities  int                      `json:"entities"`
	Stages    []stageStatus            `json:"stages"`
	Listed    []corpus.DocumentSummary `json:"listed,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var list int
	var after string

	cmd := &cobra.Command{
		Use:   "status <dbname>",
		Short: "Show per-stage progress for a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCorpus(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			status := corpusStatus{
				Corpus:    args[0],
				Path:      store.Path(),
				Documents: stats.Documents,
				Entities:  stats.Entities,
			}
			for _, s := range annotation.Stages() {
				status.Stages = append(status.Stages, stageStatus{
					Stage:   s,
					Done:    stats.Done[s],
					Pending: stats.Pending(s),
					Partial: stats.Partial[s],
				})
			}
			if list > 0 {
				status.Listed, err = store.ListDocuments(cmd.Context(), after, list)
				if err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print status as JSON")
	cmd.Flags().IntVar(&list, "list", 0, "Also list up to N documents with their completed stages")
	cmd.Flags().StringVar(&after, "after", "", "List documents with IDs after this one")
	return cmd
}

func renderStatus(cmd *cobra.Command, status corpusStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Corpus %s (%s)\n", status.Corpus, status.Path)
	fmt.Fprintf(out, "Documents: %d  Entities: %d\n", status.Documents, status.Entities)

	rows := make([][]string, 0, len(status.Stages))
	for _, s := range status.Stages {
		rows = append(rows, []string{
			string(s.Stage),
			strconv.Itoa(s.Done),
			strconv.Itoa(s.Pending),
			strconv.Itoa(s.Partial),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Stage", "Done", "Pending", "Partial"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))

	if len(status.Listed) == 0 {
		return
	}
	docRows := make([][]string, 0, len(status.Listed))
	for _, d := range status.Listed {
		stages := make([]string, 0, len(d.Stages))
		for _, s := range d.Stages {
			stages = append(stages, string(s))
		}
		docRows = append(docRows, []string{d.ID, d.Identifier, strconv.FormatInt(d.Version, 10), strings.Join(stages, ", ")})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"ID", "Identifier", "Version", "Completed"},
		docRows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}
