package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ieprep/internal/annotation"
)

func newStagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "List stages, their prerequisites and runner health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			mgr, err := buildManager(cfg, nil, logger)
			if err != nil {
				return err
			}

			health := make(map[string]string)
			for _, h := range mgr.HealthChecks(cmd.Context()) {
				status := "ready"
				if !h.Ready {
					status = "unavailable: " + h.Detail
				}
				health[h.Name] = status
			}

			enabled := cfg.EnabledStages()
			rows := make([][]string, 0, len(annotation.Stages()))
			for _, s := range mgr.Stages() {
				prereqs := make([]string, 0)
				for _, p := range mgr.Prerequisites(s) {
					prereqs = append(prereqs, string(p))
				}
				active := len(enabled) == 0
				if !active {
					_, active = enabled[string(s)]
				}
				rows = append(rows, []string{
					string(s),
					strings.Join(prereqs, ", "),
					yesNo(active),
					stageHealth(health, s),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Stage", "Prerequisites", "Enabled", "Health"},
				rows,
				nil,
			))
			return nil
		},
	}
}

// stageHealth folds per-recognizer results ("stage/source") into one cell.
func stageHealth(health map[string]string, s annotation.Stage) string {
	if status, ok := health[string(s)]; ok {
		return status
	}
	var parts []string
	prefix := string(s) + "/"
	for name, status := range health {
		if strings.HasPrefix(name, prefix) {
			parts = append(parts, strings.TrimPrefix(name, prefix)+" "+status)
		}
	}
	if len(parts) == 0 {
		return "not checked"
	}
	return strings.Join(parts, "; ")
}
