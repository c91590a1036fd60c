package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repurpose/internal/bootstrap"
)

type stageRow struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Mode  string `json:"mode"`
	Phase string `json:"phase"`
	After string `json:"after,omitempty"`
}

func newStagesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List the stage table with its execution modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rt, err := bootstrap.New(cfg, bootstrap.Options{SkipStore: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			specs := rt.Orchestrator.Specs()
			out := make([]stageRow, 0, len(specs))
			for _, spec := range specs {
				out = append(out, stageRow{
					ID:    spec.ID,
					Label: spec.Label,
					Mode:  string(spec.Mode),
					Phase: string(spec.Phase),
					After: spec.After,
				})
			}
			if asJSON {
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(out))
			for _, row := range out {
				rows = append(rows, []string{row.ID, row.Label, row.Mode, row.Phase, row.After})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Label", "Mode", "Phase", "After"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
