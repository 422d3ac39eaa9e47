package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/orgchart/modules/hierarchy/services"
)

func newValidateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the seed for structural problems and print summary stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := global.loadStore()
			if err != nil {
				return err
			}
			if err := store.CheckInvariants(); err != nil {
				return classify(err)
			}
			type validateResult struct {
				Status string         `json:"status"`
				Seed   string         `json:"seed"`
				Stats  services.Stats `json:"stats"`
			}
			return writeJSONLine(cmd.OutOrStdout(), validateResult{Status: "ok", Seed: global.seedPath, Stats: store.Stats()})
		},
	}
}
