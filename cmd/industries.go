package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newIndustriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "industries",
		Short: "Prints the exchange's industry list as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			industries := appInstance.Harvester().Industries(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(industries); err != nil {
				return fmt.Errorf("encode industries: %w", err)
			}
			return nil
		},
	}
}
