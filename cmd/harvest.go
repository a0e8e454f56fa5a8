package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

func newHarvestCmd() *cobra.Command {
	var industry harvest.Industry
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Runs a full harvest for one industry",
		Long: `Scrapes the industry's company listing, then mines, archives and
notifies for every company before sharing the industry folder. The run
report is printed as JSON. Without --code the industry list is scraped to
resolve the code from --name.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			h := appInstance.Harvester()
			if industry.Code == "" {
				resolved, ok := findIndustry(h.Industries(cmd.Context()), industry.Name)
				if !ok {
					return fmt.Errorf("industry %q not found", industry.Name)
				}
				industry = resolved
			}
			appInstance.Logger().Info("harvest started",
				zap.String("industry", industry.Name),
				zap.String("code", industry.Code),
			)

			report, runErr := h.RunIndustry(cmd.Context(), industry)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return errors.Join(runErr, fmt.Errorf("encode report: %w", err))
			}
			if runErr != nil {
				return fmt.Errorf("run industry: %w", runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&industry.Name, "name", "", "industry name as listed on the exchange")
	cmd.Flags().StringVar(&industry.Code, "code", "", "industry code; resolved from --name when empty")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func findIndustry(industries []harvest.Industry, name string) (harvest.Industry, bool) {
	for _, ind := range industries {
		if strings.EqualFold(strings.TrimSpace(ind.Name), strings.TrimSpace(name)) {
			return ind, true
		}
	}
	return harvest.Industry{}, false
}
