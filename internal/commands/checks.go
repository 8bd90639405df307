package commands

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rachealIC/infra-review-cli/internal/checks"
	"github.com/rachealIC/infra-review-cli/internal/config"
)

var checksFlags struct {
	services []string
	pillars  []string
}

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the registered checks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listChecks(cmd.OutOrStdout(), checks.Default(), checksFlags.services, checksFlags.pillars)
	},
}

func init() {
	checksCmd.Flags().StringSliceVar(&checksFlags.services, "services", nil, "Only list checks for these services")
	checksCmd.Flags().StringSliceVar(&checksFlags.pillars, "pillars", nil, "Only list checks for these pillars")
}

func listChecks(w io.Writer, registry *checks.Registry, services, pillars []string) error {
	svcSet, err := config.ParseServices(services)
	if err != nil {
		return err
	}
	pillarSet, err := config.ParsePillars(pillars)
	if err != nil {
		return err
	}

	list := registry.All(checks.Filter{Services: svcSet, Pillars: pillarSet})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"CHECK", "SERVICE", "TYPE", "PILLAR", "SEVERITY", "TITLE"})
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, c := range list {
		table.Append([]string{c.Name, string(c.Service), c.ResourceType, string(c.Pillar), string(c.Severity), c.Title})
	}
	table.Render()

	fmt.Fprintf(w, "\n%d checks\n", len(list))
	return nil
}
