package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"respcare-monitor/internal/vitals/interfaces/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the observation report as xlsx or pdf",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(exportFormat)
		if format != "xlsx" && format != "pdf" {
			return fmt.Errorf("unsupported --format %q (want xlsx or pdf)", exportFormat)
		}
		out := exportOut
		if out == "" {
			out = "observations." + format
		}
		return withApp(cmd.Context(), func(a *app) error {
			report := export.Report{
				Dashboard:    a.service.Dashboard(),
				Observations: a.service.Observations(""),
			}
			var (
				data []byte
				err  error
			)
			if format == "xlsx" {
				data, err = export.BuildObservationsXLSX(report, a.exportOptions())
			} else {
				data, err = export.BuildObservationsPDF(report, a.exportOptions())
			}
			if err != nil {
				return fmt.Errorf("building %s: %w", format, err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d observations to %s\n", len(report.Observations), out)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "xlsx or pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default observations.<format>)")
	rootCmd.AddCommand(exportCmd)
}
