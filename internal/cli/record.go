package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"respcare-monitor/internal/vitals/application"
	vitals "respcare-monitor/internal/vitals/domain"
)

var (
	recordType  string
	recordValue string
	recordUnit  string
	recordAt    string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one reading",
	Long: `Record a reading for the configured patient and print its severity zone.

An omitted --value stores a missing reading. --at defaults to now (RFC3339).`,
	Example: `  respcare record --type SpO2 --value 91
  respcare record --type BP_sys --value 165 --at 2024-05-01T08:00:00Z`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := application.RecordInput{
			Type: vitals.SignalType(recordType),
			Unit: recordUnit,
		}
		if strings.TrimSpace(recordValue) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(recordValue), 64)
			if err != nil {
				return fmt.Errorf("invalid --value %q: %w", recordValue, err)
			}
			in.Value = &v
		}
		if recordAt != "" {
			at, err := time.Parse(time.RFC3339, recordAt)
			if err != nil {
				return fmt.Errorf("invalid --at %q: %w", recordAt, err)
			}
			in.At = at
		}
		return withApp(cmd.Context(), func(a *app) error {
			obs, err := a.service.Record(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "recorded %s %s %s at %s: %s\n",
				obs.Type, formatValue(obs.Value), obs.Unit, obs.Timestamp.Format(time.RFC3339), obs.Zone)
			printAlerts(out, a.service.Alerts())
			return nil
		})
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the latest card for every signal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			d := a.service.Dashboard()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "patient %s\n", d.PatientID)
			for _, c := range d.Cards {
				if !c.Available {
					fmt.Fprintf(out, "  %-6s --\n", c.Type)
					continue
				}
				fmt.Fprintf(out, "  %-6s %s %s  %s  %s\n",
					c.Type, formatValue(c.Value), c.Unit, c.Zone, c.At.Format(time.RFC3339))
			}
			if bp := d.BloodPressure; bp.Available {
				fmt.Fprintf(out, "  %-6s %s/%s %s  %s  %s\n", "BP",
					formatValue(bp.Systolic), formatValue(bp.Diastolic), bp.Unit, bp.Zone, bp.At.Format(time.RFC3339))
			} else {
				fmt.Fprintf(out, "  %-6s --\n", "BP")
			}
			return nil
		})
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List active danger alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			alerts := a.service.Alerts()
			if len(alerts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active alerts.")
				return nil
			}
			printAlerts(cmd.OutOrStdout(), alerts)
			return nil
		})
	},
}

var (
	seriesType string
	seriesFrom string
	seriesTo   string
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print the chart series for one signal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		signal := vitals.SignalType(seriesType)
		if !signal.Known() {
			return fmt.Errorf("unknown --type %q", seriesType)
		}
		var from, to time.Time
		var err error
		if seriesFrom != "" {
			if from, err = time.Parse(time.RFC3339, seriesFrom); err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
		}
		if seriesTo != "" {
			if to, err = time.Parse(time.RFC3339, seriesTo); err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
		}
		return withApp(cmd.Context(), func(a *app) error {
			out := cmd.OutOrStdout()
			for _, p := range a.service.Series(signal, from, to) {
				fmt.Fprintf(out, "%s\t%s\t%s\n", p.At.Format(time.RFC3339), formatValue(p.Value), p.Zone)
			}
			return nil
		})
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordType, "type", "", "signal type (SpO2, HR, RR, Pulse, EtCO2, BP_sys, BP_dia)")
	recordCmd.Flags().StringVar(&recordValue, "value", "", "numeric reading; omit for a missing value")
	recordCmd.Flags().StringVar(&recordUnit, "unit", "", "display unit (defaults per type)")
	recordCmd.Flags().StringVar(&recordAt, "at", "", "observation time, RFC3339")
	_ = recordCmd.MarkFlagRequired("type")

	seriesCmd.Flags().StringVar(&seriesType, "type", "", "signal type")
	seriesCmd.Flags().StringVar(&seriesFrom, "from", "", "window start, RFC3339")
	seriesCmd.Flags().StringVar(&seriesTo, "to", "", "window end, RFC3339")
	_ = seriesCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(recordCmd, latestCmd, alertsCmd, seriesCmd)
}

func printAlerts(w io.Writer, alerts []vitals.Alert) {
	for _, al := range alerts {
		fmt.Fprintf(w, "ALERT %s: %s\n", al.Code, al.Message)
	}
}

func formatValue(v *float64) string {
	if v == nil {
		return "--"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
