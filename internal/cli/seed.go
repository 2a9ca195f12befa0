package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	seedDays   int
	seedPerDay int
	seedSeed   int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Append generated demo readings",
	Long: `Generate plausible readings for every signal over the last --days days
and append them to the store in one save. The same --seed gives the same
values.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedDays <= 0 || seedPerDay <= 0 {
			return fmt.Errorf("--days and --per-day must be positive")
		}
		return withApp(cmd.Context(), func(a *app) error {
			n, err := a.seed(cmd.Context(), seedDays, seedPerDay, seedSeed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d observations (%d stored)\n", n, a.store.Len())
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedDays, "days", 7, "days of history")
	seedCmd.Flags().IntVar(&seedPerDay, "per-day", 6, "readings per signal per day")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 1, "random seed")
	rootCmd.AddCommand(seedCmd)
}
