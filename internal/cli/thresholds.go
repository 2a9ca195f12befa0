package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"respcare-monitor/internal/config"
)

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Print the effective threshold table as YAML",
	Long: `Print the built-in thresholds merged with thresholds.file, in the same
format the override file uses.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		classifier, err := config.BuildClassifier(cfg.Thresholds)
		if err != nil {
			return err
		}
		doc := config.ThresholdFile{
			DiastolicMode: string(classifier.DiastolicMode()),
			Thresholds:    classifier.Table().Sets(),
		}
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding thresholds: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	},
}

func init() {
	rootCmd.AddCommand(thresholdsCmd)
}
