package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	vitals "respcare-monitor/internal/vitals/domain"
)

// ThresholdFile is the on-disk threshold override document:
//
//	diastolic_mode: systolic
//	thresholds:
//	  RR:
//	    danger_upper: 26
//	    warning_upper: 21
//
// Each listed type replaces the built-in set for that type.
type ThresholdFile struct {
	DiastolicMode string                                    `yaml:"diastolic_mode"`
	Thresholds    map[vitals.SignalType]vitals.ThresholdSet `yaml:"thresholds"`
}

// LoadThresholdFile decodes path.
func LoadThresholdFile(path string) (*ThresholdFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading thresholds %s: %w", path, err)
	}
	var file ThresholdFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decoding thresholds %s: %w", path, err)
	}
	return &file, nil
}

// BuildClassifier combines the built-in table with the optional override file.
// The file's diastolic_mode wins over the configured one.
func BuildClassifier(cfg ThresholdConfig) (*vitals.Classifier, error) {
	table := vitals.DefaultThresholdTable()
	mode := vitals.DiastolicMode(cfg.DiastolicMode)
	if cfg.File != "" {
		file, err := LoadThresholdFile(cfg.File)
		if err != nil {
			return nil, err
		}
		table, err = table.With(file.Thresholds)
		if err != nil {
			return nil, fmt.Errorf("thresholds %s: %w", cfg.File, err)
		}
		if file.DiastolicMode != "" {
			mode = vitals.DiastolicMode(file.DiastolicMode)
		}
	}
	switch mode {
	case "", vitals.DiastolicDedicated, vitals.DiastolicSystolic:
	default:
		return nil, errors.New("thresholds: unknown diastolic mode " + string(mode))
	}
	return vitals.NewClassifier(table, vitals.WithDiastolicMode(mode)), nil
}
