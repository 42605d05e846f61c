package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	thresholdTemperature float64
	thresholdReference   float64
)

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Print the temperature-compensated TDS threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := cfg.Params()
		if err != nil {
			return err
		}
		reference := params.Purity.ReferenceConcentration
		if cmd.Flags().Changed("reference") {
			reference = thresholdReference
		}
		expected := params.Purity.Table.Expected(reference, thresholdTemperature)
		fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", expected)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}
