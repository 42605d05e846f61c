package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/puritank/cmd/app"
	"github.com/Agrid-Dev/puritank/internal/logging"
)

var (
	configPath string

	cfg    app.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "puritank",
	Short: "Two-tank purity rig controller",
	Long: `puritank gates the transfer out of Tank A on a temperature-compensated
purity verdict and regulates the temperature of Tank C.

Configuration is read from --config (.yaml/.yml/.json, optional) and
overridden by PURITANK_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = app.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")

	thresholdCmd.Flags().Float64Var(&thresholdTemperature, "temperature", 25, "Tank A temperature in °C")
	thresholdCmd.Flags().Float64Var(&thresholdReference, "reference", 0, "reference concentration (default: purity.reference_concentration)")

	rootCmd.AddCommand(runCmd, thresholdCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
