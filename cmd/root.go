package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string // explicit job configuration file

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "trigweight",
	Short: "Trigger-path assignment and sample-combination weights for dijet events",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := readConfig(settings, configFile); err != nil {
			return err
		}
		return configureLogging(settings, stderrWriter)
	},
	SilenceUsage: true,
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up persistent flags shared by all subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Job configuration file (default ./trigweight.yaml if present)")
	rootCmd.PersistentFlags().String("log", defaultLogLevel, "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this rotating file")

	_ = settings.BindPFlag(logLevelKey, rootCmd.PersistentFlags().Lookup("log"))
	_ = settings.BindPFlag(logFileKey, rootCmd.PersistentFlags().Lookup("log-file"))
}
