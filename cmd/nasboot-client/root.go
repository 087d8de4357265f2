package main

import (
	"github.com/fgeck/nasboot/internal/config"
	"github.com/fgeck/nasboot/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "nasboot-client",
	Short: "Keeps the NAS awake while this workstation is in use",
	Long: `nasboot-client runs on a workstation and:
  - watches local user activity
  - sends heartbeats to the NAS while it is needed
  - wakes the NAS with Wake-on-LAN when it does not answer

The wake mode (off, auto, always-on) decides when the NAS is needed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logOptions())
	},
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default "+config.DefaultClientConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(wakeCmd)
	rootCmd.AddCommand(setModeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(generateConfigCmd)
}

func logOptions() logging.Options {
	return logging.Options{Verbose: verbose, Quiet: quiet, JSON: jsonOutput}
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultClientConfigPath()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
