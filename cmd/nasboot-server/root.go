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
	Use:   "nasboot-server",
	Short: "Powers the NAS off once no client needs it",
	Long: `nasboot-server runs on the NAS and:
  - accepts heartbeats from workstation clients
  - expires clients that stop sending them
  - powers the NAS off after a quiet period, unless a keepalive file
    or a backup process is present

Running without a subcommand is the same as "run".`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logOptions())
	},
	RunE:         runServer,
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default "+config.DefaultServerConfigPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(runCmd)
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
	return config.DefaultServerConfigPath
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
