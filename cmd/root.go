// Package cmd implements the sigpull command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sigpull/sigpull/internal/bootstrap"
	"github.com/sigpull/sigpull/internal/conf"
)

var (
	cfgFile      string
	flagAddress  string
	flagUsername string
	flagPassword string
	flagLogLevel string
	flagLogFile  string
)

// RootCmd is the sigpull root command.
var RootCmd = &cobra.Command{
	Use:   "sigpull",
	Short: "Pull media files off networked signage players",
	Long: `sigpull authenticates against a signage player's media-transfer API,
enumerates the files stored on it and downloads them concurrently,
reporting each file as soon as it lands on disk.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file")
	RootCmd.PersistentFlags().StringVarP(&flagAddress, "address", "a", "", "device address (host or IP)")
	RootCmd.PersistentFlags().StringVarP(&flagUsername, "username", "u", "", "device username")
	RootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "p", "", "device password")
	RootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "write logs to a rotated file instead of stderr")
}

// loadConfig merges file, environment and flag configuration, validates it
// and initialises logging.
func loadConfig() (conf.Config, error) {
	cfg, err := conf.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if flagAddress != "" {
		cfg.Address = flagAddress
	}
	if flagUsername != "" {
		cfg.Username = flagUsername
	}
	if flagPassword != "" {
		cfg.Password = flagPassword
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFile != "" {
		cfg.LogFile = flagLogFile
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if err := bootstrap.InitLogging(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
