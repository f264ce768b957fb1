package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix prefixes environment variables read as configuration,
// e.g. SSP_TREE or SSP_MAX_COLLECT.
const envPrefix = "SSP"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ssp",
	Short: "Byte-at-a-time string search over a pattern tree",
	Long: `ssp walks a tree of string patterns one byte at a time and reports
the branches that match, for example over modem responses read from a
serial capture.

Settings are read from flags, then SSP_* environment variables, then
config.yaml in $HOME/.ssp or the current directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.ssp/config.yaml)")
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	mustBindPFlag("verbose", flags.Lookup("verbose"))
}

// initConfig wires viper to the environment and the optional config file.
func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range []string{"$HOME/.ssp", "."} {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// newLogger returns a text logger writing to w. Debug output is enabled
// when debug is set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}
