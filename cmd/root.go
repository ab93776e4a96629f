// Package cmd provides the command-line interface for wakuwork.
//
// Configuration is read from several sources, highest priority first:
//
//  1. Command-line flags (--dir, --dist, ...)
//  2. Environment variables following WAKUWORK_<SECTION>_<OPTION>,
//     e.g. WAKUWORK_BUILD_DIR or WAKUWORK_FILES_DIST
//  3. The configuration file: --config, WAKUWORK_CONFIG_FILE, or
//     .wakuwork.yml in the working directory
//
// A .env file in the working directory is loaded before any of them.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wakuwork/wakuwork/internal/logging"
)

const envPrefix = "WAKUWORK"

var cfgFile string

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log-level",
	"log-format": "log-format",
	"dir":        "build.dir",
	"base-path":  "build.basePath",
	"dist":       "files.dist",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wakuwork",
	Short: "Build tool for React Server Components apps",
	Long: `wakuwork builds a React Server Components application.

It finds every "use client" module, bundles them with the HTML entry for the
browser, compiles the server sources to CommonJS and writes the client-entry
manifest the server runtime needs.

Quick Start:
  wakuwork build                  Build the project in the current directory
  wakuwork watch --livereload :35729
                                  Rebuild on change and reload the browser
  wakuwork config show            Print the resolved configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd.Flags())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .wakuwork.yml, can also use WAKUWORK_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig points viper at the configuration file and the environment.
func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Warning: failed to load .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(envPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wakuwork")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// A missing file is fine; every option has a default.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
		fmt.Fprintln(os.Stderr, "Warning: failed to read config file:", err)
	}
}

// bindFlags binds the flags a command actually defines. Binding happens per
// invocation because several commands share the same keys.
func bindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = viper.BindPFlag(key, f)
	})
	return bindErr
}

// newLogger builds the logger selected by --log-level and --log-format.
func newLogger(w io.Writer) (*logging.BuildLogger, error) {
	level, err := logging.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	format := viper.GetString("log-format")
	if format != "" && format != "text" && format != "json" {
		return nil, fmt.Errorf("unsupported log format: %s (supported: text, json)", format)
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: format,
		Output: w,
	}), nil
}
