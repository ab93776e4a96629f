// Package config provides configuration management for wakuwork builds
// using Viper for loading from files, environment variables, and
// command-line flags.
//
// Every option is optional. Load fills in the defaults the build pipeline
// expects and validates the values that end up in file-system paths.
package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
)

// Missing-entry policies for client entries the bundler produced no output for.
const (
	MissingEntryWarn   = "warn"
	MissingEntryError  = "error"
	MissingEntryIgnore = "ignore"
)

// Default values applied by Load.
const (
	DefaultDir       = "."
	DefaultBasePath  = "/"
	DefaultDist      = "dist"
	DefaultPublic    = "public"
	DefaultIndexHTML = "index.html"
	DefaultEntriesJS = "entries.js"
	DefaultTarget    = "es2020"
)

type Config struct {
	Build BuildConfig `mapstructure:"build" yaml:"build" json:"build"`
	Files FilesConfig `mapstructure:"files" yaml:"files" json:"files"`
}

type BuildConfig struct {
	Dir           string `mapstructure:"dir" yaml:"dir" json:"dir"`
	BasePath      string `mapstructure:"basePath" yaml:"basePath" json:"basePath"`
	ClientRuntime string `mapstructure:"clientRuntime" yaml:"clientRuntime,omitempty" json:"clientRuntime,omitempty"`
	MissingEntry  string `mapstructure:"missingEntry" yaml:"missingEntry" json:"missingEntry"`
	Minify        bool   `mapstructure:"minify" yaml:"minify" json:"minify"`
	Sourcemap     bool   `mapstructure:"sourcemap" yaml:"sourcemap" json:"sourcemap"`
	Target        string `mapstructure:"target" yaml:"target" json:"target"`
	Compress      bool   `mapstructure:"compress" yaml:"compress" json:"compress"`
}

type FilesConfig struct {
	Dist      string   `mapstructure:"dist" yaml:"dist" json:"dist"`
	Public    string   `mapstructure:"public" yaml:"public" json:"public"`
	IndexHTML string   `mapstructure:"indexHtml" yaml:"indexHtml" json:"indexHtml"`
	EntriesJS string   `mapstructure:"entriesJs" yaml:"entriesJs" json:"entriesJs"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// Keys lists every configuration key. Environment variables are bound for
// each of them so that Unmarshal sees overrides for keys no file or flag
// mentions.
var Keys = []string{
	"build.dir",
	"build.basePath",
	"build.clientRuntime",
	"build.missingEntry",
	"build.minify",
	"build.sourcemap",
	"build.target",
	"build.compress",
	"files.dist",
	"files.public",
	"files.indexHtml",
	"files.entriesJs",
	"files.exclude",
}

// Load reads the configuration from the global viper instance, applies
// defaults and validates the result.
func Load() (*Config, error) {
	for _, key := range Keys {
		if err := viper.BindEnv(key); err != nil {
			return nil, builderrors.NewInternalError("CONFIG_ENV", "failed to bind environment variable", err).
				WithContext("key", key)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, builderrors.NewIOError("CONFIG_DECODE", "failed to decode configuration", err)
	}

	// Handle exclude set via viper (workaround for viper slice handling)
	if viper.IsSet("files.exclude") && len(config.Files.Exclude) == 0 {
		config.Files.Exclude = viper.GetStringSlice("files.exclude")
	}

	if !viper.IsSet("build.minify") {
		config.Build.Minify = true
	}

	config.ApplyDefaults()

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	config := &Config{Build: BuildConfig{Minify: true}}
	config.ApplyDefaults()
	return config
}

// ApplyDefaults fills in every empty string or slice option. Boolean
// options are left untouched.
func (c *Config) ApplyDefaults() {
	if c.Build.Dir == "" {
		c.Build.Dir = DefaultDir
	}
	if c.Build.BasePath == "" {
		c.Build.BasePath = DefaultBasePath
	}
	if !strings.HasSuffix(c.Build.BasePath, "/") {
		c.Build.BasePath += "/"
	}
	if c.Build.MissingEntry == "" {
		c.Build.MissingEntry = MissingEntryWarn
	}
	if c.Build.Target == "" {
		c.Build.Target = DefaultTarget
	}

	if c.Files.Dist == "" {
		c.Files.Dist = DefaultDist
	}
	if c.Files.Public == "" {
		c.Files.Public = DefaultPublic
	}
	if c.Files.IndexHTML == "" {
		c.Files.IndexHTML = DefaultIndexHTML
	}
	if c.Files.EntriesJS == "" {
		c.Files.EntriesJS = DefaultEntriesJS
	}
	if len(c.Files.Exclude) == 0 {
		c.Files.Exclude = []string{"node_modules", ".git"}
	}
}

// Validate checks option values that become file-system paths.
func Validate(config *Config) error {
	switch config.Build.MissingEntry {
	case MissingEntryWarn, MissingEntryError, MissingEntryIgnore:
	default:
		return invalid("build.missingEntry", config.Build.MissingEntry,
			"must be one of warn, error, ignore")
	}

	if err := validateRelativeDir("files.dist", config.Files.Dist); err != nil {
		return err
	}
	if err := validateRelativeDir("files.public", config.Files.Public); err != nil {
		return err
	}

	for key, name := range map[string]string{
		"files.indexHtml": config.Files.IndexHTML,
		"files.entriesJs": config.Files.EntriesJS,
	} {
		if err := validateRelativeDir(key, name); err != nil {
			return err
		}
	}

	for _, name := range config.Files.Exclude {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return invalid("files.exclude", name, "must be a plain directory name")
		}
	}

	return nil
}

// validateRelativeDir rejects values that would place output outside the
// project root.
func validateRelativeDir(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(key, value, "must not be empty")
	}

	if filepath.IsAbs(value) {
		return invalid(key, value, "must be relative to the project root")
	}

	clean := filepath.Clean(value)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return invalid(key, value, "must stay inside the project root")
	}

	return nil
}

func invalid(key, value, reason string) error {
	return builderrors.NewValidationError("INVALID_CONFIG", key+" "+reason).
		WithContext("key", key).
		WithContext("value", value)
}
