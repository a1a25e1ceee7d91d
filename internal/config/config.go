// Package config provides configuration management for sitegen using Viper
// for flexible loading from files, environment variables and command-line
// flags.
//
// Precedence, highest first: command-line flags, SITEGEN_<SECTION>_<KEY>
// environment variables, the .sitegen.yml file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/conneroisu/sitegen/internal/logging"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SITEGEN"

// FileName is the base name of the configuration file, without extension.
const FileName = ".sitegen"

type Config struct {
	Site  SiteConfig  `mapstructure:"site" yaml:"site"`
	Build BuildConfig `mapstructure:"build" yaml:"build"`
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// SiteConfig is exposed to templates as .Site.
type SiteConfig struct {
	Title      string                 `mapstructure:"title" yaml:"title"`
	BaseURL    string                 `mapstructure:"base_url" yaml:"base_url"`
	Params     map[string]interface{} `mapstructure:"params" yaml:"params,omitempty"`
	ParamsFile string                 `mapstructure:"params_file" yaml:"params_file,omitempty"`
}

type BuildConfig struct {
	TemplateDir    string `mapstructure:"template_dir" yaml:"template_dir"`
	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir"`
	TemplateExt    string `mapstructure:"template_ext" yaml:"template_ext"`
	HiddenPrefix   string `mapstructure:"hidden_prefix" yaml:"hidden_prefix"`
	Workers        int    `mapstructure:"workers" yaml:"workers"`
	CleanMissingOK bool   `mapstructure:"clean_missing_ok" yaml:"clean_missing_ok"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultWorkers is min(NumCPU, 8).
func DefaultWorkers() int {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("site.title", "My Site")
	v.SetDefault("site.base_url", "/")
	v.SetDefault("build.template_dir", "Template")
	v.SetDefault("build.output_dir", "Output")
	v.SetDefault("build.template_ext", "html")
	v.SetDefault("build.hidden_prefix", ".")
	v.SetDefault("build.workers", DefaultWorkers())
	v.SetDefault("build.clean_missing_ok", false)
	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadFrom(v)
	if err != nil {
		// The defaults are static and always valid.
		panic(err)
	}
	return cfg
}

// LoadFrom reads, normalizes and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to decode configuration: %v", err))
	}

	if config.Site.Params == nil {
		config.Site.Params = make(map[string]interface{})
	}

	if config.Site.ParamsFile != "" {
		if err := config.loadParamsFile(paramsFilePath(v, config.Site.ParamsFile)); err != nil {
			return nil, err
		}
	}

	config.Build.TemplateExt = strings.TrimPrefix(config.Build.TemplateExt, ".")

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// paramsFilePath resolves a relative params_file written in a config file
// against that file's directory. Values from flags or the environment stay
// relative to the working directory.
func paramsFilePath(v *viper.Viper, path string) string {
	used := v.ConfigFileUsed()
	if filepath.IsAbs(path) || used == "" || !v.InConfig("site.params_file") {
		return path
	}
	if _, overridden := os.LookupEnv(EnvPrefix + "_SITE_PARAMS_FILE"); overridden {
		return path
	}
	return filepath.Join(filepath.Dir(used), path)
}

// loadParamsFile merges a YAML mapping into Site.Params. Keys already set in
// the main configuration win.
func (c *Config) loadParamsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewConfigError(fmt.Sprintf("failed to read params file %s: %v", path, err))
	}

	params := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &params); err != nil {
		return errors.NewConfigError(fmt.Sprintf("failed to parse params file %s: %v", path, err))
	}

	for k, v := range params {
		if _, exists := c.Site.Params[k]; !exists {
			c.Site.Params[k] = v
		}
	}
	return nil
}

// Validate checks configuration values for correctness.
func Validate(config *Config) error {
	b := config.Build

	if strings.TrimSpace(b.TemplateDir) == "" {
		return errors.NewConfigError("build.template_dir must not be empty")
	}
	if strings.TrimSpace(b.OutputDir) == "" {
		return errors.NewConfigError("build.output_dir must not be empty")
	}
	if Nested(b.TemplateDir, b.OutputDir) || Nested(b.OutputDir, b.TemplateDir) {
		return errors.NewConfigError(fmt.Sprintf(
			"build.template_dir (%s) and build.output_dir (%s) must be distinct, non-nested directories",
			b.TemplateDir, b.OutputDir))
	}

	ext := strings.TrimPrefix(b.TemplateExt, ".")
	if ext == "" {
		return errors.NewConfigError("build.template_ext must not be empty")
	}
	if strings.ContainsAny(ext, `/\.`) {
		return errors.NewConfigError(fmt.Sprintf("build.template_ext %q must be a single extension", b.TemplateExt))
	}

	if b.HiddenPrefix == "" {
		return errors.NewConfigError("build.hidden_prefix must not be empty")
	}
	if b.Workers < 1 {
		return errors.NewConfigError(fmt.Sprintf("build.workers must be at least 1, got %d", b.Workers))
	}

	if config.Watch.Debounce < 0 {
		return errors.NewConfigError("watch.debounce must not be negative")
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return errors.NewConfigError(err.Error())
	}
	switch config.Log.Format {
	case "text", "json":
	default:
		return errors.NewConfigError(fmt.Sprintf("log.format must be text or json, got %q", config.Log.Format))
	}

	return nil
}

// Nested reports whether child is parent or lies inside it.
func Nested(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// BindFlags binds the global command-line flags present in fs to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"log.level":              "log-level",
		"log.format":             "log-format",
		"build.workers":          "workers",
		"build.clean_missing_ok": "missing-ok",
		"site.params_file":       "params",
	}

	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// starterFile is the subset of Config written by `sitegen new`.
type starterFile struct {
	Site  SiteConfig  `yaml:"site"`
	Build BuildConfig `yaml:"build"`
}

// StarterYAML renders the site and build sections of c as a .sitegen.yml body.
func (c *Config) StarterYAML() ([]byte, error) {
	site := c.Site
	if len(site.Params) == 0 {
		site.Params = nil
	}
	return yaml.Marshal(starterFile{Site: site, Build: c.Build})
}
