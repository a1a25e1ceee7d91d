package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conneroisu/sitegen/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "Template", cfg.Build.TemplateDir)
	assert.Equal(t, "Output", cfg.Build.OutputDir)
	assert.Equal(t, "html", cfg.Build.TemplateExt)
	assert.Equal(t, ".", cfg.Build.HiddenPrefix)
	assert.Equal(t, DefaultWorkers(), cfg.Build.Workers)
	assert.False(t, cfg.Build.CleanMissingOK)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NotNil(t, cfg.Site.Params)
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "custom directories",
			setup: func(v *viper.Viper) {
				v.Set("build.template_dir", "src")
				v.Set("build.output_dir", "public")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "src", cfg.Build.TemplateDir)
				assert.Equal(t, "public", cfg.Build.OutputDir)
			},
		},
		{
			name: "leading dot on template extension is stripped",
			setup: func(v *viper.Viper) {
				v.Set("build.template_ext", ".tmpl")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "tmpl", cfg.Build.TemplateExt)
			},
		},
		{
			name: "workers from string",
			setup: func(v *viper.Viper) {
				v.Set("build.workers", "3")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.Build.Workers)
			},
		},
		{
			name: "debounce from string",
			setup: func(v *viper.Viper) {
				v.Set("watch.debounce", "1s")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, time.Second, cfg.Watch.Debounce)
			},
		},
		{
			name:        "zero workers",
			setup:       func(v *viper.Viper) { v.Set("build.workers", 0) },
			expectError: true,
		},
		{
			name: "same template and output directory",
			setup: func(v *viper.Viper) {
				v.Set("build.template_dir", "site")
				v.Set("build.output_dir", "site/")
			},
			expectError: true,
		},
		{
			name: "output nested in template",
			setup: func(v *viper.Viper) {
				v.Set("build.output_dir", "Template/out")
			},
			expectError: true,
		},
		{
			name: "template nested in output",
			setup: func(v *viper.Viper) {
				v.Set("build.template_dir", "Output/src")
			},
			expectError: true,
		},
		{
			name:        "compound extension",
			setup:       func(v *viper.Viper) { v.Set("build.template_ext", "tar.gz") },
			expectError: true,
		},
		{
			name:        "empty hidden prefix",
			setup:       func(v *viper.Viper) { v.Set("build.hidden_prefix", "") },
			expectError: true,
		},
		{
			name:        "unknown log level",
			setup:       func(v *viper.Viper) { v.Set("log.level", "chatty") },
			expectError: true,
		},
		{
			name:        "unknown log format",
			setup:       func(v *viper.Viper) { v.Set("log.format", "xml") },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.IsConfigError(err))
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sitegen.yml")
	content := `site:
  title: Field Notes
  base_url: https://notes.example.com/
build:
  workers: 2
  clean_missing_ok: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "Field Notes", cfg.Site.Title)
	assert.Equal(t, "https://notes.example.com/", cfg.Site.BaseURL)
	assert.Equal(t, 2, cfg.Build.Workers)
	assert.True(t, cfg.Build.CleanMissingOK)
	assert.Equal(t, "Template", cfg.Build.TemplateDir)
}

func TestParamsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yml")
	require.NoError(t, os.WriteFile(path, []byte("author: Ada\nnav:\n  - home\n  - about\n"), 0644))

	v := viper.New()
	v.Set("site.params_file", path)
	v.Set("site.params", map[string]interface{}{"author": "Grace"})

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "Grace", cfg.Site.Params["author"])
	assert.Equal(t, []interface{}{"home", "about"}, cfg.Site.Params["nav"])
}

func TestParamsFileRelativeToConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sitegen.yml"), []byte("site:\n  params_file: params.yml\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "params.yml"), []byte("author: Ada\n"), 0644))

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, ".sitegen.yml"))
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "Ada", cfg.Site.Params["author"])
}

func TestParamsFileMissing(t *testing.T) {
	v := viper.New()
	v.Set("site.params_file", filepath.Join(t.TempDir(), "absent.yml"))

	_, err := LoadFrom(v)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestBindFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "info", "")
	fs.Int("workers", 0, "")
	require.NoError(t, fs.Parse([]string{"--log-level=debug", "--workers=5"}))

	v := viper.New()
	require.NoError(t, BindFlags(v, fs))

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Build.Workers)
}

func TestStarterYAML(t *testing.T) {
	cfg := Default()
	cfg.Site.Title = "Starter"

	data, err := cfg.StarterYAML()
	require.NoError(t, err)

	var decoded map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "Starter", decoded["site"]["title"])
	assert.Equal(t, "Template", decoded["build"]["template_dir"])
	assert.NotContains(t, decoded["site"], "params")
	assert.NotContains(t, decoded, "watch")
}

func TestNested(t *testing.T) {
	assert.True(t, Nested("Template", "Template"))
	assert.True(t, Nested("Template", "Template/a"))
	assert.False(t, Nested("Template", "Output"))
	assert.False(t, Nested("Template", "../Template"))
	assert.False(t, Nested("a/b", "a"))
}
