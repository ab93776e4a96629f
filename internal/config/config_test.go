package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func() { viper.Reset() },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ".", cfg.Build.Dir)
				assert.Equal(t, "/", cfg.Build.BasePath)
				assert.Equal(t, "dist", cfg.Files.Dist)
				assert.Equal(t, "public", cfg.Files.Public)
				assert.Equal(t, "index.html", cfg.Files.IndexHTML)
				assert.Equal(t, "entries.js", cfg.Files.EntriesJS)
				assert.Equal(t, MissingEntryWarn, cfg.Build.MissingEntry)
				assert.Equal(t, []string{"node_modules", ".git"}, cfg.Files.Exclude)
				assert.True(t, cfg.Build.Minify)
				assert.False(t, cfg.Build.Compress)
			},
		},
		{
			name: "camel case keys",
			setup: func() {
				viper.Reset()
				viper.Set("build.dir", "./app")
				viper.Set("build.basePath", "/static")
				viper.Set("files.indexHtml", "main.html")
				viper.Set("files.entriesJs", "server-entries.js")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "./app", cfg.Build.Dir)
				assert.Equal(t, "/static/", cfg.Build.BasePath)
				assert.Equal(t, "main.html", cfg.Files.IndexHTML)
				assert.Equal(t, "server-entries.js", cfg.Files.EntriesJS)
			},
		},
		{
			name: "minify explicitly disabled",
			setup: func() {
				viper.Reset()
				viper.Set("build.minify", false)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Build.Minify)
			},
		},
		{
			name: "custom exclude list",
			setup: func() {
				viper.Reset()
				viper.Set("files.exclude", []string{"vendor"})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"vendor"}, cfg.Files.Exclude)
			},
		},
		{
			name: "undecodable value",
			setup: func() {
				viper.Reset()
				viper.Set("build.minify", "not-a-bool")
			},
			expectError: true,
		},
		{
			name: "dist escaping the root",
			setup: func() {
				viper.Reset()
				viper.Set("files.dist", "../out")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.SetEnvPrefix("WAKUWORK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	t.Setenv("WAKUWORK_FILES_DIST", "out")
	t.Setenv("WAKUWORK_BUILD_BASEPATH", "/app")
	t.Setenv("WAKUWORK_BUILD_MINIFY", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "out", cfg.Files.Dist)
	assert.Equal(t, "/app/", cfg.Build.BasePath)
	assert.False(t, cfg.Build.Minify)
	assert.Equal(t, DefaultPublic, cfg.Files.Public)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "nested dist", mutate: func(c *Config) { c.Files.Dist = "build/out" }},
		{name: "absolute dist", mutate: func(c *Config) { c.Files.Dist = "/tmp/dist" }, expectError: true},
		{name: "dist is root", mutate: func(c *Config) { c.Files.Dist = "." }, expectError: true},
		{name: "public escapes dist", mutate: func(c *Config) { c.Files.Public = "../../x" }, expectError: true},
		{name: "blank index html", mutate: func(c *Config) { c.Files.IndexHTML = "  " }, expectError: true},
		{name: "unknown policy", mutate: func(c *Config) { c.Build.MissingEntry = "panic" }, expectError: true},
		{name: "exclude with separator", mutate: func(c *Config) { c.Files.Exclude = []string{"a/b"} }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, builderrors.IsType(err, builderrors.ErrorTypeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cfg := Default()
	cfg.Build.Dir = root
	cfg.Files.Dist = "out"

	paths, err := cfg.Resolve()
	require.NoError(t, err)

	assert.Equal(t, root, paths.Root)
	assert.Equal(t, filepath.Join(root, "out"), paths.Dist)
	assert.Equal(t, "out", paths.DistRel)
	assert.Equal(t, filepath.Join(root, "out", "public"), paths.Public)
	assert.Equal(t, filepath.Join(root, "index.html"), paths.IndexHTML)
	assert.Equal(t, filepath.Join(root, "out", "entries.js"), paths.EntriesJS)
	assert.Equal(t, filepath.Join(root, "package.json"), paths.PackageJSON)
	assert.Equal(t, filepath.Join(root, "out", "package.json"), paths.DistPackageJSON)
}

func TestResolveRelativeRoot(t *testing.T) {
	cfg := Default()

	paths, err := cfg.Resolve()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(paths.Root))
}

func TestResolveFollowsSymlinkedRoot(t *testing.T) {
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	real := filepath.Join(base, "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	link := filepath.Join(base, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	cfg := Default()
	cfg.Build.Dir = link

	paths, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, real, paths.Root)
}

func TestResolveMissingRoot(t *testing.T) {
	cfg := Default()
	cfg.Build.Dir = filepath.Join(t.TempDir(), "does-not-exist")

	paths, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "does-not-exist", filepath.Base(paths.Root))
}
