package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/wakuwork/wakuwork/internal/config"
	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/logging"
	"github.com/wakuwork/wakuwork/internal/plugins"
	"github.com/wakuwork/wakuwork/internal/runtime"
	"github.com/wakuwork/wakuwork/internal/scanner"
	"github.com/wakuwork/wakuwork/internal/walk"
)

// Pipeline runs one complete build of a project.
type Pipeline struct {
	cfg         *config.Config
	fs          afero.Fs
	logger      logging.Logger
	stdout      io.Writer
	htmlPlugins []plugins.HTMLPlugin
	progress    ProgressReporter
	clean       bool
}

// Result describes a finished build.
type Result struct {
	Paths         *config.Paths
	ClientEntries []scanner.Entry
	Units         []OutputUnit
	Manifest      Manifest
	Compiled      int
	Compressed    int
	Duration      time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStdout sets where the manifest listing is printed.
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = w
	}
}

// WithHTMLPlugins adds HTML plugins that run after the module loader shim.
func WithHTMLPlugins(htmlPlugins ...plugins.HTMLPlugin) Option {
	return func(p *Pipeline) {
		p.htmlPlugins = append(p.htmlPlugins, htmlPlugins...)
	}
}

// WithProgress reports server compilation progress to r.
func WithProgress(r ProgressReporter) Option {
	return func(p *Pipeline) {
		p.progress = r
	}
}

// WithClean removes the output directory before building.
func WithClean(clean bool) Option {
	return func(p *Pipeline) {
		p.clean = clean
	}
}

// NewPipeline creates a pipeline for cfg. The bundler writes straight to
// disk, so the pipeline always works on the OS file system.
func NewPipeline(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		logger: logging.NewNopLogger(),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("pipeline")
	return p
}

// RunBuild builds the project described by cfg.
func RunBuild(ctx context.Context, cfg *config.Config, opts ...Option) error {
	_, err := NewPipeline(cfg, opts...).Run(ctx)
	return err
}

// Run executes every build step in order. It stops at the first failure and
// leaves whatever was already written in place.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	paths, err := p.cfg.Resolve()
	if err != nil {
		return nil, err
	}
	result := &Result{Paths: paths}

	if p.clean {
		if err := p.fs.RemoveAll(paths.Dist); err != nil {
			return nil, builderrors.NewIOError("CLEAN_FAILED", "failed to remove output directory", err).
				WithLocation(paths.Dist, 0, 0)
		}
	}

	skip := walk.Any(walk.SkipNames(p.cfg.Files.Exclude...), walk.SkipPaths(paths.Dist))

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"scan", func(ctx context.Context) error {
			found, err := scanner.NewClientEntryScanner(p.fs,
				scanner.WithSkip(skip),
				scanner.WithLogger(p.logger),
			).Scan(ctx, paths.Root)
			if err != nil {
				return err
			}
			result.ClientEntries = scanner.NameEntries(found)
			return nil
		}},
		{"bundle", func(ctx context.Context) error {
			units, err := p.bundle(ctx, paths, result.ClientEntries)
			if err != nil {
				return err
			}
			result.Units = units
			return nil
		}},
		{"manifest", func(ctx context.Context) error {
			manifest, err := BuildManifest(ctx, paths.Root, result.ClientEntries, result.Units,
				p.cfg.Build.MissingEntry, p.logger)
			if err != nil {
				return err
			}
			result.Manifest = manifest
			PrintManifest(p.stdout, manifest)
			return nil
		}},
		{"compile", func(ctx context.Context) error {
			compiler := NewServerCompiler(p.fs, p.logger, walk.SkipNames(p.cfg.Files.Exclude...))
			compiler.SetProgress(p.progress)
			n, err := compiler.Compile(ctx, paths.Root, paths.DistRel)
			result.Compiled = n
			return err
		}},
		{"entries", func(ctx context.Context) error {
			return WriteClientEntries(p.fs, paths.EntriesJS, result.Manifest)
		}},
		{"descriptor", func(ctx context.Context) error {
			return WritePackageDescriptor(ctx, p.fs, paths.PackageJSON, paths.DistPackageJSON, p.logger)
		}},
		{"compress", func(ctx context.Context) error {
			if !p.cfg.Build.Compress {
				return nil
			}
			n, err := CompressAssets(ctx, p.fs, paths.Public)
			result.Compressed = n
			return err
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		perf := logging.StartOperation(p.logger, step.name)
		if err := step.run(ctx); err != nil {
			perf.EndWithError(ctx, err)
			return nil, fmt.Errorf("%s step failed: %w", step.name, err)
		}
		perf.End(ctx)
	}

	result.Duration = time.Since(start)
	p.logger.Info(ctx, "Build completed",
		"client_entries", len(result.ClientEntries),
		"compiled", result.Compiled,
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

// bundle builds the HTML entry and the client entries into the public
// directory and writes the processed HTML next to them.
func (p *Pipeline) bundle(ctx context.Context, paths *config.Paths, clientEntries []scanner.Entry) ([]OutputUnit, error) {
	htmlEntry, err := LoadHTMLEntry(p.fs, paths.Root, paths.IndexHTML)
	if err != nil {
		return nil, err
	}

	entries := append(htmlEntry.Entries(), clientEntries...)

	var units []OutputUnit
	if len(entries) > 0 {
		alias, esPlugins := p.clientRuntime(paths.Root)
		units, err = NewBundler(p.logger).Bundle(ctx, BundleOptions{
			Root:      paths.Root,
			OutDir:    paths.Public,
			BasePath:  p.cfg.Build.BasePath,
			Entries:   entries,
			Alias:     alias,
			Plugins:   esPlugins,
			Minify:    p.cfg.Build.Minify,
			Sourcemap: p.cfg.Build.Sourcemap,
			Target:    p.cfg.Build.Target,
		})
		if err != nil {
			return nil, err
		}
	}

	htmlEntry.Rewrite(units, p.cfg.Build.BasePath)

	htmlPlugins := append([]plugins.HTMLPlugin{plugins.ModuleLoaderShim{}}, p.htmlPlugins...)
	rendered, err := htmlEntry.Render(ctx, htmlPlugins...)
	if err != nil {
		return nil, err
	}

	out := filepath.Join(paths.Public, p.cfg.Files.IndexHTML)
	if err := p.fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, builderrors.NewIOError("MKDIR_FAILED", "failed to create public directory", err).
			WithLocation(out, 0, 0)
	}
	if err := afero.WriteFile(p.fs, out, []byte(rendered), 0o644); err != nil {
		return nil, builderrors.NewIOError("WRITE_FAILED", "failed to write HTML entry", err).
			WithLocation(out, 0, 0)
	}

	return units, nil
}

// clientRuntime returns how the bundler resolves the client runtime
// import: the embedded module by default, or the configured file.
func (p *Pipeline) clientRuntime(root string) (map[string]string, []api.Plugin) {
	override := p.cfg.Build.ClientRuntime
	if override == "" {
		return nil, []api.Plugin{runtime.Plugin(root)}
	}

	path := override
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	if rel, err := filepath.Rel(root, path); err == nil && rel != ".." &&
		!strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return runtime.Alias("./" + filepath.ToSlash(rel)), nil
	}

	return runtime.Alias(path), nil
}
