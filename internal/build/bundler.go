package build

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/logging"
	"github.com/wakuwork/wakuwork/internal/scanner"
)

// BundleOptions configures one invocation of the browser bundler.
type BundleOptions struct {
	// Root is the working directory every relative path resolves against.
	Root string
	// OutDir receives the emitted files.
	OutDir string
	// BasePath is the public URL prefix of OutDir, ending in "/".
	BasePath string
	// Entries are the logical entry points, keyed by name.
	Entries []scanner.Entry
	Alias   map[string]string
	Plugins []api.Plugin
	Minify  bool
	// Sourcemap emits linked source maps next to each output.
	Sourcemap bool
	Target    string
}

// OutputUnit is one emitted entry point.
type OutputUnit struct {
	// Name is the logical entry name (rsc0, main0, ...).
	Name string
	// FileName is the emitted file, relative to the output directory and
	// slash separated.
	FileName string
	// EntryPoint is the absolute source path of the entry.
	EntryPoint string
	// CSSBundle is the stylesheet esbuild split out of a JS entry, if any.
	CSSBundle string
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

// ParseTarget maps a target name such as "es2020" to the esbuild value.
func ParseTarget(name string) (api.Target, error) {
	if name == "" {
		return api.ES2020, nil
	}
	target, ok := targets[strings.ToLower(name)]
	if !ok {
		return api.DefaultTarget, builderrors.NewValidationError("INVALID_TARGET",
			fmt.Sprintf("unknown build target %q", name))
	}
	return target, nil
}

// Bundler produces the browser bundle with esbuild.
type Bundler struct {
	logger logging.Logger
}

// NewBundler creates a bundler.
func NewBundler(logger logging.Logger) *Bundler {
	return &Bundler{logger: logger.WithComponent("bundler")}
}

// Bundle builds every entry into opts.OutDir and returns the emitted units
// sorted by name. Entries sharing a source file are bundled once and
// reported under each of their names. Cancelling ctx cancels the esbuild
// build.
func (b *Bundler) Bundle(ctx context.Context, opts BundleOptions) ([]OutputUnit, error) {
	target, err := ParseTarget(opts.Target)
	if err != nil {
		return nil, err
	}

	namesByPath := make(map[string][]string)
	var entryPoints []string
	for _, entry := range opts.Entries {
		path := filepath.Clean(entry.Path)
		if _, seen := namesByPath[path]; !seen {
			entryPoints = append(entryPoints, path)
		}
		namesByPath[path] = append(namesByPath[path], entry.Name)
	}

	sourcemap := api.SourceMapNone
	if opts.Sourcemap {
		sourcemap = api.SourceMapLinked
	}

	buildOptions := api.BuildOptions{
		AbsWorkingDir:     opts.Root,
		EntryPoints:       entryPoints,
		Outdir:            opts.OutDir,
		Outbase:           opts.Root,
		EntryNames:        "assets/[dir]/[name]-[hash]",
		ChunkNames:        "assets/chunk-[hash]",
		AssetNames:        "assets/[name]-[hash]",
		PublicPath:        opts.BasePath,
		Bundle:            true,
		Splitting:         true,
		Write:             true,
		Metafile:          true,
		Format:            api.FormatESModule,
		Platform:          api.PlatformBrowser,
		Target:            target,
		JSX:               api.JSXAutomatic,
		Alias:             opts.Alias,
		Plugins:           opts.Plugins,
		Sourcemap:         sourcemap,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		Loader: map[string]api.Loader{
			".js":  api.LoaderJSX,
			".svg": api.LoaderFile,
			".png": api.LoaderFile,
		},
		Define: map[string]string{
			"process.env.NODE_ENV": `"production"`,
		},
		LogLevel: api.LogLevelSilent,
	}

	esctx, ctxErr := api.Context(buildOptions)
	if ctxErr != nil {
		return nil, builderrors.FromMessages(builderrors.ErrorTypeBundle, "BUNDLE_CONFIG", ctxErr.Errors)
	}
	defer esctx.Dispose()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			esctx.Cancel()
		case <-done:
		}
	}()

	b.logger.Debug(ctx, "Running esbuild", "entries", len(entryPoints), "outdir", opts.OutDir)
	result := esctx.Rebuild()
	close(done)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, warning := range result.Warnings {
		b.logger.Warn(ctx, builderrors.FromMessage(builderrors.ErrorTypeBundle, "BUNDLE_WARNING", warning),
			"esbuild warning")
	}

	if len(result.Errors) > 0 {
		return nil, builderrors.FromMessages(builderrors.ErrorTypeBundle, "BUNDLE_FAILED", result.Errors)
	}

	meta, err := ParseMetafile(result.Metafile)
	if err != nil {
		return nil, builderrors.NewInternalError("METAFILE", "unreadable bundler metadata", err)
	}

	return collectUnits(opts.Root, opts.OutDir, meta, namesByPath)
}

// collectUnits maps metafile outputs back to the logical names of the
// entries they were built from.
func collectUnits(root, outDir string, meta *Metafile, namesByPath map[string][]string) ([]OutputUnit, error) {
	keys := make([]string, 0, len(meta.Outputs))
	for key := range meta.Outputs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var units []OutputUnit
	for _, key := range keys {
		output := meta.Outputs[key]
		if output.EntryPoint == "" {
			continue
		}

		source := resolveMetaPath(root, output.EntryPoint)
		names, ok := namesByPath[source]
		if !ok {
			continue
		}

		outExt := strings.ToLower(filepath.Ext(key))
		srcExt := strings.ToLower(filepath.Ext(source))
		if outExt != ".js" && !(outExt == ".css" && srcExt == ".css") {
			continue
		}

		fileName, err := relSlash(outDir, resolveMetaPath(root, key))
		if err != nil {
			return nil, err
		}

		var cssBundle string
		if output.CSSBundle != "" {
			if cssBundle, err = relSlash(outDir, resolveMetaPath(root, output.CSSBundle)); err != nil {
				return nil, err
			}
		}

		for _, name := range names {
			units = append(units, OutputUnit{
				Name:       name,
				FileName:   fileName,
				EntryPoint: source,
				CSSBundle:  cssBundle,
			})
		}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	return units, nil
}

// resolveMetaPath turns a metafile path, which is relative to the working
// directory and slash separated, into an absolute path.
func resolveMetaPath(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

func relSlash(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", target, err)
	}
	return filepath.ToSlash(rel), nil
}
