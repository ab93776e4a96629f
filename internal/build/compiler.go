// Package build turns a project into a deployable output directory: it
// bundles the browser code, transpiles the server sources and writes the
// client-entry manifest and package descriptor.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/logging"
	"github.com/wakuwork/wakuwork/internal/scanner"
	"github.com/wakuwork/wakuwork/internal/walk"
)

// ProgressReporter receives compile progress. *progressbar.ProgressBar
// satisfies it.
type ProgressReporter interface {
	ChangeMax(max int)
	Add(num int) error
	Finish() error
}

type nopProgress struct{}

func (nopProgress) ChangeMax(int) {}
func (nopProgress) Add(int) error { return nil }
func (nopProgress) Finish() error { return nil }

// ServerCompiler transpiles server-side sources to CommonJS, one file at a
// time. Nothing is bundled or minified.
type ServerCompiler struct {
	fs       afero.Fs
	logger   logging.Logger
	skip     walk.SkipFunc
	progress ProgressReporter
}

// NewServerCompiler creates a compiler reading and writing through fsys.
// skip prunes additional directories (node_modules and the like); the
// output directory is always pruned.
func NewServerCompiler(fsys afero.Fs, logger logging.Logger, skip walk.SkipFunc) *ServerCompiler {
	return &ServerCompiler{
		fs:       fsys,
		logger:   logger.WithComponent("compiler"),
		skip:     skip,
		progress: nopProgress{},
	}
}

// SetProgress reports each compiled file to p.
func (c *ServerCompiler) SetProgress(p ProgressReporter) {
	if p == nil {
		p = nopProgress{}
	}
	c.progress = p
}

// Compile transpiles every source file under root, except those below
// root/outDir, to root/outDir/<rel> with a .js extension. It returns the
// number of files written. The first failure stops the pass; files already
// written stay in place.
func (c *ServerCompiler) Compile(ctx context.Context, root, outDir string) (int, error) {
	outRoot := filepath.Join(root, outDir)
	skip := walk.Any(walk.SkipPaths(outRoot), c.skip)

	var sources []string
	err := walk.Files(c.fs, root, skip, func(path string, _ os.FileInfo) error {
		if scanner.IsSourceFile(path) {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return 0, builderrors.NewIOError("WALK_FAILED", "failed to walk source tree", err).
			WithLocation(root, 0, 0)
	}

	c.progress.ChangeMax(len(sources))
	defer c.progress.Finish()

	compiled := 0
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return compiled, err
		}

		dst, err := OutputPath(root, outDir, src)
		if err != nil {
			return compiled, err
		}

		if err := c.compileFile(src, dst); err != nil {
			return compiled, err
		}

		compiled++
		c.logger.Debug(ctx, "Compiled server source", "source", src, "output", dst)
		_ = c.progress.Add(1)
	}

	return compiled, nil
}

func (c *ServerCompiler) compileFile(src, dst string) error {
	code, err := afero.ReadFile(c.fs, src)
	if err != nil {
		return builderrors.NewIOError("READ_FAILED", "failed to read source file", err).
			WithLocation(src, 0, 0)
	}

	out, err := CompileSource(src, code)
	if err != nil {
		return err
	}

	if err := c.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return builderrors.NewIOError("MKDIR_FAILED", "failed to create output directory", err).
			WithLocation(dst, 0, 0)
	}

	if err := afero.WriteFile(c.fs, dst, out, 0o644); err != nil {
		return builderrors.NewIOError("WRITE_FAILED", "failed to write compiled source", err).
			WithLocation(dst, 0, 0)
	}

	return nil
}

// CompileSource transpiles a single module to CommonJS. JSX becomes
// React.createElement calls and TypeScript types are stripped.
func CompileSource(path string, code []byte) ([]byte, error) {
	loader, ok := scanner.LoaderFor(path)
	if !ok {
		loader = api.LoaderJS
	}

	result := api.Transform(string(code), api.TransformOptions{
		Loader:     loader,
		Sourcefile: path,
		Format:     api.FormatCommonJS,
		Platform:   api.PlatformNode,
		Target:     api.ES2020,
		JSX:        api.JSXTransform,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, builderrors.FromMessages(builderrors.ErrorTypeParse, "COMPILE_FAILED", result.Errors)
	}

	return result.Code, nil
}

// OutputPath maps a source file below root to its compiled location below
// root/outDir, replacing the extension with .js.
func OutputPath(root, outDir, src string) (string, error) {
	rel, err := filepath.Rel(root, src)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("source %s is outside %s", src, root)
	}

	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".js"
	return filepath.Join(root, outDir, rel), nil
}
