package build

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/spf13/afero"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/walk"
)

// CompressionQuality is the brotli level used for public assets.
const CompressionQuality = 6

var compressible = map[string]bool{
	".js":   true,
	".css":  true,
	".html": true,
	".json": true,
	".svg":  true,
}

// CompressAssets writes a .br sibling for every compressible file under
// dir and returns how many were written.
func CompressAssets(ctx context.Context, fsys afero.Fs, dir string) (int, error) {
	var files []string
	err := walk.Files(fsys, dir, nil, func(path string, _ os.FileInfo) error {
		if compressible[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, builderrors.NewIOError("WALK_FAILED", "failed to walk public directory", err).
			WithLocation(dir, 0, 0)
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := compressFile(fsys, path); err != nil {
			return i, builderrors.NewIOError("COMPRESS_FAILED", "failed to compress asset", err).
				WithLocation(path, 0, 0)
		}
	}

	return len(files), nil
}

func compressFile(fsys afero.Fs, path string) error {
	in, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.Create(path + ".br")
	if err != nil {
		return err
	}
	defer out.Close()

	bw := brotli.NewWriterLevel(out, CompressionQuality)
	if _, err := io.Copy(bw, in); err != nil {
		return err
	}

	if err := bw.Close(); err != nil {
		return err
	}

	return out.Close()
}
