package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/logging"
)

// PackageDescriptor is the package.json written to the output directory.
// Name, version and dependencies are copied verbatim from the project.
type PackageDescriptor struct {
	Name         json.RawMessage `json:"name,omitempty"`
	Version      json.RawMessage `json:"version,omitempty"`
	Private      bool            `json:"private"`
	Type         string          `json:"type"`
	Dependencies json.RawMessage `json:"dependencies,omitempty"`
}

// TrimPackageDescriptor keeps the deployable subset of a package.json.
func TrimPackageDescriptor(raw []byte) (*PackageDescriptor, error) {
	var source struct {
		Name         json.RawMessage `json:"name"`
		Version      json.RawMessage `json:"version"`
		Dependencies json.RawMessage `json:"dependencies"`
	}
	if err := json.Unmarshal(raw, &source); err != nil {
		return nil, err
	}

	return &PackageDescriptor{
		Name:         source.Name,
		Version:      source.Version,
		Private:      true,
		Type:         "commonjs",
		Dependencies: source.Dependencies,
	}, nil
}

// WritePackageDescriptor reads the project's package.json at src and writes
// the trimmed descriptor to dst. A version that is not a semantic version
// is copied as is and logged.
func WritePackageDescriptor(ctx context.Context, fsys afero.Fs, src, dst string, logger logging.Logger) error {
	raw, err := afero.ReadFile(fsys, src)
	if err != nil {
		return builderrors.NewIOError("READ_FAILED", "failed to read package.json", err).
			WithLocation(src, 0, 0)
	}

	desc, err := TrimPackageDescriptor(raw)
	if err != nil {
		return builderrors.NewParseError("PACKAGE_JSON", "failed to parse package.json", err).
			WithLocation(src, 0, 0)
	}

	if len(desc.Version) > 0 {
		var version string
		if err := json.Unmarshal(desc.Version, &version); err != nil {
			logger.Warn(ctx, err, "package.json version is not a string", "path", src)
		} else if _, err := semver.NewVersion(version); err != nil {
			logger.Warn(ctx, err, "package.json version is not a semantic version",
				"path", src, "version", version)
		}
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(desc); err != nil {
		return fmt.Errorf("failed to encode package descriptor: %w", err)
	}

	if err := afero.WriteFile(fsys, dst, out.Bytes(), 0o644); err != nil {
		return builderrors.NewIOError("WRITE_FAILED", "failed to write package.json", err).
			WithLocation(dst, 0, 0)
	}

	return nil
}
