package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/wakuwork/wakuwork/internal/config"
	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/logging"
	"github.com/wakuwork/wakuwork/internal/scanner"
)

// Manifest maps project-relative client-entry source paths to the file the
// bundler emitted for them, relative to the public directory.
type Manifest map[string]string

// Keys returns the manifest keys in sorted order.
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// BuildManifest pairs every client entry with its emitted unit. Keys are
// slash separated and NFC normalized. An entry without an emitted unit is
// handled according to policy: dropped with a warning, dropped silently, or
// reported as an error.
func BuildManifest(
	ctx context.Context,
	root string,
	entries []scanner.Entry,
	units []OutputUnit,
	policy string,
	logger logging.Logger,
) (Manifest, error) {
	byName := make(map[string]OutputUnit, len(units))
	for _, unit := range units {
		byName[unit.Name] = unit
	}

	manifest := make(Manifest, len(entries))
	for _, entry := range entries {
		rel, err := filepath.Rel(root, entry.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize client entry %s: %w", entry.Path, err)
		}
		key := norm.NFC.String(filepath.ToSlash(rel))

		unit, ok := byName[entry.Name]
		if !ok {
			switch policy {
			case config.MissingEntryError:
				return nil, builderrors.NewBundleError("MISSING_ENTRY",
					fmt.Sprintf("bundler emitted no output for client entry %s", entry.Name), nil).
					WithLocation(entry.Path, 0, 0).
					WithContext("entry", entry.Name)
			case config.MissingEntryIgnore:
			default:
				logger.Warn(ctx, nil, "Bundler emitted no output for client entry",
					"entry", entry.Name, "path", key)
			}
			continue
		}

		manifest[key] = unit.FileName
	}

	return manifest, nil
}

// EncodeClientEntries renders the line appended to the server entries
// module.
func EncodeClientEntries(manifest Manifest) ([]byte, error) {
	if manifest == nil {
		manifest = Manifest{}
	}

	var buf bytes.Buffer
	buf.WriteString("exports.clientEntries=")

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(manifest); err != nil {
		return nil, fmt.Errorf("failed to encode client entries: %w", err)
	}

	// Encode terminates with a newline; the statement ends first.
	buf.Truncate(buf.Len() - 1)
	buf.WriteString(";\n")
	return buf.Bytes(), nil
}

// WriteClientEntries appends the manifest to the entries module at path,
// creating the file when the project has none.
func WriteClientEntries(fsys afero.Fs, path string, manifest Manifest) error {
	line, err := EncodeClientEntries(manifest)
	if err != nil {
		return err
	}

	existing, err := afero.ReadFile(fsys, path)
	if err != nil && !os.IsNotExist(err) {
		return builderrors.NewIOError("READ_FAILED", "failed to read entries module", err).
			WithLocation(path, 0, 0)
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return builderrors.NewIOError("MKDIR_FAILED", "failed to create output directory", err).
			WithLocation(path, 0, 0)
	}

	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return builderrors.NewIOError("WRITE_FAILED", "failed to open entries module", err).
			WithLocation(path, 0, 0)
	}
	defer f.Close()

	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		line = append([]byte{'\n'}, line...)
	}

	if _, err := f.Write(line); err != nil {
		return builderrors.NewIOError("WRITE_FAILED", "failed to append client entries", err).
			WithLocation(path, 0, 0)
	}

	return f.Close()
}

// PrintManifest writes a human-readable listing of the manifest to w.
func PrintManifest(w io.Writer, manifest Manifest) {
	if len(manifest) == 0 {
		fmt.Fprintln(w, "📦 No client entries")
		return
	}

	fmt.Fprintf(w, "📦 Client entries (%d):\n", len(manifest))
	for _, key := range manifest.Keys() {
		fmt.Fprintf(w, "  %s → %s\n", key, manifest[key])
	}
}
