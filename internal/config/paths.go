package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the absolute locations a build reads from and writes to.
type Paths struct {
	Root            string
	Dist            string
	DistRel         string
	Public          string
	IndexHTML       string
	EntriesJS       string
	PackageJSON     string
	DistPackageJSON string
}

// Resolve turns the configured names into absolute paths. The output
// directory is always relative to the project root. An existing root is
// resolved through symbolic links so that paths reported by the bundler,
// which are real paths, share its prefix.
func (c *Config) Resolve() (*Paths, error) {
	root, err := filepath.Abs(c.Build.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", c.Build.Dir, err)
	}

	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", c.Build.Dir, err)
	}

	distRel := filepath.Clean(c.Files.Dist)
	dist := filepath.Join(root, distRel)

	return &Paths{
		Root:            root,
		Dist:            dist,
		DistRel:         distRel,
		Public:          filepath.Join(dist, c.Files.Public),
		IndexHTML:       filepath.Join(root, c.Files.IndexHTML),
		EntriesJS:       filepath.Join(dist, c.Files.EntriesJS),
		PackageJSON:     filepath.Join(root, "package.json"),
		DistPackageJSON: filepath.Join(dist, "package.json"),
	}, nil
}
