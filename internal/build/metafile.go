package build

import (
	"encoding/json"
	"fmt"
)

// Metafile is the part of esbuild's metafile the bundler reads.
type Metafile struct {
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileOutput is one output file. Chunks have no entry point.
type MetafileOutput struct {
	EntryPoint string `json:"entryPoint,omitempty"`
	CSSBundle  string `json:"cssBundle,omitempty"`
}

// ParseMetafile decodes the metafile string returned by esbuild.
func ParseMetafile(raw string) (*Metafile, error) {
	var meta Metafile
	if raw == "" {
		return &meta, nil
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to decode esbuild metafile: %w", err)
	}
	return &meta, nil
}
