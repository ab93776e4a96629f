package scanner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/wakuwork/wakuwork/internal/errors"
	"github.com/wakuwork/wakuwork/internal/walk"
)

func TestIsClientBoundary(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		source   string
		expected bool
	}{
		{
			name:     "double quoted directive",
			path:     "Counter.jsx",
			source:   "\"use client\";\nexport const Counter = () => <button>+</button>;\n",
			expected: true,
		},
		{
			name:     "single quoted directive without semicolon",
			path:     "Counter.js",
			source:   "'use client'\nexport default function Counter() { return <div/>; }\n",
			expected: true,
		},
		{
			name:     "leading comments are not statements",
			path:     "Counter.tsx",
			source:   "// Counter widget\n/* shared */\n\"use client\";\nexport const n: number = 1;\n",
			expected: true,
		},
		{
			name:     "typescript annotations",
			path:     "hooks.ts",
			source:   "\"use client\";\nexport function useCount(start: number): number { return start; }\n",
			expected: true,
		},
		{
			name:     "directive after an import",
			path:     "App.jsx",
			source:   "import React from \"react\";\n\"use client\";\nexport const App = () => <div/>;\n",
			expected: false,
		},
		{
			name:     "directive inside a function",
			path:     "inner.js",
			source:   "export function f() {\n  \"use client\";\n  return 1;\n}\n",
			expected: false,
		},
		{
			name:     "different directive",
			path:     "action.js",
			source:   "\"use server\";\nexport async function save() {}\n",
			expected: false,
		},
		{
			name:     "use strict first",
			path:     "strict.cjs",
			source:   "\"use strict\";\n\"use client\";\nmodule.exports = 1;\n",
			expected: false,
		},
		{
			name:     "directive only in a comment",
			path:     "commented.js",
			source:   "// \"use client\";\nexport const x = 1;\n",
			expected: false,
		},
		{
			name:     "directive text later in a string",
			path:     "docs.js",
			source:   "export const hint = \"use client\";\n",
			expected: false,
		},
		{
			name:     "empty module",
			path:     "empty.js",
			source:   "",
			expected: false,
		},
		{
			name:     "type alias before directive",
			path:     "a.ts",
			source:   "type Props = { n: number };\n\"use client\";\n",
			expected: false,
		},
		{
			name:     "type-only import before directive",
			path:     "b.ts",
			source:   "import type {X} from './x'; \"use client\"\n",
			expected: false,
		},
		{
			name:     "interface before directive",
			path:     "c.tsx",
			source:   "interface P {}\n'use client'\n",
			expected: false,
		},
		{
			name:     "parenthesized directive",
			path:     "d.js",
			source:   "(\"use client\");\n",
			expected: false,
		},
		{
			name:     "directive used as a value",
			path:     "e.ts",
			source:   "\"use client\" as string;\n",
			expected: false,
		},
		{
			name:     "directive continued on the next line",
			path:     "f.js",
			source:   "\"use client\"\n.length;\n",
			expected: false,
		},
		{
			name:     "directive before type alias",
			path:     "g.ts",
			source:   "\"use client\" // boundary\ntype Props = { n: number };\nexport const n = 1;\n",
			expected: true,
		},
		{
			name:     "hashbang before directive",
			path:     "h.js",
			source:   "#!/usr/bin/env node\n\"use client\";\n",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := IsClientBoundary(tt.path, []byte(tt.source))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestIsClientBoundaryParseError(t *testing.T) {
	_, err := IsClientBoundary("broken.jsx", []byte("\"use client\";\nexport const = ;\n"))

	require.Error(t, err)
	assert.True(t, builderrors.IsType(err, builderrors.ErrorTypeParse))
}

func TestFirstDirective(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{`"use client";`, "use client"},
		{`'use client';`, "use client"},
		{`"use client"`, "use client"},
		{"\"use client\"\nfoo();", "use client"},
		{"\"use client\"\n++i;", "use client"},
		{"/* a\nb */ \"use client\" /* c\nd */ foo()", "use client"},
		{"\"use client\" /* c\nd */ (x)", ""},
		{"\uFEFF\"use client\";", "use client"},
		{"\"use client\"\n(foo)();", ""},
		{"\"use client\"\n+ 1;", ""},
		{"\"use client\" + 1;", ""},
		{"\"use client\"[0];", ""},
		{`foo(); "use client";`, ""},
		{`var x = 1;`, ""},
		{"#!/usr/bin/env node", ""},
		{``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, FirstDirective([]byte(tt.code)))
		})
	}
}

func TestNameEntries(t *testing.T) {
	entries := NameEntries([]string{"/p/a.jsx", "/p/b.jsx", "/p/c.jsx"})

	assert.Equal(t, []Entry{
		{Name: "rsc0", Path: "/p/a.jsx"},
		{Name: "rsc1", Path: "/p/b.jsx"},
		{Name: "rsc2", Path: "/p/c.jsx"},
	}, entries)

	assert.Empty(t, NameEntries(nil))
}

func TestIsSourceFile(t *testing.T) {
	for _, path := range []string{"a.js", "a.jsx", "a.ts", "a.tsx", "a.mjs", "a.cjs", "A.JSX"} {
		assert.True(t, IsSourceFile(path), path)
	}
	for _, path := range []string{"a.css", "a.json", "a.d.ts", "index.html", "Makefile"} {
		assert.False(t, IsSourceFile(path), path)
	}
	assert.Equal(t, []string{".cjs", ".js", ".jsx", ".mjs", ".ts", ".tsx"}, SourceExtensions())
}

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
}

func TestScan(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/project/src/components/Counter.jsx": "\"use client\";\nexport const Counter = () => <b/>;\n",
		"/project/src/components/Button.tsx":  "'use client';\nexport const Button = (p: {}) => <button/>;\n",
		"/project/src/App.jsx":                "import { Counter } from \"./components/Counter.jsx\";\nexport const App = () => <Counter/>;\n",
		"/project/src/styles.css":             "\"use client\";\n",
		"/project/node_modules/lib/index.js":  "\"use client\";\nexport const lib = 1;\n",
		"/project/dist/App.js":                "\"use client\";\n",
	})

	s := NewClientEntryScanner(fsys, WithSkip(walk.Any(
		walk.SkipNames("node_modules"),
		walk.SkipPaths("/project/dist"),
	)))

	found, err := s.Scan(context.Background(), "/project")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/project/src/components/Button.tsx",
		"/project/src/components/Counter.jsx",
	}, found)
}

func TestScanNoBoundaries(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/project/src/App.jsx": "export const App = () => <div/>;\n",
	})

	found, err := NewClientEntryScanner(fsys).Scan(context.Background(), "/project")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestScanParseErrorIsFatal(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/project/src/a.jsx":   "\"use client\";\nexport const A = 1;\n",
		"/project/src/bad.jsx": "export default <div>;\n",
	})

	found, err := NewClientEntryScanner(fsys).Scan(context.Background(), "/project")

	require.Error(t, err)
	assert.Nil(t, found)
	assert.True(t, builderrors.IsType(err, builderrors.ErrorTypeParse))
}

func TestScanCancelled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/project/a.js": "\"use client\";\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClientEntryScanner(fsys).Scan(ctx, "/project")
	assert.ErrorIs(t, err, context.Canceled)
}
