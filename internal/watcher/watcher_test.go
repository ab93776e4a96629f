package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakuwork/wakuwork/internal/logging"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, logging.NewNopLogger())
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(ProjectFileFilter)
	watcher.AddHandler(func(context.Context, []ChangeEvent) error { return nil })
	assert.Len(t, watcher.filters, 1)
	assert.Len(t, watcher.handlers, 1)
}

// collector records every batch a watcher delivers.
type collector struct {
	mu      sync.Mutex
	batches [][]ChangeEvent
}

func (c *collector) handle(_ context.Context, events []ChangeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, events)
	return nil
}

func (c *collector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var paths []string
	for _, batch := range c.batches {
		for _, e := range batch {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

func TestFileWatcherReportsFilteredChanges(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for _, dir := range []string{"src", "node_modules/pkg", "dist"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755))
	}

	watcher, err := NewFileWatcher(50*time.Millisecond, logging.NewNopLogger())
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.AddFilter(ProjectFileFilter)
	watcher.AddFilter(NotUnder(filepath.Join(root, "dist")))

	var got collector
	watcher.AddHandler(got.handle)

	require.NoError(t, watcher.AddRecursive(root, SkipDirNames("node_modules")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	write := func(rel string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte("x"), 0o644))
	}
	write("src/App.jsx")
	write("src/notes.txt")
	write("node_modules/pkg/index.js")
	write("dist/out.js")

	want := filepath.Join(root, "src", "App.jsx")
	assert.Eventually(t, func() bool {
		for _, p := range got.paths() {
			if p == want {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	for _, p := range got.paths() {
		assert.Equal(t, want, p)
	}
}

func TestFileWatcherWatchesNewDirectories(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	watcher, err := NewFileWatcher(30*time.Millisecond, logging.NewNopLogger())
	require.NoError(t, err)
	defer watcher.Stop()

	var got collector
	watcher.AddHandler(got.handle)
	require.NoError(t, watcher.AddRecursive(root, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	dir := filepath.Join(root, "pages")
	require.NoError(t, os.Mkdir(dir, 0o755))

	file := filepath.Join(dir, "index.jsx")
	assert.Eventually(t, func() bool {
		// rewrite until the new directory is being watched
		_ = os.WriteFile(file, []byte("export {}"), 0o644)
		for _, p := range got.paths() {
			if p == file {
				return true
			}
		}
		return false
	}, 3*time.Second, 100*time.Millisecond)
}

func TestDebouncer(t *testing.T) {
	debouncer := &Debouncer{
		delay:   50 * time.Millisecond,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make([]ChangeEvent, 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go debouncer.start(ctx)

	debouncer.events <- ChangeEvent{Path: "b.jsx", Type: EventTypeModified}
	debouncer.events <- ChangeEvent{Path: "a.jsx", Type: EventTypeCreated}
	debouncer.events <- ChangeEvent{Path: "b.jsx", Type: EventTypeDeleted}

	select {
	case batch := <-debouncer.output:
		assert.Equal(t, []ChangeEvent{
			{Path: "a.jsx", Type: EventTypeCreated},
			{Path: "b.jsx", Type: EventTypeDeleted},
		}, batch)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestProjectFileFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"src/App.jsx", true},
		{"src/App.tsx", true},
		{"src/lib.mjs", true},
		{"index.html", true},
		{"src/style.css", true},
		{"package.json", true},
		{"src/types.d.ts", false},
		{"README.md", false},
		{"logo.png", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, ProjectFileFilter(tc.path))
		})
	}
}

func TestNoEditorTempFilter(t *testing.T) {
	assert.True(t, NoEditorTempFilter("src/App.jsx"))
	assert.False(t, NoEditorTempFilter("src/.#App.jsx"))
	assert.False(t, NoEditorTempFilter("src/App.jsx~"))
	assert.False(t, NoEditorTempFilter("src/.App.jsx.swp"))
}

func TestNotUnder(t *testing.T) {
	filter := NotUnder(filepath.FromSlash("/project/dist"))

	assert.True(t, filter(filepath.FromSlash("/project/src/a.js")))
	assert.True(t, filter(filepath.FromSlash("/project/distribution/a.js")))
	assert.False(t, filter(filepath.FromSlash("/project/dist")))
	assert.False(t, filter(filepath.FromSlash("/project/dist/public/a.js")))
}

func TestSkipDirNames(t *testing.T) {
	skip := SkipDirNames("node_modules", ".git")

	assert.True(t, skip(filepath.FromSlash("/p/node_modules")))
	assert.True(t, skip(filepath.FromSlash("/p/a/.git")))
	assert.False(t, skip(filepath.FromSlash("/p/src")))
}
