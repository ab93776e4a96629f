package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wakuwork/wakuwork/internal/build"
	"github.com/wakuwork/wakuwork/internal/config"
	"github.com/wakuwork/wakuwork/internal/livereload"
	"github.com/wakuwork/wakuwork/internal/logging"
	"github.com/wakuwork/wakuwork/internal/plugins"
	"github.com/wakuwork/wakuwork/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild the project whenever a source file changes",
	Long: `Build the project, then watch the project root and rebuild after every
change. A failing rebuild is reported and the watcher keeps running.

Examples:
  wakuwork watch                          # Watch the current directory
  wakuwork watch --livereload :35729      # Also reload open browser tabs
  wakuwork watch --debounce 500ms         # Wait longer for changes to settle`,
	RunE: runWatch,
}

var (
	watchLiveReload string
	watchDebounce   time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)

	addProjectFlags(watchCmd)
	watchCmd.Flags().StringVar(&watchLiveReload, "livereload", "", "Address for the live reload websocket, e.g. localhost:35729")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Delay before a batch of changes triggers a rebuild")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := cfg.Resolve()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	b := &rebuilder{
		cfg:     cfg,
		out:     out,
		logger:  logger,
		metrics: build.NewMetrics(),
		// Each build appends to the entries file, so start from an empty
		// output directory every time.
		opts: []build.Option{
			build.WithLogger(logger),
			build.WithStdout(out),
			build.WithClean(true),
		},
	}

	if watchLiveReload != "" {
		hub := livereload.NewHub(logger, "localhost:*", "127.0.0.1:*")
		srv, err := livereload.Listen(watchLiveReload, hub)
		if err != nil {
			return fmt.Errorf("failed to start live reload server: %w", err)
		}
		go func() {
			if err := srv.Serve(ctx); err != nil {
				logger.Error(ctx, err, "Live reload server stopped")
			}
		}()

		b.hub = hub
		b.opts = append(b.opts, build.WithHTMLPlugins(plugins.LiveReloadClient{URL: srv.URL()}))
		fmt.Fprintf(out, "🔄 Live reload on %s\n", srv.URL())
	}

	b.rebuild(ctx)

	fw, err := watcher.NewFileWatcher(watchDebounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Stop()

	notDist := watcher.NotUnder(paths.Dist)
	skipNames := watcher.SkipDirNames(cfg.Files.Exclude...)

	fw.AddFilter(watcher.ProjectFileFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddFilter(notDist)
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		fmt.Fprintf(out, "📝 %d file(s) changed, rebuilding...\n", len(events))
		b.rebuild(ctx)
		return nil
	})

	if err := fw.AddRecursive(paths.Root, func(dir string) bool {
		return skipNames(dir) || !notDist(dir)
	}); err != nil {
		return fmt.Errorf("failed to watch %s: %w", paths.Root, err)
	}
	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintf(out, "👀 Watching %s (Ctrl-C to stop)\n", paths.Root)
	<-ctx.Done()

	stats := b.metrics.Snapshot()
	fmt.Fprintf(out, "\n🛑 Stopped after %d builds (%.0f%% successful)\n",
		stats.TotalBuilds, b.metrics.SuccessRate())

	return nil
}

// rebuilder runs one build per change batch and reports the outcome.
type rebuilder struct {
	cfg     *config.Config
	opts    []build.Option
	out     io.Writer
	logger  logging.Logger
	metrics *build.Metrics
	hub     *livereload.Hub
}

func (r *rebuilder) rebuild(ctx context.Context) {
	start := time.Now()
	result, err := build.NewPipeline(r.cfg, r.opts...).Run(ctx)
	duration := time.Since(start)

	if errors.Is(err, context.Canceled) {
		return
	}
	r.metrics.Record(result, duration, err)

	if err != nil {
		r.logger.Error(ctx, err, "Build failed")
		fmt.Fprintf(r.out, "❌ Build failed: %v\n", err)
		return
	}

	fmt.Fprintf(r.out, "✅ Build completed in %v\n", duration.Round(time.Millisecond))

	if r.hub != nil {
		if err := r.hub.NotifyRebuilt(len(result.ClientEntries)); err != nil {
			r.logger.Warn(ctx, err, "Failed to notify live reload clients")
		}
	}
}
