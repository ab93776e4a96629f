package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wakuwork/wakuwork/internal/build"
	"github.com/wakuwork/wakuwork/internal/config"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the project for production",
	Long: `Build the project: scan for client entries, bundle them with the HTML
entry, compile the server sources and write the client-entry manifest.

Examples:
  wakuwork build                      # Build the current directory
  wakuwork build --dir ./app          # Build another project
  wakuwork build --dist out --clean   # Build into a fresh out/ directory
  wakuwork build --progress           # Show server compile progress`,
	RunE: runBuild,
}

var (
	buildClean    bool
	buildProgress bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	addProjectFlags(buildCmd)
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Remove the output directory before building")
	buildCmd.Flags().BoolVar(&buildProgress, "progress", false, "Show a progress bar while compiling server sources")
}

// addProjectFlags adds the flags shared by build and watch.
func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().String("dir", config.DefaultDir, "Project root")
	cmd.Flags().String("base-path", config.DefaultBasePath, "Public URL prefix of the bundled assets")
	cmd.Flags().String("dist", config.DefaultDist, "Output directory, relative to the project root")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔨 Starting build...")
	start := time.Now()

	opts := []build.Option{
		build.WithLogger(logger),
		build.WithStdout(out),
		build.WithClean(buildClean),
	}
	if buildProgress {
		opts = append(opts, build.WithProgress(newProgressBar()))
	}

	result, err := build.NewPipeline(cfg, opts...).Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ Build completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "📁 Output: %s\n", result.Paths.Dist)
	fmt.Fprintf(out, "📊 %d client entries, %d server modules", len(result.ClientEntries), result.Compiled)
	if result.Compressed > 0 {
		fmt.Fprintf(out, ", %d compressed assets", result.Compressed)
	}
	fmt.Fprintln(out)

	return nil
}

func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("compiling"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
