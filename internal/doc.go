// Package internal contains the implementation packages of the wakuwork CLI.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - build: the production build pipeline (bundle, manifest, server compile)
//   - config: configuration loading, defaults, validation and path resolution
//   - errors: structured errors and conversion of esbuild diagnostics
//   - livereload: websocket hub that tells browsers to reload after a build
//   - logging: structured logging over log/slog
//   - plugins: HTML-transform plugins run on the built HTML entry
//   - runtime: the embedded client runtime module and its resolver plugin
//   - scanner: discovery of "use client" modules
//   - version: build and bundler version information
//   - walk: deterministic source tree walking
//   - watcher: debounced file system monitoring for watch mode
//
// # Data Flow
//
// A build is a straight line of steps:
//
//   - Scanner walks the project and returns the client entries in order
//   - Build bundles the HTML entry and the client entries with esbuild
//   - Build maps the bundler's outputs back to entries and writes the manifest
//   - Build compiles every server source file to CommonJS
//   - Watcher reruns the whole line after changes; livereload announces it
//
// No state survives between builds.
//
// # Testing Strategy
//
//   - Unit tests use afero's in-memory file system where no bundler runs
//   - Pipeline and bundler tests run esbuild against temporary directories
//   - Property tests (gopter) run with -tags property
package internal
