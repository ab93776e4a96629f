// Package logging provides the structured logger shared by the build
// pipeline. It wraps log/slog with per-component scoping and step timing.
package logging
