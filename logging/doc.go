// Package logging provides a minimal logging interface and adapters for slick.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that prompt functions, providers and the resolver use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter / StructuredLogger wrapping Go's structured logging
//   - ZapAdapter for applications already standardized on zap
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	s := slick.New(func(o *slick.Options) { o.Logger = logger })
package logging
