package config

import (
	"log/slog"
	"time"
)

// WatcherBuilderOption is a functional option for configuring a Watcher during construction.
type WatcherBuilderOption func(*watcher)

// WithDebounce sets how long the watcher waits after the last event for a scene before
// reporting it.
//
// Parameters:
//   - d: the debounce interval
//
// Returns:
//   - WatcherBuilderOption: functional option to set the debounce interval
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger used by the watcher.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - WatcherBuilderOption: functional option to set the logger
func WithWatcherLogger(logger *slog.Logger) WatcherBuilderOption {
	return func(w *watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}
