package config

import (
	"log/slog"
)

// FileLoaderBuilderOption is a functional option for configuring a FileLoader during construction.
type FileLoaderBuilderOption func(*fileLoader)

// WithLogger sets the logger used by the loader.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - FileLoaderBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) FileLoaderBuilderOption {
	return func(l *fileLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
