package loader

import (
	"log/slog"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithCloud pre-populates the cache with a decoded cloud.
//
// Parameters:
//   - key: the cache key for the cloud
//   - cloud: the cloud to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the cloud option to a loader
func WithCloud(key string, cloud *Cloud) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = cloud
	}
}

// WithLogger sets the logger used by the loader.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
