// Package loader decodes splat files (.ply and .splat) into point clouds and caches them by path.
package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SupportedExtensions lists the file extensions the loader can decode.
var SupportedExtensions = []string{".ply", ".splat"}

// ErrUnsupportedFormat is returned for files whose extension has no backend.
var ErrUnsupportedFormat = errors.New("unsupported splat format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cache    map[string]*Cloud
	backends map[string]loaderBackend
	logger   *slog.Logger
}

// Loader decodes splat files and keeps a cache of decoded clouds. The file format is chosen by
// extension.
type Loader interface {
	// Load decodes a splat file and caches the result. If the file is already cached (by path),
	// the cached cloud is returned.
	//
	// Parameters:
	//   - path: the file path to the splat file
	//
	// Returns:
	//   - *Cloud: the decoded cloud
	//   - error: error naming the path if loading fails
	Load(path string) (*Cloud, error)

	// LoadReader decodes a splat stream and caches it by name.
	//
	// Parameters:
	//   - name: the cache key for the cloud
	//   - r: the reader providing file data
	//   - ext: the file format as an extension (.ply or .splat)
	//
	// Returns:
	//   - *Cloud: the decoded cloud
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader, ext string) (*Cloud, error)

	// Get retrieves a cached cloud by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Cloud: the cached cloud or nil
	Get(name string) *Cloud

	// Evict drops a cached cloud so the next Load reads the file again.
	//
	// Parameters:
	//   - name: the cache key to drop
	Evict(name string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with a backend for every supported format.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		cache: make(map[string]*Cloud),
		backends: map[string]loaderBackend{
			".ply":   newPLYLoaderBackend(),
			".splat": newSplatLoaderBackend(),
		},
		logger: slog.Default(),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*Cloud, error) {
	l.mu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	defer f.Close()

	cloud, err := backend.LoadReader(filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.cache[path] = cloud
	l.mu.Unlock()

	l.logger.Debug("splat file decoded", "path", path, "points", len(cloud.Points))
	return cloud, nil
}

func (l *loader) LoadReader(name string, r io.Reader, ext string) (*Cloud, error) {
	l.mu.RLock()
	if cached, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(ext)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}
	cloud, err := backend.LoadReader(name, r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = cloud
	l.mu.Unlock()
	return cloud, nil
}

func (l *loader) Get(name string) *Cloud {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	delete(l.cache, name)
	l.mu.Unlock()
}

// resolveBackend selects the backend for a file extension.
func (l *loader) resolveBackend(ext string) (loaderBackend, error) {
	if b, ok := l.backends[strings.ToLower(ext)]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
}
