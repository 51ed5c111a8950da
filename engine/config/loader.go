package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DescriptorExtensions lists the descriptor file extensions in lookup order.
var DescriptorExtensions = []string{".json", ".yaml", ".yml", ".toml"}

// Loader fetches and validates scene descriptors.
type Loader interface {
	// LoadSceneConfig fetches, decodes and validates the descriptor for a scene.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//   - sceneID: the scene to load
	//
	// Returns:
	//   - *SceneConfiguration: the validated descriptor
	//   - error: a *Error describing the failure
	LoadSceneConfig(ctx context.Context, sceneID string) (*SceneConfiguration, error)
}

// FileLoader is a Loader backed by a directory of descriptor files named <sceneID>.<ext>.
type FileLoader interface {
	Loader

	// Root returns the absolute descriptor directory.
	Root() string

	// SceneIDs lists the scenes available in the directory, sorted.
	//
	// Returns:
	//   - []string: the scene ids
	//   - error: an error if the directory could not be read
	SceneIDs() ([]string, error)
}

type fileLoader struct {
	root   string
	logger *slog.Logger
}

var _ FileLoader = &fileLoader{}

// NewFileLoader creates a FileLoader rooted at root. A leading ~ is expanded to the home directory.
//
// Parameters:
//   - root: the descriptor directory
//   - options: functional options to configure the loader
//
// Returns:
//   - FileLoader: the new loader
//   - error: an error if the root could not be resolved
func NewFileLoader(root string, options ...FileLoaderBuilderOption) (FileLoader, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config root %q: %w", root, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config root %q: %w", root, err)
	}
	l := &fileLoader{
		root:   abs,
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(l)
	}
	return l, nil
}

func (l *fileLoader) Root() string {
	return l.root
}

func (l *fileLoader) SceneIDs() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes in %s: %w", l.root, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := SceneIDFromPath(e.Name())
		if ok && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *fileLoader) LoadSceneConfig(ctx context.Context, sceneID string) (*SceneConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Message: fmt.Sprintf("loading scene %q was cancelled", sceneID), Err: err}
	}
	if sceneID == "" || strings.ContainsAny(sceneID, `/\`) {
		return nil, &Error{Message: fmt.Sprintf("invalid scene id %q", sceneID)}
	}

	path, data, err := l.read(sceneID)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, &Error{
			Message: fmt.Sprintf("scene %q could not be parsed", sceneID),
			Details: []string{fmt.Sprintf("%s: %v", path, err)},
			Err:     err,
		}
	}
	// The file name is the scene id; a descriptor may repeat it but not contradict it.
	var details []string
	switch cfg.ID {
	case "":
		cfg.ID = sceneID
	case sceneID:
	default:
		details = append(details, fmt.Sprintf("id: %q does not match the file name %q", cfg.ID, sceneID))
	}

	if details = append(details, Validate(cfg)...); len(details) > 0 {
		return nil, &Error{Message: fmt.Sprintf("scene %q is invalid", sceneID), Details: details}
	}

	dir := filepath.Dir(path)
	for i := range cfg.Assets {
		src, err := resolveSource(dir, cfg.Assets[i].Source)
		if err != nil {
			return nil, &Error{
				Message: fmt.Sprintf("scene %q is invalid", sceneID),
				Details: []string{fmt.Sprintf("assets[%d]: %v", i, err)},
				Err:     err,
			}
		}
		cfg.Assets[i].Source = src
	}

	l.logger.Debug("scene descriptor loaded", "scene", cfg.ID, "path", path, "assets", len(cfg.Assets))
	return cfg, nil
}

func (l *fileLoader) read(sceneID string) (string, []byte, error) {
	tried := make([]string, 0, len(DescriptorExtensions))
	for _, ext := range DescriptorExtensions {
		path := filepath.Join(l.root, sceneID+ext)
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, &Error{
				Message: fmt.Sprintf("scene %q could not be read", sceneID),
				Details: []string{err.Error()},
				Err:     err,
			}
		}
		tried = append(tried, path)
	}
	return "", nil, &Error{
		Message: fmt.Sprintf("scene %q not found", sceneID),
		Details: tried,
		Err:     fs.ErrNotExist,
	}
}

// Decode parses a descriptor document. Fields the document leaves out keep their defaults and
// assets without a scale get unit scale.
//
// Parameters:
//   - ext: the document format as a file extension (.json, .yaml, .yml or .toml)
//   - data: the document
//
// Returns:
//   - *SceneConfiguration: the decoded, unvalidated descriptor
//   - error: an error if the format is unknown or the document is malformed
func Decode(ext string, data []byte) (*SceneConfiguration, error) {
	cfg := newSceneConfiguration()
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported descriptor format %q (supported: %s)", ext, strings.Join(DescriptorExtensions, ", "))
	}
	if err != nil {
		return nil, err
	}
	for i := range cfg.Assets {
		if cfg.Assets[i].Transform.Scale == (common.Vec3{}) {
			cfg.Assets[i].Transform.Scale = common.Vec3{1, 1, 1}
		}
	}
	return cfg, nil
}

// SceneIDFromPath returns the scene id a descriptor file name maps to.
//
// Parameters:
//   - path: a file name or path
//
// Returns:
//   - string: the file name without its extension
//   - bool: false if the extension is not a descriptor extension
func SceneIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if !slices.Contains(DescriptorExtensions, ext) {
		return "", false
	}
	id := strings.TrimSuffix(base, filepath.Ext(base))
	return id, id != ""
}

func resolveSource(dir, source string) (string, error) {
	expanded, err := homedir.Expand(source)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Join(dir, expanded), nil
}
