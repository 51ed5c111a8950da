package scene

import (
	"errors"
	"strings"
)

// ErrorKind classifies a LoadError.
type ErrorKind int

const (
	// KindConfiguration means the scene descriptor could not be fetched, parsed or validated.
	// The previous scene stays active.
	KindConfiguration ErrorKind = iota

	// KindAssetLoad means one or more assets failed to load. The scene is still active and the
	// failed items are marked on SplatItems.
	KindAssetLoad
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAssetLoad:
		return "asset load"
	default:
		return "unknown"
	}
}

var (
	// ErrUnknownSplat is returned by toggles for an id the active scene does not declare.
	ErrUnknownSplat = errors.New("unknown splat")

	// ErrSplatUnavailable is returned by toggles for an item whose asset failed to load.
	ErrSplatUnavailable = errors.New("splat unavailable")

	// ErrToggleMode is returned by ActivateSplat when the manager toggles items independently.
	ErrToggleMode = errors.New("operation not supported in this toggle mode")

	// errStale marks a result discarded because a newer operation superseded it. It never
	// leaves the package.
	errStale = errors.New("superseded")
)

// LoadError reports a failed scene or asset load with a human-readable summary and one detail
// line per problem.
type LoadError struct {
	Kind    ErrorKind
	Summary string
	Details []string
	Err     error
}

func (e *LoadError) Error() string {
	if len(e.Details) == 0 {
		return e.Summary
	}
	return e.Summary + ": " + strings.Join(e.Details, "; ")
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
