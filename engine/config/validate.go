package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-splat/engine/loader"
	"github.com/Masterminds/semver/v3"
)

// Validate checks a descriptor and returns every problem found.
//
// Parameters:
//   - cfg: the descriptor to check
//
// Returns:
//   - []string: human readable problems, empty when the descriptor is valid
func Validate(cfg *SceneConfiguration) []string {
	var details []string
	if strings.TrimSpace(cfg.ID) == "" {
		details = append(details, "scene id is empty")
	}
	details = append(details, validateFormat(cfg.FormatVersion)...)

	if len(cfg.Assets) == 0 {
		details = append(details, "scene declares no assets")
	}
	if len(cfg.Assets) > MaxAssetsPerScene {
		details = append(details, fmt.Sprintf("scene declares %d assets, the limit is %d", len(cfg.Assets), MaxAssetsPerScene))
	}

	seen := make(map[string]struct{}, len(cfg.Assets))
	for i, a := range cfg.Assets {
		if strings.TrimSpace(a.ID) == "" {
			details = append(details, fmt.Sprintf("assets[%d]: id is empty", i))
		} else if _, dup := seen[a.ID]; dup {
			details = append(details, fmt.Sprintf("assets[%d]: duplicate id %q", i, a.ID))
		} else {
			seen[a.ID] = struct{}{}
		}

		if strings.TrimSpace(a.Source) == "" {
			details = append(details, fmt.Sprintf("assets[%d]: source is empty", i))
		} else if ext := strings.ToLower(filepath.Ext(a.Source)); !slices.Contains(loader.SupportedExtensions, ext) {
			details = append(details, fmt.Sprintf("assets[%d]: unsupported source %q (supported: %s)", i, a.Source, strings.Join(loader.SupportedExtensions, ", ")))
		}
	}

	r := cfg.Reveal
	if r.DurationMs < 0 {
		details = append(details, "reveal.durationMs must not be negative")
	}
	if r.Band < 0 {
		details = append(details, "reveal.band must not be negative")
	}
	if r.Ease != EaseLinear && r.Ease != EaseInOut {
		details = append(details, fmt.Sprintf("reveal.ease %q is not one of %q, %q", r.Ease, EaseLinear, EaseInOut))
	}
	return details
}

func validateFormat(version string) []string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return []string{fmt.Sprintf("formatVersion %q: %v", version, err)}
	}
	c, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return []string{fmt.Sprintf("format constraint: %v", err)}
	}
	if !c.Check(v) {
		return []string{fmt.Sprintf("formatVersion %s is not supported (want %s)", v, FormatConstraint)}
	}
	return nil
}
