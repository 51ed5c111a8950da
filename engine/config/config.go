// Package config loads and validates scene descriptors. A descriptor names a scene, lists the
// splat assets it shows in display order and carries the reveal policy for their transitions.
package config

import (
	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/jinzhu/copier"
)

// MaxAssetsPerScene caps the number of assets a single scene may declare.
const MaxAssetsPerScene = 8

// FormatConstraint is the range of descriptor format versions this viewer reads.
const FormatConstraint = ">= 1.0.0, < 2.0.0"

// DefaultFormatVersion is assumed when a descriptor omits formatVersion.
const DefaultFormatVersion = "1.0.0"

// Ease selects the easing curve of a reveal sweep.
type Ease string

const (
	EaseLinear Ease = "linear"
	EaseInOut  Ease = "easeInOut"
)

// RevealPolicy controls the reveal sweep of every asset in a scene.
type RevealPolicy struct {
	Enabled      bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	DurationMs   int     `json:"durationMs" yaml:"durationMs" toml:"durationMs"`
	Band         float32 `json:"band" yaml:"band" toml:"band"`
	Ease         Ease    `json:"ease" yaml:"ease" toml:"ease"`
	AffectAlpha  bool    `json:"affectAlpha" yaml:"affectAlpha" toml:"affectAlpha"`
	AffectSize   bool    `json:"affectSize" yaml:"affectSize" toml:"affectSize"`
	StartPadding float32 `json:"startPadding" yaml:"startPadding" toml:"startPadding"`
	EndPadding   float32 `json:"endPadding" yaml:"endPadding" toml:"endPadding"`
}

// DefaultRevealPolicy returns the policy applied to fields a descriptor leaves out.
func DefaultRevealPolicy() RevealPolicy {
	return RevealPolicy{
		Enabled:     true,
		DurationMs:  900,
		Band:        0.12,
		Ease:        EaseInOut,
		AffectAlpha: true,
		AffectSize:  true,
	}
}

// AssetDescriptor declares one splat asset of a scene.
type AssetDescriptor struct {
	ID        string           `json:"id" yaml:"id" toml:"id"`
	Label     string           `json:"label" yaml:"label" toml:"label"`
	Source    string           `json:"source" yaml:"source" toml:"source"`
	Transform common.Transform `json:"transform" yaml:"transform" toml:"transform"`
	Visible   bool             `json:"visible" yaml:"visible" toml:"visible"`
}

// DisplayLabel returns the label, or the id when no label is set.
func (a AssetDescriptor) DisplayLabel() string {
	return common.Coalesce(a.Label, a.ID)
}

// SceneConfiguration is a validated scene descriptor.
type SceneConfiguration struct {
	ID            string            `json:"id" yaml:"id" toml:"id"`
	Title         string            `json:"title" yaml:"title" toml:"title"`
	FormatVersion string            `json:"formatVersion" yaml:"formatVersion" toml:"formatVersion"`
	Assets        []AssetDescriptor `json:"assets" yaml:"assets" toml:"assets"`
	Reveal        RevealPolicy      `json:"reveal" yaml:"reveal" toml:"reveal"`
}

// newSceneConfiguration returns a descriptor pre-populated with defaults. Decoders only
// overwrite the fields present in the document.
func newSceneConfiguration() *SceneConfiguration {
	return &SceneConfiguration{
		FormatVersion: DefaultFormatVersion,
		Reveal:        DefaultRevealPolicy(),
	}
}

// Asset returns the descriptor with the given id.
//
// Parameters:
//   - id: the asset id
//
// Returns:
//   - AssetDescriptor: the matching descriptor
//   - bool: false if no asset has that id
func (c *SceneConfiguration) Asset(id string) (AssetDescriptor, bool) {
	for _, a := range c.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return AssetDescriptor{}, false
}

// Clone returns a deep copy of the configuration. A nil receiver yields nil.
//
// Returns:
//   - *SceneConfiguration: the copy
func (c *SceneConfiguration) Clone() *SceneConfiguration {
	if c == nil {
		return nil
	}
	out := &SceneConfiguration{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		panic(err)
	}
	return out
}
