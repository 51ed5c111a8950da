package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoJSON = `{
  "title": "Demo",
  "assets": [
    {"id": "a", "label": "Chair", "source": "chair.ply", "visible": true},
    {"id": "b", "source": "models/table.splat", "transform": {"position": [0, 1, 0]}}
  ],
  "reveal": {"durationMs": 300, "ease": "linear"}
}`

const demoYAML = `
id: demo
formatVersion: 1.2.0
assets:
  - id: a
    source: a.ply
    transform:
      scale: [2, 2, 2]
reveal:
  enabled: false
`

const demoTOML = `
id = "demo"
formatVersion = "1.0.0"

[reveal]
band = 0.25
endPadding = 0.5

[[assets]]
id = "a"
source = "a.splat"

[[assets]]
id = "b"
source = "b.ply"
visible = true
`

func TestDecodeAppliesDefaults(t *testing.T) {
	cfg, err := Decode(".json", []byte(demoJSON))
	require.NoError(t, err)

	assert.Equal(t, DefaultFormatVersion, cfg.FormatVersion)
	assert.True(t, cfg.Reveal.Enabled)
	assert.Equal(t, 300, cfg.Reveal.DurationMs)
	assert.Equal(t, EaseLinear, cfg.Reveal.Ease)
	assert.InDelta(t, 0.12, cfg.Reveal.Band, 1e-6)
	require.Len(t, cfg.Assets, 2)
	assert.Equal(t, common.Vec3{1, 1, 1}, cfg.Assets[0].Transform.Scale)
	assert.Equal(t, common.Vec3{0, 1, 0}, cfg.Assets[1].Transform.Position)
	assert.Equal(t, "Chair", cfg.Assets[0].DisplayLabel())
	assert.Equal(t, "b", cfg.Assets[1].DisplayLabel())
}

func TestDecodeFormats(t *testing.T) {
	y, err := Decode(".yml", []byte(demoYAML))
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", y.FormatVersion)
	assert.False(t, y.Reveal.Enabled)
	assert.Equal(t, 900, y.Reveal.DurationMs)
	assert.Equal(t, common.Vec3{2, 2, 2}, y.Assets[0].Transform.Scale)

	tm, err := Decode(".toml", []byte(demoTOML))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, tm.Reveal.Band, 1e-6)
	assert.InDelta(t, 0.5, tm.Reveal.EndPadding, 1e-6)
	assert.Equal(t, EaseInOut, tm.Reveal.Ease)
	require.Len(t, tm.Assets, 2)
	assert.True(t, tm.Assets[1].Visible)

	_, err = Decode(".ini", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := newSceneConfiguration()
	cfg.ID = "demo"
	cfg.Assets = []AssetDescriptor{{ID: "a", Source: "a.ply"}, {ID: "b", Source: "b.splat"}}
	assert.Empty(t, Validate(cfg))

	bad := cfg.Clone()
	bad.FormatVersion = "2.1.0"
	bad.Assets = append(bad.Assets,
		AssetDescriptor{ID: "a", Source: "dup.ply"},
		AssetDescriptor{ID: "c", Source: "c.obj"},
		AssetDescriptor{Source: "d.ply"},
	)
	bad.Reveal.Ease = "bounce"
	details := Validate(bad)
	assert.Len(t, details, 5)
	assert.Contains(t, details[0], "formatVersion 2.1.0")
	assert.Contains(t, details[1], `duplicate id "a"`)
	assert.Contains(t, details[2], "supported: .ply, .splat")
	assert.Contains(t, details[3], "id is empty")
	assert.Contains(t, details[4], "bounce")

	many := cfg.Clone()
	many.Assets = nil
	for i := range MaxAssetsPerScene + 1 {
		many.Assets = append(many.Assets, AssetDescriptor{ID: fmt.Sprint(i), Source: "x.ply"})
	}
	assert.Equal(t, []string{"scene declares 9 assets, the limit is 8"}, Validate(many))
}

func TestCloneIsDeep(t *testing.T) {
	cfg, err := Decode(".json", []byte(demoJSON))
	require.NoError(t, err)
	cp := cfg.Clone()
	require.Equal(t, cfg, cp)

	cp.Assets[0].ID = "changed"
	cp.Assets[1].Transform.Position[1] = 9
	cp.Assets = append(cp.Assets, AssetDescriptor{ID: "z"})
	assert.Equal(t, "a", cfg.Assets[0].ID)
	assert.Equal(t, float32(1), cfg.Assets[1].Transform.Position[1])
	assert.Len(t, cfg.Assets, 2)

	var nilCfg *SceneConfiguration
	assert.Nil(t, nilCfg.Clone())
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.json"), []byte(demoJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte(demoTOML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("assets: [oops"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	l, err := NewFileLoader(dir)
	require.NoError(t, err)

	ids, err := l.SceneIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "demo", "other"}, ids)

	cfg, err := l.LoadSceneConfig(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.ID)
	assert.Equal(t, filepath.Join(l.Root(), "chair.ply"), cfg.Assets[0].Source)
	assert.Equal(t, filepath.Join(l.Root(), "models", "table.splat"), cfg.Assets[1].Source)

	_, err = l.LoadSceneConfig(context.Background(), "missing")
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, `scene "missing" not found`, cfgErr.Message)
	assert.Len(t, cfgErr.Details, len(DescriptorExtensions))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = l.LoadSceneConfig(context.Background(), "broken")
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "could not be parsed")

	_, err = l.LoadSceneConfig(context.Background(), "../demo")
	assert.Error(t, err)

	// other.toml declares id "demo".
	_, err = l.LoadSceneConfig(context.Background(), "other")
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, `scene "other" is invalid`, cfgErr.Message)
	assert.Equal(t, []string{`id: "demo" does not match the file name "other"`}, cfgErr.Details)
}

func TestFileLoaderRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	doc := `{"assets": [{"id": "a", "source": "a.obj"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(doc), 0o644))
	l, err := NewFileLoader(dir)
	require.NoError(t, err)

	_, err = l.LoadSceneConfig(context.Background(), "bad")
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, `scene "bad" is invalid`, cfgErr.Message)
	require.Len(t, cfgErr.Details, 1)
	assert.Contains(t, cfgErr.Error(), "a.obj")
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 4)
	w, err := NewWatcher(dir, func(id string) { changed <- id }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo.yaml"), []byte(demoYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	select {
	case id := <-changed:
		assert.Equal(t, "demo", id)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
