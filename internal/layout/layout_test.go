package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{PresetFull, PresetHalf, PresetHalf2}, r.Names())

	for _, name := range r.Names() {
		t.Run(name, func(t *testing.T) {
			p, err := r.Get(name)
			require.NoError(t, err)
			require.NoError(t, p.Validate())

			assert.Equal(t, 1920, p.Width)
			assert.Equal(t, 1080, p.Height)
			assert.Less(t, p.Background.ZIndex, p.Scene.ZIndex)
			assert.Less(t, p.Scene.ZIndex, p.Avatar.ZIndex)
			assert.Less(t, p.Avatar.ZIndex, p.Title.ZIndex)
			assert.NotEqual(t, p.Background.Image, p.ExtendBackground.Image)
		})
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("portrait")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestQuad_Bounds(t *testing.T) {
	p, err := NewRegistry().Get(PresetFull)
	require.NoError(t, err)

	// The full preset scene area is a perspective quad.
	assert.Equal(t, Rect{X: 111, Y: 97, W: 1213, H: 807}, p.Scene.Area.Bounds())
	assert.Equal(t, Rect{X: 10, Y: 20, W: 30, H: 40}, RectQuad(10, 20, 40, 60).Bounds())
}

func TestPreset_PlacementFollowsAvatarFlag(t *testing.T) {
	p, err := NewRegistry().Get(PresetHalf)
	require.NoError(t, err)

	with := p.Placement(true, "/run/a_1.png", "http://x/a.png")
	assert.Equal(t, 771, with.TopLeft.X)
	assert.Equal(t, 869, with.BottomRight.Y)
	assert.Equal(t, "/run/a_1.png", with.ImgPath)
	assert.Equal(t, "http://x/a.png", with.URL)

	without := p.Placement(false, "/run/a_1.png", "")
	assert.Equal(t, 147, without.TopLeft.X)
	assert.Equal(t, "background_half_extend.jpg", p.BackgroundLayer(false).Image)
	assert.Equal(t, "background_half.jpg", p.BackgroundLayer(true).Image)
}

func TestRegistry_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	content := `
presets:
  - name: square
    width: 1080
    height: 1080
    scene:
      area:
        top_left: {x: 0, y: 0}
        top_right: {x: 1080, y: 0}
        bottom_right: {x: 1080, y: 700}
        bottom_left: {x: 0, y: 700}
      z_index: 0
    avatar_crop: {x: 0, y: 0, w: 300, h: 300}
  - name: half
    width: 1280
    height: 720
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	sq, err := r.Get("square")
	require.NoError(t, err)
	assert.Equal(t, 1080, sq.Width)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 1080, H: 700}, sq.Scene.Area.Bounds())
	assert.Equal(t, 300, sq.AvatarCrop.W)

	half, err := r.Get(PresetHalf)
	require.NoError(t, err)
	assert.Equal(t, 1280, half.Width)
}

func TestRegistry_LoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, NewRegistry().LoadFile(filepath.Join(dir, "missing.yaml")))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("presets:\n  - name: x\n    width: 0\n"), 0600))
	assert.Error(t, NewRegistry().LoadFile(bad))
}
