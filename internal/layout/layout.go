// Package layout defines the canvas presets used to composite a scene: where
// the scene image, presenter avatar, title band and background sit on the
// frame, and in which stacking order.
package layout

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/maauso/newsvideo-api/internal/storyboard"
)

// Preset names shipped with the service.
const (
	PresetFull  = "full"
	PresetHalf  = "half"
	PresetHalf2 = "half2"
)

// ErrUnknownPreset is returned when a preset name is not registered.
var ErrUnknownPreset = errors.New("layout: unknown preset")

// Rect is an axis-aligned rectangle in canvas pixels.
type Rect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Quad is a four-corner region on the canvas.
type Quad struct {
	TopLeft     storyboard.Point `yaml:"top_left"`
	TopRight    storyboard.Point `yaml:"top_right"`
	BottomRight storyboard.Point `yaml:"bottom_right"`
	BottomLeft  storyboard.Point `yaml:"bottom_left"`
}

// RectQuad builds a rectangular Quad from two opposite corners.
func RectQuad(x1, y1, x2, y2 int) Quad {
	return Quad{
		TopLeft:     storyboard.Point{X: x1, Y: y1},
		TopRight:    storyboard.Point{X: x2, Y: y1},
		BottomRight: storyboard.Point{X: x2, Y: y2},
		BottomLeft:  storyboard.Point{X: x1, Y: y2},
	}
}

// Bounds returns the axis-aligned bounding box of the quad.
func (q Quad) Bounds() Rect {
	pts := []storyboard.Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Layer is an image placed on the canvas at a stacking position.
type Layer struct {
	Image  string `yaml:"image"`
	Area   Quad   `yaml:"area"`
	ZIndex int    `yaml:"z_index"`
}

// Preset fixes every placement for one canvas layout.
type Preset struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Scene is the image area when the scene carries an avatar.
	Scene Layer `yaml:"scene"`
	// ExtendScene is the wider image area used without an avatar.
	ExtendScene Layer `yaml:"extend_scene"`
	// AvatarCrop is the region cut out of the avatar video.
	AvatarCrop Rect  `yaml:"avatar_crop"`
	Avatar     Layer `yaml:"avatar"`

	Background       Layer `yaml:"background"`
	ExtendBackground Layer `yaml:"extend_background"`
	Title            Layer `yaml:"title"`
	International    Layer `yaml:"international"`
}

// SceneLayer returns the image placement for a scene with or without avatar.
func (p Preset) SceneLayer(withAvatar bool) Layer {
	if withAvatar {
		return p.Scene
	}
	return p.ExtendScene
}

// BackgroundLayer returns the background matching SceneLayer.
func (p Preset) BackgroundLayer(withAvatar bool) Layer {
	if withAvatar {
		return p.Background
	}
	return p.ExtendBackground
}

// Placement converts the scene layer into storyboard placement metadata.
func (p Preset) Placement(withAvatar bool, imgPath, url string) storyboard.Placement {
	l := p.SceneLayer(withAvatar)
	return storyboard.Placement{
		ImgPath:     imgPath,
		URL:         url,
		TopLeft:     l.Area.TopLeft,
		TopRight:    l.Area.TopRight,
		BottomRight: l.Area.BottomRight,
		BottomLeft:  l.Area.BottomLeft,
		ZIndex:      l.ZIndex,
	}
}

// Validate checks the canvas size.
func (p Preset) Validate() error {
	if p.Name == "" {
		return errors.New("layout: preset name is required")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("layout: preset %q: invalid canvas %dx%d", p.Name, p.Width, p.Height)
	}
	return nil
}

// Registry holds the available presets by name.
type Registry struct {
	presets map[string]Preset
}

// NewRegistry returns a registry preloaded with the builtin presets.
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]Preset)}
	for _, p := range Builtin() {
		r.presets[p.Name] = p
	}
	return r
}

// Get returns the preset called name.
func (r *Registry) Get(name string) (Preset, error) {
	p, ok := r.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names returns the registered preset names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for n := range r.presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadFile merges presets from a YAML file into the registry. Presets with a
// builtin name replace the builtin.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator config
	if err != nil {
		return fmt.Errorf("layout: read presets file: %w", err)
	}

	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("layout: parse presets file: %w", err)
	}

	for _, p := range f.Presets {
		if err := p.Validate(); err != nil {
			return err
		}
		r.presets[p.Name] = p
	}
	return nil
}
