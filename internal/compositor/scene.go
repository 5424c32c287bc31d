// Package compositor assembles the per-scene videos from the produced
// artifacts and joins them into the final branded news video.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/newsvideo-api/internal/layout"
	"github.com/maauso/newsvideo-api/internal/media"
	"github.com/maauso/newsvideo-api/internal/processor"
	"github.com/maauso/newsvideo-api/internal/storyboard"
)

const (
	defaultSceneAttempts = 2
	defaultSceneTimeout  = 300 * time.Second
)

// Static errors for scene composition.
var (
	// ErrMissingImage is returned when a scene has no image file.
	ErrMissingImage = errors.New("compositor: scene image not found")
	// ErrMissingAudio is returned when a scene has no audio file.
	ErrMissingAudio = errors.New("compositor: scene audio not found")
	// ErrNoScenesDir is returned when the input has no scenes directory.
	ErrNoScenesDir = errors.New("compositor: scenes directory is required")
)

// SceneInput is the input of SceneCompositor.
type SceneInput struct {
	// OutputDir is the run directory holding the image and audio files.
	OutputDir string
	// ScenesDir receives the rendered scene videos.
	ScenesDir string
	// ScenePath names the rendered video of scene i. Nil means
	// ScenesDir/SceneFileName(i).
	ScenePath func(i int) string
	Title     string
	// Scenes is updated in place with the placement of each rendered image.
	Scenes      []storyboard.Scene
	AvatarPaths map[int]string
}

func (in SceneInput) outputPath(i int) string {
	if in.ScenePath != nil {
		return in.ScenePath(i)
	}
	return filepath.Join(in.ScenesDir, SceneFileName(i))
}

// SceneOption configures a SceneCompositor.
type SceneOption func(*SceneCompositor)

// WithAssetsDir sets the directory holding the preset's background and
// overlay images.
func WithAssetsDir(dir string) SceneOption {
	return func(c *SceneCompositor) {
		c.assetsDir = dir
	}
}

// WithFontFile sets the font used to draw the title text.
func WithFontFile(path string) SceneOption {
	return func(c *SceneCompositor) {
		c.fontFile = path
	}
}

// WithSceneRetries sets the number of attempts per scene.
func WithSceneRetries(n int) SceneOption {
	return func(c *SceneCompositor) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithSceneTimeout bounds each scene render attempt.
func WithSceneTimeout(d time.Duration) SceneOption {
	return func(c *SceneCompositor) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// SceneCompositor renders one video per scene using a layout preset.
type SceneCompositor struct {
	media     media.Processor
	preset    layout.Preset
	assetsDir string
	fontFile  string
	attempts  int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSceneCompositor creates a SceneCompositor.
func NewSceneCompositor(mp media.Processor, preset layout.Preset, logger *slog.Logger, opts ...SceneOption) *SceneCompositor {
	if logger == nil {
		logger = slog.Default()
	}
	c := &SceneCompositor{
		media:    mp,
		preset:   preset,
		attempts: defaultSceneAttempts,
		timeout:  defaultSceneTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements processor.Processor.
func (c *SceneCompositor) Name() string { return "scene_compositor" }

// Validate implements processor.Processor.
func (c *SceneCompositor) Validate(in SceneInput) error {
	if in.OutputDir == "" {
		return processor.ErrNoOutputDir
	}
	if in.ScenesDir == "" {
		return ErrNoScenesDir
	}
	return c.preset.Validate()
}

// SceneFileName is the rendered video name for scene i.
func SceneFileName(i int) string {
	return fmt.Sprintf("scene_%03d.mp4", i)
}

// Process implements processor.Processor. A scene that cannot be rendered is
// logged and left out of the result.
func (c *SceneCompositor) Process(ctx context.Context, in SceneInput, t *processor.Tracker) ([]processor.Artifact, error) {
	images, audios, err := discover(in.OutputDir, in.Title)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(in.ScenesDir, 0755); err != nil {
		return nil, fmt.Errorf("create scenes dir: %w", err)
	}

	out := make([]processor.Artifact, 0, len(in.Scenes))
	for i := range in.Scenes {
		if t.Cancelled() {
			break
		}
		scene := &in.Scenes[i]
		path, err := c.composeWithRetry(ctx, in, scene, images[scene.Index], audios[scene.Index])
		t.Step(len(in.Scenes))
		if err != nil {
			c.logger.Warn("scene composition failed",
				slog.Int("scene", scene.Index),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, processor.Artifact{Index: scene.Index, Path: path})
	}
	return out, nil
}

func (c *SceneCompositor) composeWithRetry(ctx context.Context, in SceneInput, scene *storyboard.Scene, image, audio string) (string, error) {
	if image == "" {
		return "", ErrMissingImage
	}
	if audio == "" {
		return "", ErrMissingAudio
	}

	avatar := ""
	if scene.NeedAvatar {
		avatar = in.AvatarPaths[scene.Index]
	}
	withAvatar := avatar != ""
	output := in.outputPath(scene.Index)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		spec := c.sceneSpec(ctx, in.Title, image, audio, avatar, output)
		if lastErr = c.render(ctx, spec); lastErr == nil {
			scene.Images = []storyboard.Placement{c.preset.Placement(withAvatar, image, scene.ImageURL)}
			return output, nil
		}
		if ctx.Err() != nil {
			break
		}
		c.logger.Debug("retrying scene composition",
			slog.Int("scene", scene.Index),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
	}
	return "", lastErr
}

func (c *SceneCompositor) render(ctx context.Context, spec media.SceneSpec) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.media.ComposeScene(ctx, spec)
}

// sceneSpec builds the render description from the preset. Preset images that
// are not present in the assets directory are skipped.
func (c *SceneCompositor) sceneSpec(ctx context.Context, title, image, audio, avatar, output string) media.SceneSpec {
	withAvatar := avatar != ""
	p := c.preset

	spec := media.SceneSpec{
		Width:     p.Width,
		Height:    p.Height,
		AudioPath: audio,
		Output:    output,
	}
	if d, err := c.media.GetMediaDuration(ctx, audio); err == nil {
		spec.Duration = d
	}
	spec.Background = c.asset(p.BackgroundLayer(withAvatar).Image)

	sl := p.SceneLayer(withAvatar)
	spec.Overlays = append(spec.Overlays, media.Overlay{
		Path:   image,
		Area:   toRect(sl.Area.Bounds()),
		ZIndex: sl.ZIndex,
	})
	if withAvatar {
		crop := toRect(p.AvatarCrop)
		spec.Overlays = append(spec.Overlays, media.Overlay{
			Path:   avatar,
			Video:  true,
			Crop:   &crop,
			Area:   toRect(p.Avatar.Area.Bounds()),
			ZIndex: p.Avatar.ZIndex,
		})
	}
	for _, l := range []layout.Layer{p.Title, p.International} {
		if path := c.asset(l.Image); path != "" {
			spec.Overlays = append(spec.Overlays, media.Overlay{
				Path:   path,
				Area:   toRect(l.Area.Bounds()),
				ZIndex: l.ZIndex,
			})
		}
	}
	if c.fontFile != "" && strings.TrimSpace(title) != "" {
		spec.TitleText = title
		spec.TitleArea = toRect(p.Title.Area.Bounds())
		spec.FontFile = c.fontFile
	}
	return spec
}

func (c *SceneCompositor) asset(name string) string {
	if name == "" || c.assetsDir == "" {
		return ""
	}
	path := filepath.Join(c.assetsDir, name)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func toRect(r layout.Rect) media.Rect {
	return media.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// discover maps scene index to the image and audio files in dir named with the
// title prefix. Indices come from the numeric suffix, not the listing order.
func discover(dir, title string) (images, audios map[int]string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("list run dir: %w", err)
	}

	images = make(map[int]string)
	audios = make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, ok := processor.ParseAssetIndex(title, e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png":
			images[idx] = path
		case ".mp3":
			audios[idx] = path
		}
	}
	return images, audios, nil
}
