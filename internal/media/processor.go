// Package media provides the ffmpeg-backed operations used to assemble the
// news video: per-scene compositing, concatenation, branding and audio
// conversion.
package media

import "context"

// Processor defines the media operations the compositors depend on.
type Processor interface {
	// ComposeScene renders one scene video from a background, a stack of
	// overlays ordered by z-index and a narration track.
	ComposeScene(ctx context.Context, spec SceneSpec) error

	// JoinVideos concatenates multiple video files into a single output file.
	// It first attempts a fast copy (no re-encoding) and falls back to
	// re-encoding with libx264/aac if the copy fails.
	JoinVideos(ctx context.Context, videoPaths []string, output string) error

	// ApplyBranding overlays a logo and/or watermark text onto input.
	// With an empty Branding the input is copied unchanged.
	ApplyBranding(ctx context.Context, input, output string, b Branding) error

	// ConvertToWAV converts any audio file to mono 16 kHz PCM WAV.
	ConvertToWAV(ctx context.Context, src, dst string) error

	// GetMediaDuration returns the duration in seconds of a media file.
	GetMediaDuration(ctx context.Context, path string) (float64, error)
}

// Rect is a pixel rectangle on the output canvas.
type Rect struct {
	X, Y, W, H int
}

// Overlay is one image or video layer composited onto the scene canvas.
type Overlay struct {
	Path string
	// Video marks the input as a video stream rather than a still image.
	Video bool
	// Crop is applied to the source before scaling, if set.
	Crop   *Rect
	Area   Rect
	ZIndex int
}

// SceneSpec describes a single scene render.
type SceneSpec struct {
	Width  int
	Height int
	FPS    int
	// Background is an image path; empty renders a solid black canvas.
	Background string
	Overlays   []Overlay
	AudioPath  string
	// Duration in seconds; zero stops at the end of the audio.
	Duration float64
	// TitleText is drawn inside TitleArea when FontFile is set.
	TitleText string
	TitleArea Rect
	FontFile  string
	Output    string
}

// Branding configures the final-video overlays.
type Branding struct {
	LogoPath  string
	Watermark string
	FontFile  string
}

// Empty reports whether no branding is configured.
func (b Branding) Empty() bool {
	return b.LogoPath == "" && b.Watermark == ""
}
