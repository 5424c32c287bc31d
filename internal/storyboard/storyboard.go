// Package storyboard defines the Storyboard and Scene types submitted to the
// video pipeline, together with the placement metadata the pipeline attaches
// to each scene as its artifacts are produced.
package storyboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Static errors for storyboard validation.
var (
	// ErrEmptyTitle is returned when the storyboard has no title.
	ErrEmptyTitle = errors.New("storyboard: title is required")
	// ErrNoScenes is returned when the storyboard contains no scenes.
	ErrNoScenes = errors.New("storyboard: at least one scene is required")
	// ErrEmptyNarration is returned when a scene has neither voiceover nor text.
	ErrEmptyNarration = errors.New("storyboard: scene narration is empty")
)

// Point is a pixel coordinate on the output canvas.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Placement describes where a scene image sits on the canvas.
type Placement struct {
	ImgPath     string `json:"img_path,omitempty"`
	URL         string `json:"url,omitempty"`
	TopLeft     Point  `json:"top_left"`
	TopRight    Point  `json:"top_right"`
	BottomRight Point  `json:"bottom_right"`
	BottomLeft  Point  `json:"bottom_left"`
	ZIndex      int    `json:"z_index"`
}

// Scene is one narrated beat of a storyboard.
type Scene struct {
	// Index is the 0-based position of the scene. Stable for the whole run.
	Index int `json:"index"`
	// ImageURL is a remote URL or an inline data:image reference.
	ImageURL string `json:"imageUrl,omitempty"`
	// ImagePrompt is used to generate an image when ImageURL is empty.
	ImagePrompt string `json:"imagePrompt,omitempty"`
	Text        string `json:"text" validate:"required"`
	Voiceover   string `json:"voiceover,omitempty"`
	NeedAvatar  bool   `json:"needAvatar"`
	// Images is filled by the pipeline with the chosen layout placement.
	Images []Placement `json:"images,omitempty"`
}

// Narration returns the text to synthesize for the scene.
// Voiceover wins over Text when both are set.
func (s Scene) Narration() string {
	if v := strings.TrimSpace(s.Voiceover); v != "" {
		return v
	}
	return strings.TrimSpace(s.Text)
}

// Storyboard is the unit submitted for video generation.
type Storyboard struct {
	Title  string  `json:"title" validate:"required"`
	Scenes []Scene `json:"scenes" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Validate checks the storyboard shape and that every scene carries narration.
func (sb Storyboard) Validate() error {
	if strings.TrimSpace(sb.Title) == "" {
		return ErrEmptyTitle
	}
	if len(sb.Scenes) == 0 {
		return ErrNoScenes
	}
	if err := validate.Struct(sb); err != nil {
		return fmt.Errorf("storyboard: %w", err)
	}
	for i, sc := range sb.Scenes {
		if sc.Narration() == "" {
			return fmt.Errorf("%w: scene %d", ErrEmptyNarration, i)
		}
	}
	return nil
}

// Normalize assigns each scene its positional index.
func (sb *Storyboard) Normalize() {
	for i := range sb.Scenes {
		sb.Scenes[i].Index = i
	}
}

// ImageRefs returns the image reference of every scene, in order.
func (sb Storyboard) ImageRefs() []string {
	refs := make([]string, len(sb.Scenes))
	for i, sc := range sb.Scenes {
		refs[i] = strings.TrimSpace(sc.ImageURL)
	}
	return refs
}

// Narrations returns the narration of every scene, in order.
func (sb Storyboard) Narrations() []string {
	out := make([]string, len(sb.Scenes))
	for i, sc := range sb.Scenes {
		out[i] = sc.Narration()
	}
	return out
}

// document is the on-disk storyboard shape. Scenes may be listed under
// "scenes" or under "storyboard", the key used by the HTTP API.
type document struct {
	Title      string  `json:"title"`
	Scenes     []Scene `json:"scenes"`
	Storyboard []Scene `json:"storyboard"`
}

// Decode reads a JSON storyboard document and assigns scene indexes.
func Decode(r io.Reader) (Storyboard, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Storyboard{}, fmt.Errorf("storyboard: decode: %w", err)
	}
	scenes := doc.Scenes
	if len(scenes) == 0 {
		scenes = doc.Storyboard
	}
	sb := Storyboard{Title: doc.Title, Scenes: scenes}
	sb.Normalize()
	return sb, nil
}
