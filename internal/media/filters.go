package media

import (
	"fmt"
	"sort"
	"strings"
)

const defaultFPS = 25

// sortedOverlays returns the overlays in ascending z-index, keeping the input
// order for equal values.
func sortedOverlays(in []Overlay) []Overlay {
	out := make([]Overlay, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// sceneArgs builds the ffmpeg arguments for ComposeScene. Input 0 is the
// background, inputs 1..n the overlays in z order, the last input the audio.
func sceneArgs(spec SceneSpec, titleFile string) []string {
	fps := spec.FPS
	if fps <= 0 {
		fps = defaultFPS
	}

	args := []string{"-y"}
	if spec.Background != "" {
		args = append(args, "-loop", "1", "-framerate", fmt.Sprint(fps), "-i", spec.Background)
	} else {
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d", spec.Width, spec.Height, fps))
	}

	overlays := sortedOverlays(spec.Overlays)
	for _, o := range overlays {
		if o.Video {
			args = append(args, "-i", o.Path)
		} else {
			args = append(args, "-loop", "1", "-framerate", fmt.Sprint(fps), "-i", o.Path)
		}
	}
	audioInput := len(overlays) + 1
	args = append(args, "-i", spec.AudioPath)

	var chains []string
	chains = append(chains, fmt.Sprintf("[0:v]scale=%d:%d,setsar=1[base]", spec.Width, spec.Height))
	prev := "base"
	for i, o := range overlays {
		in := i + 1
		var filter strings.Builder
		fmt.Fprintf(&filter, "[%d:v]", in)
		if o.Crop != nil {
			fmt.Fprintf(&filter, "crop=%d:%d:%d:%d,", o.Crop.W, o.Crop.H, o.Crop.X, o.Crop.Y)
		}
		fmt.Fprintf(&filter, "scale=%d:%d[ov%d]", o.Area.W, o.Area.H, in)
		chains = append(chains, filter.String())

		out := fmt.Sprintf("v%d", in)
		chains = append(chains, fmt.Sprintf("[%s][ov%d]overlay=%d:%d:eof_action=repeat[%s]", prev, in, o.Area.X, o.Area.Y, out))
		prev = out
	}

	if titleFile != "" {
		a := spec.TitleArea
		chains = append(chains, fmt.Sprintf(
			"[%s]drawtext=fontfile='%s':textfile='%s':fontcolor=white:fontsize=%d:x=%d+(%d-tw)/2:y=%d+(%d-th)/2[titled]",
			prev, escapeFilterPath(spec.FontFile), escapeFilterPath(titleFile), max(a.H/2, 12), a.X, a.W, a.Y, a.H,
		))
		prev = "titled"
	}

	args = append(args,
		"-filter_complex", strings.Join(chains, ";"),
		"-map", "["+prev+"]",
		"-map", fmt.Sprintf("%d:a", audioInput),
	)
	if spec.Duration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", spec.Duration))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprint(fps),
		"-c:a", "aac",
		"-b:a", "128k",
		"-shortest",
		spec.Output,
	)
	return args
}

// brandingArgs builds the ffmpeg arguments for ApplyBranding.
func brandingArgs(input, output string, b Branding, watermarkFile string) []string {
	args := []string{"-y", "-i", input}

	var chains []string
	prev := "0:v"
	if b.LogoPath != "" {
		args = append(args, "-i", b.LogoPath)
		chains = append(chains,
			"[1:v]scale=-1:96[logo]",
			fmt.Sprintf("[%s][logo]overlay=W-w-40:40[logoed]", prev),
		)
		prev = "logoed"
	}
	if watermarkFile != "" {
		font := ""
		if b.FontFile != "" {
			font = fmt.Sprintf("fontfile='%s':", escapeFilterPath(b.FontFile))
		}
		chains = append(chains, fmt.Sprintf(
			"[%s]drawtext=%stextfile='%s':fontcolor=white@0.6:fontsize=36:x=w-tw-40:y=h-th-40[marked]",
			prev, font, escapeFilterPath(watermarkFile),
		))
		prev = "marked"
	}

	args = append(args,
		"-filter_complex", strings.Join(chains, ";"),
		"-map", "["+prev+"]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		output,
	)
	return args
}

// escapeFilterPath quotes a path for use inside a filtergraph option value.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, `'`, `'\''`)
	return strings.ReplaceAll(p, ":", `\:`)
}
