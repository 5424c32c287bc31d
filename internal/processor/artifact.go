package processor

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Artifact is a file produced for one scene.
type Artifact struct {
	Index int
	Path  string
}

// SortArtifacts orders artifacts by scene index.
func SortArtifacts(as []Artifact) {
	sort.Slice(as, func(i, j int) bool { return as[i].Index < as[j].Index })
}

// Paths returns the artifact paths in their current order.
func Paths(as []Artifact) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Path
	}
	return out
}

// ByIndex returns the artifacts keyed by scene index.
func ByIndex(as []Artifact) map[int]string {
	out := make(map[int]string, len(as))
	for _, a := range as {
		out[a.Index] = a.Path
	}
	return out
}

var unsafeTitleChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\-. ]`)

// SafeTitle makes a storyboard title usable as a file name prefix.
func SafeTitle(title string) string {
	return unsafeTitleChars.ReplaceAllString(title, "_")
}

// AssetFileName is the name of the per-scene image or audio file for scene i.
// Numbering on disk is 1-based.
func AssetFileName(title string, i int, ext string) string {
	return fmt.Sprintf("%s_%d%s", SafeTitle(title), i+1, ext)
}

// ParseAssetIndex extracts the 0-based scene index from a file named by
// AssetFileName. ok is false for files belonging to another title or without
// a numeric suffix.
func ParseAssetIndex(title, name string) (index int, ok bool) {
	prefix := SafeTitle(title) + "_"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	rest := strings.TrimPrefix(name, prefix)
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		rest = rest[:dot]
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
