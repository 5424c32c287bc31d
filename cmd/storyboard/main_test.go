package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// keep a stray .env in the working directory out of the tests
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPresetsCmd(t *testing.T) {
	t.Setenv("LAYOUT_PRESETS_FILE", "")

	out, err := execute(t, "presets")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "full "))
	assert.True(t, strings.HasPrefix(lines[2], "half "))
	assert.True(t, strings.HasPrefix(lines[3], "half2 "))
	assert.Contains(t, lines[2], "1920x1080")
	assert.Contains(t, lines[2], "1070x796+771+73")
}

func TestPresetsCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	yaml := `presets:
  - name: square
    width: 1080
    height: 1080
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	out, err := execute(t, "presets", "--presets-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "square")
	assert.Contains(t, out, "1080x1080")
}

func TestPresetsCmd_BadFile(t *testing.T) {
	_, err := execute(t, "presets", "--presets-file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRunCmd_RequiresFile(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestRunCmd_MissingStoryboard(t *testing.T) {
	_, err := execute(t, "run", "--file", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadStoryboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sb.json")
	body := `{"title":"Budget vote","storyboard":[{"text":"Parliament votes today","needAvatar":true},{"text":"Markets react"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	sb, err := readStoryboard(path)
	require.NoError(t, err)
	assert.Equal(t, "Budget vote", sb.Title)
	require.Len(t, sb.Scenes, 2)
	assert.True(t, sb.Scenes[0].NeedAvatar)
	assert.Equal(t, 1, sb.Scenes[1].Index)
}

func TestReadStoryboard_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sb.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := readStoryboard(path)
	require.Error(t, err)
}
