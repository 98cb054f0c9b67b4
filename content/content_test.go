package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cursorworld/world"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestDefaultLevels(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)

	levels, err := Build(doc, Options{Clock: fixedClock})
	require.NoError(t, err)
	require.Len(t, levels, 3)

	names := make([]string, 0, len(levels))
	for _, l := range levels {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"Test", "Test Two", "End"}, names)

	for _, l := range levels {
		assert.False(t, l.Grid().Blocked(l.Spawn()), l.Name())
	}

	var rainbow *world.RainbowButton
	for _, o := range levels[2].Objects() {
		if rb, ok := o.(*world.RainbowButton); ok {
			rainbow = rb
		}
	}
	require.NotNil(t, rainbow)
	assert.Equal(t, 2024, rainbow.Count())
	assert.Equal(t, 2024, rainbow.CountMax)
}

func TestDefaultLevelContents(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)
	levels, err := Build(doc, Options{Clock: fixedClock})
	require.NoError(t, err)

	kinds := func(l *world.Level) map[world.Kind]int {
		out := map[world.Kind]int{}
		for _, o := range l.Objects() {
			b := o.(interface{ Kind() world.Kind })
			out[b.Kind()]++
		}
		return out
	}
	assert.Equal(t, map[world.Kind]int{
		world.KindText: 2, world.KindTeleport: 2, world.KindButton: 1, world.KindWall: 1,
	}, kinds(levels[0]))
	assert.Equal(t, map[world.Kind]int{
		world.KindText: 1, world.KindTeleport: 2, world.KindAreaCounter: 1, world.KindWall: 1,
	}, kinds(levels[1]))
	assert.Equal(t, map[world.Kind]int{
		world.KindText: 1, world.KindTeleport: 1, world.KindButton: 1,
	}, kinds(levels[2]))

	for _, o := range levels[0].Objects() {
		if w, ok := o.(*world.Wall); ok {
			assert.Equal(t, world.ColorPink, w.Color)
		}
		if txt, ok := o.(*world.Text); ok && txt.Content == "Colored text" {
			assert.Equal(t, uint32(0xFA15C1), txt.Color)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		yaml string
		is   error
	}{
		"no levels": {yaml: "levels: []"},
		"bad spawn": {yaml: "levels: [{name: a, spawn: [1]}]"},
		"unknown type": {yaml: `
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: lava, box: [0, 0, 1, 1]}]`},
		"short box": {yaml: `
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: wall, box: [0, 0]}]`},
		"target level out of range": {yaml: `
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: teleport, box: [0, 0, 1, 1], target_level: 3}]`, is: world.ErrUnknownLevel},
		"bad target point": {yaml: `
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: teleport, box: [0, 0, 1, 1], target_point: [5]}]`},
		"target point off map": {yaml: `
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: teleport, box: [0, 0, 1, 1], target_point: [500, 50]}]`, is: world.ErrOutOfBounds},
		"text too large": {yaml: `
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: text, box: [0, 0], size: 300, text: x}]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	doc, err := Parse([]byte(`
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: teleport, box: [0, 0, 1, 1], target_level: 0, target_point: [5, 5]}]`))
	require.NoError(t, err)
	_, err = Build(doc, Options{})
	assert.ErrorIs(t, err, world.ErrInvalidTeleportTarget)

	doc, err = Parse([]byte(`
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: wall, box: [390, 0, 20, 1]}]`))
	require.NoError(t, err)
	_, err = Build(doc, Options{})
	assert.ErrorIs(t, err, world.ErrOutOfBounds)

	doc, err = Parse([]byte(`levels: [{name: a, spawn: [500, 1]}]`))
	require.NoError(t, err)
	_, err = Build(doc, Options{})
	assert.ErrorIs(t, err, world.ErrOutOfBounds)

	doc, err = Parse([]byte(`
levels:
  - name: a
    spawn: [1, 1]
    objects: [{type: wall, box: [0, 0, 1, 1], color: mauve}]`))
	require.NoError(t, err)
	_, err = Build(doc, Options{})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	doc, err := Load("")
	require.NoError(t, err)
	assert.Len(t, doc.Levels, 3)

	path := filepath.Join(t.TempDir(), "levels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
levels:
  - name: Solo
    spawn: [10, 10]
    objects:
      - {type: wall, box: [0, 0, 5, 5], color: "#3333ff"}
`), 0o644))
	doc, err = Load(path)
	require.NoError(t, err)
	levels, err := Build(doc, Options{})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, "Solo", levels[0].Name())
	assert.True(t, levels[0].Grid().Blocked(world.Point{X: 4, Y: 4}))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	cases := map[string]uint32{
		"":        world.ColorBlack,
		"pink":    world.ColorPink,
		"Portage": world.ColorPortage,
		"#FF99FF": world.ColorViolet,
		"fa15c1":  0xFA15C1,
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"mauve", "#1234567", "zz"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}
