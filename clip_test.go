package main

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingViewport records every clip call in order
type recordingViewport struct {
	calls   []string
	regions []ClipRegion
}

func (v *recordingViewport) ClearClips() {
	v.calls = append(v.calls, "clear")
}

func (v *recordingViewport) EnableClipVolume() {
	v.calls = append(v.calls, "enable")
}

func (v *recordingViewport) SetViewClip(region ClipRegion) {
	v.calls = append(v.calls, "set")
	v.regions = append(v.regions, region)
}

func TestSelectRegionNoneClears(t *testing.T) {
	table := DefaultClipTable()
	viewport := &recordingViewport{}

	command := table.SelectRegion(viewport, "none")
	assert.Equal(t, ClipClear, command.Kind)
	assert.Equal(t, []string{"clear"}, viewport.calls)
	assert.Empty(t, viewport.regions)
}

func TestSelectRegionUnknownClears(t *testing.T) {
	viewport := &recordingViewport{}
	command := DefaultClipTable().SelectRegion(viewport, "basement")
	assert.Equal(t, ClipClear, command.Kind)
	assert.Equal(t, []string{"clear"}, viewport.calls)
}

func TestSelectRegionDefaultPlanes(t *testing.T) {
	table := DefaultClipTable()
	down := math32.Vec3(0, 0, -1)

	var points []math32.Vector3
	for _, name := range []string{"first", "second"} {
		t.Run(name, func(t *testing.T) {
			viewport := &recordingViewport{}
			command := table.SelectRegion(viewport, name)

			assert.Equal(t, ClipApply, command.Kind)
			assert.Equal(t, []string{"enable", "set"}, viewport.calls)
			require.Len(t, viewport.regions, 1)
			require.Len(t, viewport.regions[0].Planes, 1)

			plane := viewport.regions[0].Planes[0]
			assert.Equal(t, down, plane.Normal)
			points = append(points, plane.Point)
		})
	}
	require.Len(t, points, 2)
	assert.NotEqual(t, points[0], points[1])
	assert.Equal(t, math32.Vec3(6.0134, 6.7548, 2.7), points[0])
	assert.Equal(t, math32.Vec3(6.0134, 6.7548, 5.6287), points[1])
}

func TestSelectRegionRepeatedIsIdempotent(t *testing.T) {
	table := DefaultClipTable()
	first := &recordingViewport{}
	second := &recordingViewport{}

	table.SelectRegion(first, "second")
	table.SelectRegion(second, "second")
	table.SelectRegion(second, "second")

	assert.Equal(t, first.regions[0], second.regions[0])
	assert.Equal(t, second.regions[0], second.regions[1])
}

func TestClipTableLabelsAndCycle(t *testing.T) {
	table := DefaultClipTable()

	assert.Equal(t, []string{"none", "first", "second"}, table.Names())
	assert.Equal(t, "Show All", table.Label("none"))
	assert.Equal(t, "First Floor Only", table.Label("first"))
	assert.Equal(t, "Hide Roof", table.Label("second"))
	assert.Equal(t, "Show All", table.Label("unknown"))

	assert.Equal(t, "first", table.Next("none"))
	assert.Equal(t, "second", table.Next("first"))
	assert.Equal(t, "none", table.Next("second"))
	assert.Equal(t, "none", table.Next("unknown"))
}

func TestClipRegionContains(t *testing.T) {
	table := DefaultClipTable()
	first := table.Select("first").Region

	assert.True(t, first.Contains(math32.Vec3(0, 0, 0)))
	assert.True(t, first.Contains(math32.Vec3(100, -50, 2.7)), "points on the plane are kept")
	assert.False(t, first.Contains(math32.Vec3(6, 6, 3)))

	second := table.Select("second").Region
	assert.True(t, second.Contains(math32.Vec3(6, 6, 3)))
	assert.False(t, second.Contains(math32.Vec3(6, 6, 6.5)))
}

func TestNewClipPlaneNormalizes(t *testing.T) {
	plane, err := NewClipPlane(math32.Vec3(0, 0, 5), math32.Vec3(1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, math32.Vec3(0, 0, 1), plane.Normal)

	_, err = NewClipPlane(math32.Vector3{}, math32.Vec3(1, 1, 1))
	assert.Error(t, err)
}

func TestNewClipTableValidates(t *testing.T) {
	plane := ClipPlane{Normal: math32.Vec3(0, 0, -1)}

	_, err := NewClipTable([]ClipRegion{{Name: "none", Planes: []ClipPlane{plane}}})
	assert.Error(t, err, "none is reserved")

	_, err = NewClipTable([]ClipRegion{{Name: "a", Planes: []ClipPlane{plane}}, {Name: "a", Planes: []ClipPlane{plane}}})
	assert.Error(t, err)

	_, err = NewClipTable([]ClipRegion{{Name: "empty"}})
	assert.Error(t, err)

	table, err := NewClipTable([]ClipRegion{{Name: "a", Planes: []ClipPlane{plane}}})
	require.NoError(t, err)
	assert.Equal(t, "a", table.Label("a"), "label defaults to the name")
}

func TestClipCommandKindString(t *testing.T) {
	assert.Equal(t, "clear", ClipClear.String())
	assert.Equal(t, "apply", ClipApply.String())
	assert.Equal(t, "ClipCommandKind(7)", ClipCommandKind(7).String())
}
