package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScene() *Scene {
	return NewScene([]SceneGroup{
		{ID: "M1", Name: "Structure", Elements: []SceneElement{
			{ID: "E1", Position: [3]float32{0, 0, 1}},
			{ID: "E2", Position: [3]float32{0, 0, 1}},
			{ID: "E3", Position: [3]float32{0, 0, 4}},
		}},
	})
}

// installedPlayback compiles twoStepSchedule against testScene
func installedPlayback(t *testing.T) *Playback {
	t.Helper()
	scene := testScene()
	population, err := scene.ElementIDs(context.Background())
	require.NoError(t, err)

	script, excluded, err := Compile(twoStepSchedule(), population, DefaultStatusColors)
	require.NoError(t, err)

	playback := NewPlayback(scene)
	require.NoError(t, playback.Install(script, excluded))
	return playback
}

func elementState(t *testing.T, state SceneState, id string) ElementState {
	t.Helper()
	for _, group := range state.Groups {
		for _, element := range group.Elements {
			if element.Element.ID == id {
				return element
			}
		}
	}
	t.Fatalf("element %s not in state", id)
	return ElementState{}
}

func TestOpenSceneFile(t *testing.T) {
	scene := OpenScene("testdata/scene.yaml")
	select {
	case <-scene.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("scene never became ready")
	}

	groups := scene.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "M1", groups[0].ID)
	assert.Equal(t, "Roof deck", groups[1].Elements[0].Name)

	ids, err := scene.ElementIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E2", "E3", "E4", "R1"}, ids)
}

func TestOpenSceneErrors(t *testing.T) {
	dir := t.TempDir()
	duplicate := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(duplicate, []byte(`
groups:
  - id: A
    elements: [{id: X}]
  - id: B
    elements: [{id: X}]
`), 0o644))

	for name, path := range map[string]string{
		"missing":   filepath.Join(dir, "missing.yaml"),
		"duplicate": duplicate,
	} {
		t.Run(name, func(t *testing.T) {
			scene := OpenScene(path)
			_, err := scene.ElementIDs(context.Background())
			assert.ErrorIs(t, err, ErrSceneQuery)
			assert.Empty(t, scene.Groups())
		})
	}
}

func TestSceneElementIDsHonorsContext(t *testing.T) {
	scene := &Scene{ready: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scene.ElementIDs(ctx)
	assert.ErrorIs(t, err, ErrSceneQuery)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, scene.Groups(), "groups are hidden until ready")
}

func TestPlaybackInstallOnce(t *testing.T) {
	playback := installedPlayback(t)
	assert.True(t, playback.Installed())

	start, end := playback.Range()
	assert.Equal(t, secondsOf(1), start)
	assert.Equal(t, secondsOf(3), end)
	assert.Equal(t, start, playback.TimePoint())

	script, _, err := Compile(twoStepSchedule(), []string{"E1", "E2"}, DefaultStatusColors)
	require.NoError(t, err)
	assert.ErrorIs(t, playback.Install(script, nil), ErrAlreadyInstalled)
}

func TestPlaybackEvaluation(t *testing.T) {
	playback := installedPlayback(t)

	// Start of the schedule: E1 is tinted and hidden, E2 not yet started
	state := playback.StateAt(secondsOf(1))
	e1 := elementState(t, state, "E1")
	assert.True(t, e1.Animated)
	assert.Equal(t, 0.0, e1.Visibility)
	assert.Equal(t, &RGB{Green: 255}, e1.Color)
	assert.False(t, e1.Drawn())

	e2 := elementState(t, state, "E2")
	assert.Equal(t, 0.0, e2.Visibility)
	assert.Nil(t, e2.Color)

	// Halfway through the first step
	state = playback.StateAt(secondsOf(1) + 12*60*60)
	assert.InDelta(t, 50.0, elementState(t, state, "E1").Visibility, 1e-9)

	// Second day: E1 finished, E2 in progress and delayed
	state = playback.StateAt(secondsOf(2) + 6*60*60)
	e1 = elementState(t, state, "E1")
	assert.Equal(t, 100.0, e1.Visibility)
	assert.Nil(t, e1.Color)
	assert.True(t, e1.Drawn())
	e2 = elementState(t, state, "E2")
	assert.InDelta(t, 25.0, e2.Visibility, 1e-9)
	assert.Equal(t, &RGB{Red: 255}, e2.Color)

	// E3 is never referenced
	e3 := elementState(t, state, "E3")
	assert.True(t, e3.NeverDrawn)
	assert.False(t, e3.Animated)
	assert.False(t, e3.Drawn())

	// After the end everything holds its final value
	state = playback.StateAt(secondsOf(4))
	assert.Equal(t, 100.0, elementState(t, state, "E2").Visibility)
	assert.Equal(t, 2, state.Groups[0].DrawnCount())
}

func TestPlaybackLaterTimelineWins(t *testing.T) {
	scene := NewScene([]SceneGroup{{ID: "M1", Elements: []SceneElement{{ID: "E1"}}}})
	schedule := NewSchedule([]StepRecord{
		{StartTime: day(1), EndTime: day(2), ElementIDs: []string{"E1"}, GroupID: "M1", RevisedStartTime: day(1)},
		{StartTime: day(3), EndTime: day(4), ElementIDs: []string{"E1"}, GroupID: "M1", RevisedStartTime: day(3)},
	})
	script, excluded, err := Compile(schedule, []string{"E1"}, DefaultStatusColors)
	require.NoError(t, err)

	playback := NewPlayback(scene)
	require.NoError(t, playback.Install(script, excluded))

	// The first step would show E1 fully on day 2; the second hides it
	// until day 3
	state := playback.StateAt(secondsOf(2))
	assert.Equal(t, 0.0, elementState(t, state, "E1").Visibility)
}

func TestPlaybackListeners(t *testing.T) {
	playback := installedPlayback(t)

	var order []string
	var seen []float64
	playback.OnTimePointChanged(func(t float64) {
		order = append(order, "first")
		seen = append(seen, t)
	})
	drop := playback.OnTimePointChanged(func(float64) {
		order = append(order, "second")
	})

	playback.SetTimePoint(secondsOf(2))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []float64{secondsOf(2)}, seen)

	// Setting the same time is not a change
	playback.SetTimePoint(secondsOf(2))
	assert.Len(t, order, 2)

	drop()
	playback.SetTimePoint(secondsOf(3))
	assert.Equal(t, []string{"first", "second", "first"}, order)
}

func TestPlaybackReinstallKeepsTime(t *testing.T) {
	playback := installedPlayback(t)
	playback.SetTimePoint(secondsOf(2))

	shorter := NewSchedule([]StepRecord{
		{StartTime: day(1), EndTime: day(1).Add(12 * time.Hour), ElementIDs: []string{"E1"}, GroupID: "M1", RevisedStartTime: day(1)},
	})
	script, excluded, err := Compile(shorter, []string{"E1", "E2", "E3"}, DefaultStatusColors)
	require.NoError(t, err)

	playback.Reinstall(script, excluded)
	assert.Equal(t, secondsOf(1)+12*60*60, playback.TimePoint(), "time is clamped to the new range")
	assert.True(t, elementState(t, playback.State(), "E2").NeverDrawn)
}

func TestPlaybackClipMarksElements(t *testing.T) {
	playback := installedPlayback(t)
	playback.SetTimePoint(secondsOf(3))

	DefaultClipTable().SelectRegion(playback, "first")
	region, ok := playback.ActiveClip()
	require.True(t, ok)
	assert.Equal(t, "first", region.Name)

	state := playback.State()
	assert.False(t, elementState(t, state, "E1").Clipped)
	assert.True(t, elementState(t, state, "E3").Clipped, "E3 sits above the first floor plane")

	DefaultClipTable().SelectRegion(playback, "none")
	_, ok = playback.ActiveClip()
	assert.False(t, ok)
	assert.False(t, elementState(t, playback.State(), "E3").Clipped)
}

func TestVisibilityAtHoldsEnds(t *testing.T) {
	entries := []VisibilityEntry{
		{Time: 10, Value: 0, Interpolation: InterpolationLinear},
		{Time: 20, Value: 100, Interpolation: InterpolationLinear},
	}
	assert.Equal(t, 0.0, visibilityAt(entries, 5))
	assert.Equal(t, 0.0, visibilityAt(entries, 10))
	assert.Equal(t, 50.0, visibilityAt(entries, 15))
	assert.Equal(t, 100.0, visibilityAt(entries, 20))
	assert.Equal(t, 100.0, visibilityAt(entries, 25))
	assert.Equal(t, float64(visibilityShown), visibilityAt(nil, 0))

	stepped := []VisibilityEntry{
		{Time: 10, Value: 0, Interpolation: InterpolationStep},
		{Time: 20, Value: 100, Interpolation: InterpolationStep},
	}
	assert.Equal(t, 0.0, visibilityAt(stepped, 19))
}
