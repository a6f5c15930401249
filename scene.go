package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"cogentcore.org/core/math32"
	"gopkg.in/yaml.v3"
)

// SceneElement is one addressable piece of scene content
type SceneElement struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Position [3]float32 `yaml:"position"` // Representative point used for clipping
}

// Point returns the element's position as a vector
func (e SceneElement) Point() math32.Vector3 {
	return math32.Vec3(e.Position[0], e.Position[1], e.Position[2])
}

// SceneGroup is an element group (model) addressed by one model timeline
type SceneGroup struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Elements []SceneElement `yaml:"elements"`
}

// ElementSource answers the population query used to compute the
// excluded set.
type ElementSource interface {
	ElementIDs(ctx context.Context) ([]string, error)
}

// ReadySignal is closed once the scene content is fully loaded
type ReadySignal interface {
	Ready() <-chan struct{}
}

// Scene is a scene description loaded from a YAML file in the background
type Scene struct {
	groups []SceneGroup
	err    error
	ready  chan struct{}
}

// sceneFile is the on-disk scene layout
type sceneFile struct {
	Groups []SceneGroup `yaml:"groups"`
}

// OpenScene starts loading the scene at path. Ready is closed when loading
// finishes, successfully or not.
func OpenScene(path string) *Scene {
	scene := &Scene{ready: make(chan struct{})}
	go func() {
		defer close(scene.ready)
		scene.groups, scene.err = parseSceneFile(path)
	}()
	return scene
}

// NewScene returns an already-loaded scene
func NewScene(groups []SceneGroup) *Scene {
	scene := &Scene{groups: groups, ready: make(chan struct{})}
	close(scene.ready)
	return scene
}

// parseSceneFile reads and validates a scene description
func parseSceneFile(path string) ([]SceneGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	var file sceneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode scene file: %w", err)
	}

	seen := make(map[string]string)
	for _, group := range file.Groups {
		if group.ID == "" {
			return nil, fmt.Errorf("scene group without id")
		}
		for _, element := range group.Elements {
			if element.ID == "" {
				return nil, fmt.Errorf("element without id in group %s", group.ID)
			}
			if other, dup := seen[element.ID]; dup {
				return nil, fmt.Errorf("element %s appears in groups %s and %s", element.ID, other, group.ID)
			}
			seen[element.ID] = group.ID
		}
	}
	return file.Groups, nil
}

// Ready is closed once loading has finished
func (s *Scene) Ready() <-chan struct{} {
	return s.ready
}

// Groups returns the scene's element groups. It is empty until Ready.
func (s *Scene) Groups() []SceneGroup {
	select {
	case <-s.ready:
		return s.groups
	default:
		return nil
	}
}

// ElementIDs waits for the scene to load and returns every element id in
// scene order.
func (s *Scene) ElementIDs(ctx context.Context) ([]string, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrSceneQuery, ctx.Err())
	}
	if s.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSceneQuery, s.err)
	}

	var ids []string
	for _, group := range s.groups {
		for _, element := range group.Elements {
			ids = append(ids, element.ID)
		}
	}
	return ids, nil
}

// Engine is the playback side of the rendering collaborator
type Engine interface {
	Viewport
	Install(script *Script, excluded ExcludedSet) error
	TimePoint() float64
	SetTimePoint(t float64)
	OnTimePointChanged(fn func(t float64)) (drop func())
}

// ElementState is how one element appears at a point in time
type ElementState struct {
	Element    SceneElement
	Visibility float64 // Percent, 0 to 100
	Color      *RGB    // Nil when no override applies
	Animated   bool    // Referenced by some step
	NeverDrawn bool    // In the excluded set
	Clipped    bool    // Cut away by the active clip region
}

// Drawn reports whether the element is visible at all
func (e ElementState) Drawn() bool {
	return !e.NeverDrawn && !e.Clipped && e.Visibility > 0
}

// GroupState holds element states for one group
type GroupState struct {
	Group    SceneGroup
	Elements []ElementState
}

// DrawnCount returns the number of drawn elements in the group
func (g GroupState) DrawnCount() int {
	count := 0
	for _, e := range g.Elements {
		if e.Drawn() {
			count++
		}
	}
	return count
}

// SceneState is the evaluated scene at a point in time
type SceneState struct {
	Time   float64
	Groups []GroupState
}

// Playback is an in-process Engine. It evaluates an installed script the
// way the rendering engine would: visibility interpolates between samples,
// color holds the latest sample, and later timelines win for elements that
// appear in more than one step.
//
// Playback is not safe for concurrent use; the viewer drives it from the
// UI goroutine.
type Playback struct {
	scene     *Scene
	script    *Script
	excluded  ExcludedSet
	timelines map[string][]*ElementTimeline // Element id -> timelines in script order

	timePoint    float64
	listeners    map[int]func(float64)
	nextListener int

	clipEnabled bool
	clip        *ClipRegion
}

// NewPlayback creates an engine over scene with nothing installed
func NewPlayback(scene *Scene) *Playback {
	return &Playback{
		scene:     scene,
		listeners: make(map[int]func(float64)),
	}
}

// Install loads the compiled script and the never-drawn set. It may only
// be called once.
func (p *Playback) Install(script *Script, excluded ExcludedSet) error {
	if p.script != nil {
		return ErrAlreadyInstalled
	}
	p.install(script, excluded)
	start, _ := script.Range()
	p.SetTimePoint(start)
	return nil
}

// Reinstall swaps in a recompiled script, keeping the current time and clip
func (p *Playback) Reinstall(script *Script, excluded ExcludedSet) {
	p.install(script, excluded)
	p.SetTimePoint(p.clampTime(p.timePoint))
}

func (p *Playback) install(script *Script, excluded ExcludedSet) {
	timelines := make(map[string][]*ElementTimeline)
	for mi := range script.Models {
		model := &script.Models[mi]
		for ti := range model.ElementTimelines {
			timeline := &model.ElementTimelines[ti]
			for _, id := range timeline.ElementIDs {
				timelines[id] = append(timelines[id], timeline)
			}
		}
	}
	p.script = script
	p.excluded = excluded
	p.timelines = timelines
}

// Installed reports whether a script has been installed
func (p *Playback) Installed() bool {
	return p.script != nil
}

// Range returns the script's time span in seconds
func (p *Playback) Range() (start, end float64) {
	if p.script == nil {
		return 0, 0
	}
	return p.script.Range()
}

// TimePoint returns the current animation time in seconds
func (p *Playback) TimePoint() float64 {
	return p.timePoint
}

// SetTimePoint moves the animation clock and notifies listeners if the
// time changed.
func (p *Playback) SetTimePoint(t float64) {
	if t == p.timePoint {
		return
	}
	p.timePoint = t

	// Notify in registration order
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		p.listeners[id](t)
	}
}

// OnTimePointChanged registers fn to be called after every time change.
// Calling the returned function removes it.
func (p *Playback) OnTimePointChanged(fn func(t float64)) (drop func()) {
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = fn
	return func() { delete(p.listeners, id) }
}

// clampTime limits t to the installed script's range
func (p *Playback) clampTime(t float64) float64 {
	start, end := p.Range()
	return clampSeconds(t, start, end)
}

// ClearClips removes any active clip
func (p *Playback) ClearClips() {
	p.clipEnabled = false
	p.clip = nil
}

// EnableClipVolume turns on clip-volume rendering
func (p *Playback) EnableClipVolume() {
	p.clipEnabled = true
}

// SetViewClip replaces the active clip region
func (p *Playback) SetViewClip(region ClipRegion) {
	p.clip = &region
}

// ActiveClip returns the clip region in effect, if any
func (p *Playback) ActiveClip() (ClipRegion, bool) {
	if !p.clipEnabled || p.clip == nil {
		return ClipRegion{}, false
	}
	return *p.clip, true
}

// State evaluates the scene at the current time point
func (p *Playback) State() SceneState {
	return p.StateAt(p.timePoint)
}

// StateAt evaluates every scene element at time t
func (p *Playback) StateAt(t float64) SceneState {
	state := SceneState{Time: t}
	clip, clipping := p.ActiveClip()

	for _, group := range p.scene.Groups() {
		groupState := GroupState{Group: group}
		for _, element := range group.Elements {
			elementState := ElementState{
				Element:    element,
				Visibility: visibilityShown,
				NeverDrawn: p.excluded.Contains(element.ID),
			}

			if timelines := p.timelines[element.ID]; len(timelines) > 0 {
				// The last timeline naming the element wins
				timeline := timelines[len(timelines)-1]
				elementState.Animated = true
				elementState.Visibility = visibilityAt(timeline.Visibility, t)
				elementState.Color = colorAt(timeline.Color, t)
			}

			if clipping && !clip.Contains(element.Point()) {
				elementState.Clipped = true
			}
			groupState.Elements = append(groupState.Elements, elementState)
		}
		state.Groups = append(state.Groups, groupState)
	}
	return state
}

// visibilityAt evaluates a visibility timeline at t. Before the first
// sample the first value holds; after the last sample the last value holds.
func visibilityAt(entries []VisibilityEntry, t float64) float64 {
	if len(entries) == 0 {
		return visibilityShown
	}

	// First sample strictly after t
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Time > t
	})
	if i == 0 {
		return entries[0].Value
	}
	if i == len(entries) {
		return entries[len(entries)-1].Value
	}

	prev, next := entries[i-1], entries[i]
	if prev.Interpolation != InterpolationLinear || next.Time <= prev.Time {
		return prev.Value
	}
	fraction := (t - prev.Time) / (next.Time - prev.Time)
	return prev.Value + fraction*(next.Value-prev.Value)
}

// colorAt returns the latest color sample at or before t
func colorAt(entries []ColorEntry, t float64) *RGB {
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Time > t
	})
	if i == 0 {
		return nil
	}
	return entries[i-1].Value
}

// clampSeconds limits v to [low, high]
func clampSeconds(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
