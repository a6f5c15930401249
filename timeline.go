package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Interpolation selects how the engine blends between two timeline entries.
// Values match the engine's script format.
type Interpolation int

const (
	InterpolationStep   Interpolation = 1
	InterpolationLinear Interpolation = 2
)

// Visibility percentages used by the compiler
const (
	visibilityHidden = 0
	visibilityShown  = 100
)

// RGB is an override color applied to every element of a timeline
type RGB struct {
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`
}

// Hex returns the color as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// StatusColors are the tints applied while a step is in progress
type StatusColors struct {
	Delayed RGB
	OnTime  RGB
}

// DefaultStatusColors are red for delayed steps and green for on-time ones
var DefaultStatusColors = StatusColors{
	Delayed: RGB{Red: 255},
	OnTime:  RGB{Green: 255},
}

// VisibilityEntry is one (time, percent) sample
type VisibilityEntry struct {
	Time          float64       `json:"time"`
	Value         float64       `json:"value"`
	Interpolation Interpolation `json:"interpolation"`
}

// ColorEntry is one (time, color) sample. A nil Value removes the override.
type ColorEntry struct {
	Time          float64       `json:"time"`
	Value         *RGB          `json:"value"`
	Interpolation Interpolation `json:"interpolation"`
}

// ElementTimeline animates one step's elements
type ElementTimeline struct {
	BatchID    int               `json:"batchId"`
	ElementIDs []string          `json:"elementIds"`
	Visibility []VisibilityEntry `json:"visibilityTimeline"`
	Color      []ColorEntry      `json:"colorTimeline"`
}

// ModelTimeline groups the element timelines of one element group
type ModelTimeline struct {
	ModelID          string            `json:"modelId"`
	ElementTimelines []ElementTimeline `json:"elementTimelines"`
}

// Script is the compiled schedule handed to the playback engine. It is
// never modified after Compile returns.
type Script struct {
	Models []ModelTimeline
}

// MarshalJSON encodes the script as the engine's bare array of model timelines
func (s *Script) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Models)
}

// UnmarshalJSON decodes an array of model timelines
func (s *Script) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &s.Models)
}

// Digest returns the blake3 hash of the script's JSON encoding. Compiling the
// same inputs twice yields the same digest.
func (s *Script) Digest() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode script: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Range returns the earliest and latest entry time in the script
func (s *Script) Range() (start, end float64) {
	start, end = math.Inf(1), math.Inf(-1)
	for _, model := range s.Models {
		for _, timeline := range model.ElementTimelines {
			for _, entry := range timeline.Visibility {
				start = math.Min(start, entry.Time)
				end = math.Max(end, entry.Time)
			}
			for _, entry := range timeline.Color {
				start = math.Min(start, entry.Time)
				end = math.Max(end, entry.Time)
			}
		}
	}
	if start > end {
		return 0, 0
	}
	return start, end
}

// ExcludedSet is the sorted set of scene elements no step references
type ExcludedSet []string

// newExcludedSet sorts and de-duplicates ids
func newExcludedSet(ids []string) ExcludedSet {
	set := slices.Clone(ids)
	slices.Sort(set)
	return ExcludedSet(slices.Compact(set))
}

// Contains reports whether id is excluded
func (e ExcludedSet) Contains(id string) bool {
	_, found := slices.BinarySearch(e, id)
	return found
}

// Compile builds the playback script for a schedule. Every step gets its
// own element timeline in its group's model timeline, in file order:
//
//   - hidden at the schedule's global start (the first step's start)
//   - hidden and tinted with its status color at its own start
//   - fully shown with the tint removed at its end
//
// population is every element id in the scene; the ids no step mentions
// are returned as the excluded set. Steps that end before they start or
// name elements missing from the scene are all reported together and
// nothing is compiled.
func Compile(schedule *Schedule, population []string, colors StatusColors) (*Script, ExcludedSet, error) {
	if schedule.Len() == 0 {
		return nil, nil, ErrEmptySchedule
	}

	inScene := make(map[string]bool, len(population))
	for _, id := range population {
		inScene[id] = true
	}

	// Validate every step before building anything
	var rejected []*RowError
	for _, step := range schedule.steps {
		if step.EndTime.Before(step.StartTime) {
			rejected = append(rejected, &RowError{
				Row:    step.Row,
				Field:  columnNames[colEndTime],
				Reason: fmt.Sprintf("ends at %s before it starts at %s", step.EndTime.Format(timeDisplayLayout), step.StartTime.Format(timeDisplayLayout)),
				Err:    ErrInvertedInterval,
			})
		}
		var missing []string
		for _, id := range step.ElementIDs {
			if !inScene[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			rejected = append(rejected, &RowError{
				Row:    step.Row,
				Field:  columnNames[colElementIDs],
				Reason: fmt.Sprintf("not in scene: %s", strings.Join(missing, ", ")),
				Err:    ErrUnknownElement,
			})
		}
	}
	if len(rejected) > 0 {
		return nil, nil, &CompileError{Rows: rejected}
	}

	globalStart, _ := schedule.GlobalStart()
	anchor := unixSeconds(globalStart)

	script := &Script{}
	modelIndex := make(map[string]int)
	referenced := make(map[string]bool)

	for _, step := range schedule.steps {
		index, ok := modelIndex[step.GroupID]
		if !ok {
			index = len(script.Models)
			modelIndex[step.GroupID] = index
			script.Models = append(script.Models, ModelTimeline{ModelID: step.GroupID})
		}
		model := &script.Models[index]

		start := unixSeconds(step.StartTime)
		end := unixSeconds(step.EndTime)

		statusColor := colors.OnTime
		if step.IsDelayed() {
			statusColor = colors.Delayed
		}

		timeline := ElementTimeline{
			BatchID:    len(model.ElementTimelines) + 1,
			ElementIDs: slices.Clone(step.ElementIDs),
			Visibility: []VisibilityEntry{
				{Time: anchor, Value: visibilityHidden, Interpolation: InterpolationLinear},
				{Time: start, Value: visibilityHidden, Interpolation: InterpolationLinear},
				{Time: end, Value: visibilityShown, Interpolation: InterpolationLinear},
			},
			Color: []ColorEntry{
				{Time: start, Value: &statusColor, Interpolation: InterpolationStep},
				{Time: end, Value: nil, Interpolation: InterpolationStep},
			},
		}

		// A step that starts before the anchor would otherwise emit its
		// samples out of order
		sort.SliceStable(timeline.Visibility, func(i, j int) bool {
			return timeline.Visibility[i].Time < timeline.Visibility[j].Time
		})
		sort.SliceStable(timeline.Color, func(i, j int) bool {
			return timeline.Color[i].Time < timeline.Color[j].Time
		})

		model.ElementTimelines = append(model.ElementTimelines, timeline)
		for _, id := range step.ElementIDs {
			referenced[id] = true
		}
	}

	var excluded []string
	for _, id := range population {
		if !referenced[id] {
			excluded = append(excluded, id)
		}
	}

	return script, newExcludedSet(excluded), nil
}
