package main

import (
	"slices"
	"sort"
	"time"
)

// ActiveStep is a step whose interval contains the queried time
type ActiveStep struct {
	Index int // Position in the schedule's file order
	Step  StepRecord
}

// ActiveSteps returns every step with start <= t <= end, in file order.
// This is the reference definition; StepIndex answers the same question
// without scanning every step.
func ActiveSteps(schedule *Schedule, t time.Time) []ActiveStep {
	var active []ActiveStep
	for i := 0; i < schedule.Len(); i++ {
		step := schedule.Step(i)
		if step.Contains(t) {
			active = append(active, ActiveStep{Index: i, Step: step})
		}
	}
	return active
}

// StepIndex answers active-step queries for a fixed schedule. Steps are
// sorted by start time and carry the running maximum end time, so a query
// only walks back from the last step that has started until no earlier
// step can still be running.
type StepIndex struct {
	schedule   *Schedule
	byStart    []int       // Step indices ordered by start time
	starts     []time.Time // Start times in byStart order
	maxEnd     []time.Time // maxEnd[i] is the latest end among byStart[0..i]
	boundaries []time.Time // Sorted, de-duplicated start and end instants
}

// NewStepIndex builds the index for schedule
func NewStepIndex(schedule *Schedule) *StepIndex {
	n := schedule.Len()
	index := &StepIndex{
		schedule: schedule,
		byStart:  make([]int, n),
		starts:   make([]time.Time, n),
		maxEnd:   make([]time.Time, n),
	}
	for i := range index.byStart {
		index.byStart[i] = i
	}
	sort.SliceStable(index.byStart, func(a, b int) bool {
		return schedule.Step(index.byStart[a]).StartTime.Before(schedule.Step(index.byStart[b]).StartTime)
	})

	for i, stepIndex := range index.byStart {
		step := schedule.Step(stepIndex)
		index.starts[i] = step.StartTime
		index.maxEnd[i] = step.EndTime
		if i > 0 && index.maxEnd[i-1].After(step.EndTime) {
			index.maxEnd[i] = index.maxEnd[i-1]
		}
	}

	// Collect boundaries for next/previous jumps
	var boundaries []time.Time
	for i := 0; i < n; i++ {
		step := schedule.Step(i)
		boundaries = append(boundaries, step.StartTime, step.EndTime)
	}
	slices.SortFunc(boundaries, func(a, b time.Time) int { return a.Compare(b) })
	index.boundaries = slices.CompactFunc(boundaries, func(a, b time.Time) bool { return a.Equal(b) })

	return index
}

// Schedule returns the indexed schedule
func (x *StepIndex) Schedule() *Schedule {
	return x.schedule
}

// Active returns the steps active at t in file order. The result is
// identical to ActiveSteps(x.Schedule(), t).
func (x *StepIndex) Active(t time.Time) []ActiveStep {
	// Number of steps that have started by t
	started := sort.Search(len(x.starts), func(i int) bool {
		return x.starts[i].After(t)
	})

	var hits []int
	for i := started - 1; i >= 0; i-- {
		// Nothing at or before i is still running
		if x.maxEnd[i].Before(t) {
			break
		}
		stepIndex := x.byStart[i]
		if !x.schedule.Step(stepIndex).EndTime.Before(t) {
			hits = append(hits, stepIndex)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	slices.Sort(hits)
	active := make([]ActiveStep, len(hits))
	for i, stepIndex := range hits {
		active[i] = ActiveStep{Index: stepIndex, Step: x.schedule.Step(stepIndex)}
	}
	return active
}

// Boundaries returns every distinct step start and end instant in order
func (x *StepIndex) Boundaries() []time.Time {
	return slices.Clone(x.boundaries)
}

// NextBoundary returns the first step start or end strictly after t
func (x *StepIndex) NextBoundary(t time.Time) (time.Time, bool) {
	i := sort.Search(len(x.boundaries), func(i int) bool {
		return x.boundaries[i].After(t)
	})
	if i >= len(x.boundaries) {
		return time.Time{}, false
	}
	return x.boundaries[i], true
}

// PrevBoundary returns the last step start or end strictly before t
func (x *StepIndex) PrevBoundary(t time.Time) (time.Time, bool) {
	i := sort.Search(len(x.boundaries), func(i int) bool {
		return !x.boundaries[i].Before(t)
	})
	if i == 0 {
		return time.Time{}, false
	}
	return x.boundaries[i-1], true
}

// Titles projects active steps onto their titles. The i-th title belongs
// to the same step as the i-th entry of StartTimes and EndTimes.
func Titles(active []ActiveStep) []string {
	titles := make([]string, len(active))
	for i, a := range active {
		titles[i] = a.Step.Title
	}
	return titles
}

// StartTimes projects active steps onto their start times
func StartTimes(active []ActiveStep) []time.Time {
	starts := make([]time.Time, len(active))
	for i, a := range active {
		starts[i] = a.Step.StartTime
	}
	return starts
}

// EndTimes projects active steps onto their end times
func EndTimes(active []ActiveStep) []time.Time {
	ends := make([]time.Time, len(active))
	for i, a := range active {
		ends[i] = a.Step.EndTime
	}
	return ends
}
