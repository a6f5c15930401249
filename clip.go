package main

import (
	"fmt"

	"cogentcore.org/core/math32"
)

// clipNone is the region name that removes any clip
const clipNone = "none"

// ClipPlane is a half-space bounded by a plane through Point. The side
// Normal points into is kept.
type ClipPlane struct {
	Normal math32.Vector3
	Point  math32.Vector3
}

// NewClipPlane creates a plane from a normal and a point it passes through.
// The normal is normalized and must not be zero.
func NewClipPlane(normal, point math32.Vector3) (ClipPlane, error) {
	if normal.Length() == 0 {
		return ClipPlane{}, fmt.Errorf("clip plane normal must not be zero")
	}
	return ClipPlane{Normal: normal.Normal(), Point: point}, nil
}

// Contains reports whether pt is on the kept side of the plane (or on it)
func (p ClipPlane) Contains(pt math32.Vector3) bool {
	return p.Normal.Dot(pt.Sub(p.Point)) >= 0
}

// ClipRegion is the convex intersection of its planes
type ClipRegion struct {
	Name   string
	Label  string
	Planes []ClipPlane
}

// Contains reports whether pt survives every plane of the region
func (r ClipRegion) Contains(pt math32.Vector3) bool {
	for _, plane := range r.Planes {
		if !plane.Contains(pt) {
			return false
		}
	}
	return true
}

// ClipCommandKind tells the viewport what to do with a selection
type ClipCommandKind int

const (
	ClipClear ClipCommandKind = iota
	ClipApply
)

func (k ClipCommandKind) String() string {
	switch k {
	case ClipClear:
		return "clear"
	case ClipApply:
		return "apply"
	default:
		return fmt.Sprintf("ClipCommandKind(%d)", int(k))
	}
}

// ClipCommand is the result of selecting a region by name
type ClipCommand struct {
	Kind   ClipCommandKind
	Region ClipRegion // Zero for ClipClear
}

// Viewport is the part of the rendering collaborator that shows clips
type Viewport interface {
	ClearClips()
	EnableClipVolume()
	SetViewClip(region ClipRegion)
}

// ClipTable maps region names to geometry. The first entry is always
// "none", which clears the clip.
type ClipTable struct {
	regions []ClipRegion
}

// downward is the shared normal of the default regions. It keeps
// everything below the plane.
var downward = math32.Vec3(0, 0, -1)

// DefaultClipTable returns the built-in regions: everything, the first
// floor only, and everything below the roof.
func DefaultClipTable() *ClipTable {
	table, _ := NewClipTable([]ClipRegion{
		{Name: "first", Label: "First Floor Only", Planes: []ClipPlane{{Normal: downward, Point: math32.Vec3(6.0134, 6.7548, 2.7)}}},
		{Name: "second", Label: "Hide Roof", Planes: []ClipPlane{{Normal: downward, Point: math32.Vec3(6.0134, 6.7548, 5.6287)}}},
	})
	return table
}

// NewClipTable builds a table from named regions. "none" is prepended and
// may not be redefined.
func NewClipTable(regions []ClipRegion) (*ClipTable, error) {
	table := &ClipTable{regions: []ClipRegion{{Name: clipNone, Label: "Show All"}}}
	seen := map[string]bool{clipNone: true}
	for _, region := range regions {
		if region.Name == "" {
			return nil, fmt.Errorf("clip region name must not be empty")
		}
		if seen[region.Name] {
			return nil, fmt.Errorf("duplicate clip region %q", region.Name)
		}
		if len(region.Planes) == 0 {
			return nil, fmt.Errorf("clip region %q has no planes", region.Name)
		}
		seen[region.Name] = true
		if region.Label == "" {
			region.Label = region.Name
		}
		table.regions = append(table.regions, region)
	}
	return table, nil
}

// Names returns region names in table order
func (t *ClipTable) Names() []string {
	names := make([]string, len(t.regions))
	for i, region := range t.regions {
		names[i] = region.Name
	}
	return names
}

// Label returns the display label for a region name
func (t *ClipTable) Label(name string) string {
	if region, ok := t.lookup(name); ok {
		return region.Label
	}
	return t.regions[0].Label
}

// Next returns the region after name, wrapping around to "none"
func (t *ClipTable) Next(name string) string {
	for i, region := range t.regions {
		if region.Name == name {
			return t.regions[(i+1)%len(t.regions)].Name
		}
	}
	return clipNone
}

// Select maps a region name to a command. "none" and unknown names clear
// the clip.
func (t *ClipTable) Select(name string) ClipCommand {
	region, ok := t.lookup(name)
	if !ok || region.Name == clipNone {
		return ClipCommand{Kind: ClipClear}
	}
	return ClipCommand{Kind: ClipApply, Region: region}
}

// SelectRegion selects name and issues the result to the viewport. Each
// call fully replaces whatever clip was active before.
func (t *ClipTable) SelectRegion(viewport Viewport, name string) ClipCommand {
	command := t.Select(name)
	switch command.Kind {
	case ClipClear:
		viewport.ClearClips()
	case ClipApply:
		viewport.EnableClipVolume()
		viewport.SetViewClip(command.Region)
	}
	return command
}

func (t *ClipTable) lookup(name string) (ClipRegion, bool) {
	for _, region := range t.regions {
		if region.Name == name {
			return region, true
		}
	}
	return ClipRegion{}, false
}
