// Package zone provides the playback zone domain model reported by the control plane.
package zone

import (
	"encoding/json"
)

// State represents the playback state of a zone.
type State string

const (
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateLoading State = "loading"
	StateStopped State = "stopped"
)

// Command is a transport control command understood by the control plane.
type Command string

const (
	CommandPause Command = "pause"
	CommandNext  Command = "next"
	CommandStop  Command = "stop"
)

// SourceControl describes a source control exposed by an output.
type SourceControl struct {
	ControlKey      string `json:"control_key"`
	DisplayName     string `json:"display_name,omitempty"`
	Status          string `json:"status,omitempty"` // "selected", "deselected", "standby", "indeterminate"
	SupportsStandby bool   `json:"supports_standby"`
}

// Output is an audio sink belonging to a zone.
type Output struct {
	OutputID       string          `json:"output_id"`
	ZoneID         string          `json:"zone_id,omitempty"`
	DisplayName    string          `json:"display_name,omitempty"`
	SourceControls []SourceControl `json:"source_controls,omitempty"`
}

// StandbyControl returns the first source control that supports standby.
func (o Output) StandbyControl() (SourceControl, bool) {
	for _, sc := range o.SourceControls {
		if sc.SupportsStandby {
			return sc, true
		}
	}
	return SourceControl{}, false
}

// Lines holds the display lines of a now playing descriptor.
type Lines struct {
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
	Line3 string `json:"line3,omitempty"`
}

// NowPlaying describes what a zone is currently playing.
type NowPlaying struct {
	SeekPosition *int   `json:"seek_position,omitempty"`
	Length       int    `json:"length,omitempty"`
	ImageKey     string `json:"image_key,omitempty"`
	OneLine      *Lines `json:"one_line,omitempty"`
	TwoLine      *Lines `json:"two_line,omitempty"`
	ThreeLine    *Lines `json:"three_line,omitempty"`
}

// Zone is a point-in-time snapshot of a playback zone.
// Snapshots are replaced wholesale on every update.
type Zone struct {
	ZoneID              string      `json:"zone_id"`
	DisplayName         string      `json:"display_name"`
	State               State       `json:"state"`
	Outputs             []Output    `json:"outputs,omitempty"`
	NowPlaying          *NowPlaying `json:"now_playing,omitempty"`
	IsNextAllowed       bool        `json:"is_next_allowed"`
	IsPreviousAllowed   bool        `json:"is_previous_allowed"`
	IsPauseAllowed      bool        `json:"is_pause_allowed"`
	IsPlayAllowed       bool        `json:"is_play_allowed"`
	IsSeekAllowed       bool        `json:"is_seek_allowed"`
	QueueItemsRemaining int         `json:"queue_items_remaining,omitempty"`
	QueueTimeRemaining  int         `json:"queue_time_remaining,omitempty"`

	// tree is the snapshot as received on the wire, including fields
	// the typed model does not know about.
	tree map[string]any
}

// UnmarshalJSON decodes the typed fields and keeps the raw value tree.
func (z *Zone) UnmarshalJSON(data []byte) error {
	type plain Zone
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return err
	}
	*z = Zone(p)
	z.tree = tree
	return nil
}

// Tree returns the snapshot as a generic value tree (maps, slices and scalars)
// suitable for structural matching. Snapshots that were not decoded from the
// wire are converted through their JSON form.
func (z Zone) Tree() any {
	if z.tree != nil {
		return z.tree
	}
	data, err := json.Marshal(z)
	if err != nil {
		return nil
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil
	}
	return tree
}

// Action returns the requested action carried in line1 of the three line display.
func (z Zone) Action() string {
	if z.NowPlaying == nil || z.NowPlaying.ThreeLine == nil {
		return ""
	}
	return z.NowPlaying.ThreeLine.Line1
}

// SupportsStandby reports whether any output advertises a standby capable source control.
func (z Zone) SupportsStandby() bool {
	for _, o := range z.Outputs {
		if _, ok := o.StandbyControl(); ok {
			return true
		}
	}
	return false
}

// PrimaryOutput returns the first output of the zone.
func (z Zone) PrimaryOutput() (Output, bool) {
	if len(z.Outputs) == 0 {
		return Output{}, false
	}
	return z.Outputs[0], true
}
