package zone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const livingRoomJSON = `{
	"zone_id": "1601c1a4",
	"display_name": "Living Room",
	"state": "playing",
	"is_next_allowed": true,
	"outputs": [
		{
			"output_id": "1701c1a4",
			"zone_id": "1601c1a4",
			"display_name": "Living Room",
			"source_controls": [
				{"control_key": "1", "display_name": "DAC", "status": "selected", "supports_standby": true}
			]
		}
	],
	"now_playing": {
		"seek_position": 3,
		"length": 10,
		"three_line": {"line1": "Pause", "line2": "Queue Bot", "line3": ""}
	},
	"settings": {"loop": "disabled", "shuffle": false}
}`

func TestZone_UnmarshalJSON(t *testing.T) {
	var z Zone
	require.NoError(t, json.Unmarshal([]byte(livingRoomJSON), &z))

	assert.Equal(t, "1601c1a4", z.ZoneID)
	assert.Equal(t, "Living Room", z.DisplayName)
	assert.Equal(t, StatePlaying, z.State)
	assert.True(t, z.IsNextAllowed)
	assert.Equal(t, "Pause", z.Action())

	tree, ok := z.Tree().(map[string]any)
	require.True(t, ok)
	// Fields outside the typed model survive in the tree.
	assert.Contains(t, tree, "settings")
	assert.Equal(t, "Queue Bot", tree["now_playing"].(map[string]any)["three_line"].(map[string]any)["line2"])
}

func TestZone_TreeWithoutWireData(t *testing.T) {
	z := Zone{
		ZoneID:      "z1",
		DisplayName: "Kitchen",
		State:       StateStopped,
	}

	tree, ok := z.Tree().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "z1", tree["zone_id"])
	assert.Equal(t, "stopped", tree["state"])
	assert.NotContains(t, tree, "now_playing")
}

func TestZone_Action(t *testing.T) {
	tests := []struct {
		name string
		zone Zone
		want string
	}{
		{
			name: "no now playing",
			zone: Zone{},
			want: "",
		},
		{
			name: "no three line",
			zone: Zone{NowPlaying: &NowPlaying{OneLine: &Lines{Line1: "Song"}}},
			want: "",
		},
		{
			name: "standby requested",
			zone: Zone{NowPlaying: &NowPlaying{ThreeLine: &Lines{Line1: "Standby", Line2: "Queue Bot"}}},
			want: "Standby",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.zone.Action())
		})
	}
}

func TestZone_SupportsStandby(t *testing.T) {
	plain := Output{OutputID: "o1", SourceControls: []SourceControl{{ControlKey: "1"}}}
	capable := Output{OutputID: "o2", SourceControls: []SourceControl{{ControlKey: "2", SupportsStandby: true}}}

	assert.False(t, Zone{}.SupportsStandby())
	assert.False(t, Zone{Outputs: []Output{plain}}.SupportsStandby())
	assert.True(t, Zone{Outputs: []Output{plain, capable}}.SupportsStandby())

	sc, ok := capable.StandbyControl()
	assert.True(t, ok)
	assert.Equal(t, "2", sc.ControlKey)
}

func TestZone_PrimaryOutput(t *testing.T) {
	_, ok := Zone{}.PrimaryOutput()
	assert.False(t, ok)

	z := Zone{Outputs: []Output{{OutputID: "first"}, {OutputID: "second"}}}
	o, ok := z.PrimaryOutput()
	require.True(t, ok)
	assert.Equal(t, "first", o.OutputID)
}
