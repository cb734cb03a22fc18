package monitor

import (
	"github.com/osa030/queuebot/internal/domain/zone"
)

type controlCall struct {
	zoneID string
	cmd    zone.Command
	ack    func(error)
}

type standbyCall struct {
	outputID   string
	controlKey string
	ack        func(error)
}

// fakeTransport records commands and holds their acknowledgements until the
// test delivers them.
type fakeTransport struct {
	controls []controlCall
	standbys []standbyCall
}

func (f *fakeTransport) Control(zoneID string, cmd zone.Command, ack func(error)) {
	f.controls = append(f.controls, controlCall{zoneID: zoneID, cmd: cmd, ack: ack})
}

func (f *fakeTransport) Standby(outputID, controlKey string, ack func(error)) {
	f.standbys = append(f.standbys, standbyCall{outputID: outputID, controlKey: controlKey, ack: ack})
}

func (f *fakeTransport) commands() []zone.Command {
	result := make([]zone.Command, 0, len(f.controls))
	for _, c := range f.controls {
		result = append(result, c.cmd)
	}
	return result
}

func (f *fakeTransport) count(cmd zone.Command) int {
	n := 0
	for _, c := range f.controls {
		if c.cmd == cmd {
			n++
		}
	}
	return n
}

// ack acknowledges the last issued command of the given kind.
func (f *fakeTransport) ack(cmd zone.Command, err error) {
	for i := len(f.controls) - 1; i >= 0; i-- {
		if f.controls[i].cmd == cmd {
			f.controls[i].ack(err)
			return
		}
	}
	panic("no " + string(cmd) + " command issued")
}

type statusUpdate struct {
	message string
	isError bool
}

type fakePublisher struct {
	updates []statusUpdate
}

func (f *fakePublisher) SetStatus(message string, isError bool) {
	f.updates = append(f.updates, statusUpdate{message: message, isError: isError})
}

func (f *fakePublisher) last() statusUpdate {
	if len(f.updates) == 0 {
		return statusUpdate{}
	}
	return f.updates[len(f.updates)-1]
}

func stoppedZone(id, name string) zone.Zone {
	return zone.Zone{
		ZoneID:      id,
		DisplayName: name,
		State:       zone.StateStopped,
		Outputs: []zone.Output{
			{OutputID: "out-" + id, DisplayName: name},
		},
	}
}

func standbyZone(id, name string) zone.Zone {
	z := stoppedZone(id, name)
	z.Outputs[0].SourceControls = []zone.SourceControl{
		{ControlKey: "1", DisplayName: "DAC", SupportsStandby: true},
	}
	return z
}

func withState(z zone.Zone, state zone.State) zone.Zone {
	z.State = state
	return z
}

func markerPlaying(z zone.Zone, action string, nextAllowed bool) zone.Zone {
	z.State = zone.StatePlaying
	z.IsNextAllowed = nextAllowed
	z.NowPlaying = &zone.NowPlaying{
		ThreeLine: &zone.Lines{Line1: action, Line2: DefaultMarker},
	}
	return z
}

func subscribed(zones ...zone.Zone) zone.Event {
	return zone.Event{Kind: zone.EventSubscribed, Zones: zones}
}

func changed(zones ...zone.Zone) zone.Event {
	return zone.Event{Kind: zone.EventChanged, Changed: zones}
}

func added(zones ...zone.Zone) zone.Event {
	return zone.Event{Kind: zone.EventChanged, Added: zones}
}

func removed(ids ...string) zone.Event {
	return zone.Event{Kind: zone.EventChanged, Removed: ids}
}
