package monitor

import (
	"fmt"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebot/internal/app/match"
	"github.com/osa030/queuebot/internal/domain/zone"
)

// DefaultMarker is the now playing line2 identifying the queue bot track.
const DefaultMarker = "Queue Bot"

// ErrStandbyUnsupported is reported when the primary output of a zone has no
// standby capable source control.
var ErrStandbyUnsupported = errors.New("standby not supported by primary output")

// Transport issues commands to the control plane. Acknowledgements are
// delivered asynchronously on the same event loop that owns the monitor.
type Transport interface {
	Control(zoneID string, cmd zone.Command, ack func(error))
	Standby(outputID, controlKey string, ack func(error))
}

// StatusPublisher receives the status text shown to operators.
type StatusPublisher interface {
	SetStatus(message string, isError bool)
}

// sequence is one run of the control sequence for a zone.
// Acknowledgements hold a pointer to their sequence; a sequence that is no
// longer the zone's current one is stale and its acknowledgements are ignored.
type sequence struct {
	action    Action
	phase     Phase
	skipAcked bool // the next command was acknowledged
	refreshed bool // a snapshot arrived after next was acknowledged
}

// Automaton arms the marker wait per zone and runs the pause, skip, stop and
// standby sequence once it matches.
type Automaton struct {
	state     *State
	transport Transport
	status    StatusPublisher
	marker    string

	sequences map[string]*sequence

	latest        string
	latestIsError bool
}

// NewAutomaton creates an automaton operating on state.
func NewAutomaton(state *State, transport Transport, status StatusPublisher, marker string) *Automaton {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Automaton{
		state:     state,
		transport: transport,
		status:    status,
		marker:    marker,
		sequences: make(map[string]*sequence),
	}
}

// SentinelPattern returns the pattern matching a zone playing the marker track.
func (a *Automaton) SentinelPattern() match.Pattern {
	return match.Pattern{
		"state": string(zone.StatePlaying),
		"now_playing": map[string]any{
			"three_line": map[string]any{"line2": a.marker},
		},
	}
}

// skipPattern matches the transient return to playing some devices show after next.
var skipPattern = match.Pattern{"state": string(zone.StatePlaying)}

// ArmMonitoring arms the marker wait for a monitored zone, ending any sequence
// in progress. Zones outside the monitored set are never armed.
func (a *Automaton) ArmMonitoring(z zone.Zone) {
	if a.state.closed || !a.state.IsMonitored(z.ZoneID) {
		zlog.Debug().Msgf("monitor: not arming unmonitored zone: zone_id=%s", z.ZoneID)
		return
	}
	delete(a.sequences, z.ZoneID)
	a.state.waits.Arm(z.ZoneID, a.SentinelPattern(), a.onSentinel)
	zlog.Debug().Msgf("monitor: armed: zone=%s", z.DisplayName)
}

// InSequence reports whether a control sequence is in progress for zoneID.
func (a *Automaton) InSequence(zoneID string) bool {
	_, ok := a.sequences[zoneID]
	return ok
}

// Phase returns the current phase of zoneID.
func (a *Automaton) Phase(zoneID string) Phase {
	if seq, ok := a.sequences[zoneID]; ok {
		return seq.phase
	}
	if _, ok := a.state.waits.Pattern(zoneID); ok {
		return PhaseArmed
	}
	return PhaseIdle
}

// LatestAction returns the latest action line, or a zone warning.
func (a *Automaton) LatestAction() (string, bool) {
	return a.latest, a.latestIsError
}

// Forget drops any sequence of a removed zone.
func (a *Automaton) Forget(zoneID string) {
	delete(a.sequences, zoneID)
}

// Observe lets a zone mid-skip settle on a snapshot that will never match the
// transient playing wait. A stopped zone settles at once. A paused zone
// settles only on a snapshot that arrived after next was acknowledged; the
// pause itself reports paused before the skip happens.
func (a *Automaton) Observe(z zone.Zone) {
	seq, ok := a.sequences[z.ZoneID]
	if !ok || seq.phase != PhaseAwaitingSkip {
		return
	}
	if seq.skipAcked {
		seq.refreshed = true
	}
	if a.settles(seq, z) {
		a.state.waits.Disarm(z.ZoneID)
		a.stopping(z.ZoneID, seq, z)
	}
}

func (a *Automaton) settles(seq *sequence, z zone.Zone) bool {
	switch z.State {
	case zone.StateStopped:
		return true
	case zone.StatePaused:
		return seq.skipAcked && seq.refreshed
	default:
		return false
	}
}

// Publish pushes the current status text.
func (a *Automaton) Publish() {
	if a.state.closed || a.status == nil {
		return
	}
	a.status.SetStatus(FormatStatus(a.latest, a.state.Zones()), a.latestIsError)
}

// current returns the zone snapshot if seq is still the zone's live sequence.
func (a *Automaton) current(zoneID string, seq *sequence) (zone.Zone, bool) {
	if a.state.closed || a.sequences[zoneID] != seq {
		return zone.Zone{}, false
	}
	return a.state.Zone(zoneID)
}

func (a *Automaton) onSentinel(z zone.Zone) {
	requested := z.Action()
	action, ok := ParseAction(requested)
	if !ok {
		zlog.Debug().Msgf("monitor: ignoring unrecognized action: zone=%s action=%q", z.DisplayName, requested)
		a.ArmMonitoring(z)
		return
	}
	zlog.Info().Msgf("monitor: action %s requested from zone %s", action, z.DisplayName)

	seq := &sequence{action: action, phase: PhasePausing}
	a.sequences[z.ZoneID] = seq

	zoneID := z.ZoneID
	a.transport.Control(zoneID, zone.CommandPause, func(err error) {
		a.onPauseAck(zoneID, seq, err)
	})
}

func (a *Automaton) onPauseAck(zoneID string, seq *sequence, err error) {
	z, ok := a.current(zoneID, seq)
	if !ok {
		zlog.Debug().Msgf("monitor: ignoring stale pause acknowledgement: zone_id=%s", zoneID)
		return
	}
	if err != nil {
		zlog.Warn().Msgf("monitor: pause reported an error: zone=%s err=%v", z.DisplayName, err)
	}

	if !z.IsNextAllowed {
		a.stopping(zoneID, seq, z)
		return
	}

	seq.phase = PhaseAwaitingSkip
	seq.refreshed = false
	a.state.waits.Arm(zoneID, skipPattern, func(z zone.Zone) {
		if a.sequences[zoneID] != seq {
			return
		}
		a.stopping(zoneID, seq, z)
	})
	a.transport.Control(zoneID, zone.CommandNext, func(err error) {
		a.onNextAck(zoneID, seq, err)
	})
}

func (a *Automaton) onNextAck(zoneID string, seq *sequence, err error) {
	z, ok := a.current(zoneID, seq)
	if !ok || seq.phase != PhaseAwaitingSkip {
		return
	}
	if err != nil {
		zlog.Warn().Msgf("monitor: next reported an error: zone=%s err=%v", z.DisplayName, err)
	}
	seq.skipAcked = true
	seq.refreshed = false
}

// stopping issues stop unless the zone already reports stopped. Sending stop
// to a stopped device resumes playback on some devices.
func (a *Automaton) stopping(zoneID string, seq *sequence, z zone.Zone) {
	if _, ok := a.current(zoneID, seq); !ok {
		return
	}
	seq.phase = PhaseStopping

	if z.State == zone.StateStopped {
		a.complete(zoneID, seq)
		return
	}

	a.transport.Control(zoneID, zone.CommandStop, func(err error) {
		if _, ok := a.current(zoneID, seq); !ok {
			zlog.Debug().Msgf("monitor: ignoring stale stop acknowledgement: zone_id=%s", zoneID)
			return
		}
		if err != nil {
			zlog.Warn().Msgf("monitor: stop reported an error: zone_id=%s err=%v", zoneID, err)
		}
		a.complete(zoneID, seq)
	})
}

// complete re-arms the zone and, for standby requests, puts the primary output
// into standby. A standby failure never blocks re-arming.
func (a *Automaton) complete(zoneID string, seq *sequence) {
	z, ok := a.current(zoneID, seq)
	if !ok {
		return
	}
	a.ArmMonitoring(z)

	if seq.action != ActionStandby {
		a.setLatest(z, seq.action, nil)
		return
	}

	out, ok := z.PrimaryOutput()
	var control zone.SourceControl
	if ok {
		control, ok = out.StandbyControl()
	}
	if !ok {
		a.setLatest(z, ActionStandby, ErrStandbyUnsupported)
		return
	}

	generation := a.state.generation(zoneID)
	a.transport.Standby(out.OutputID, control.ControlKey, func(err error) {
		if a.state.closed || !a.state.IsMonitored(zoneID) || a.state.generation(zoneID) != generation {
			zlog.Debug().Msgf("monitor: ignoring standby acknowledgement for removed zone: zone_id=%s", zoneID)
			return
		}
		if err != nil {
			err = errors.Wrapf(err, "output %s", out.DisplayName)
		}
		a.setLatest(z, ActionStandby, err)
	})
}

func (a *Automaton) setLatest(z zone.Zone, action Action, err error) {
	if err != nil {
		a.latest = fmt.Sprintf("Warning: %s could not be put into %s: %v", z.DisplayName, action, err)
		a.latestIsError = true
		zlog.Warn().Msgf("monitor: %s failed: zone=%s err=%v", action, z.DisplayName, err)
	} else {
		a.latest = fmt.Sprintf("Latest Action: %s put into %s", z.DisplayName, action)
		a.latestIsError = false
		zlog.Info().Msgf("monitor: action completed: zone=%s action=%s", z.DisplayName, action)
	}
	a.Publish()
}
