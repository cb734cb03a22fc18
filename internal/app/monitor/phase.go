// Package monitor routes zone snapshots and drives the per-zone control sequence
// that pauses, skips and stops playback when the queue bot marker starts playing.
package monitor

// Phase represents where a zone is in its control sequence.
type Phase int

const (
	PhaseIdle              Phase = iota // Monitored but no wait armed
	PhaseArmed                          // Waiting for the marker track
	PhasePausing                        // Pause issued, awaiting acknowledgement
	PhaseAwaitingSkip                   // Next issued, awaiting the post-skip snapshot
	PhaseStopping                       // Stop evaluation in progress
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArmed:
		return "armed"
	case PhasePausing:
		return "pausing"
	case PhaseAwaitingSkip:
		return "awaiting_skip"
	case PhaseStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Action is the action requested through line1 of the marker track.
type Action string

const (
	ActionPause   Action = "Pause"
	ActionStandby Action = "Standby"
)

// ParseAction returns the recognized action for s.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionPause:
		return ActionPause, true
	case ActionStandby:
		return ActionStandby, true
	default:
		return "", false
	}
}
