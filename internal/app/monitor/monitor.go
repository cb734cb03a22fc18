package monitor

import (
	"github.com/osa030/queuebot/internal/domain/zone"
)

// Config holds monitor configuration.
type Config struct {
	Marker string // now playing line2 of the queue bot track
}

// ZoneInfo is a read-only view of a monitored zone.
type ZoneInfo struct {
	ZoneID          string
	DisplayName     string
	State           zone.State
	Phase           Phase
	SupportsStandby bool
}

// Monitor wires the state container, router and automaton of one pairing.
// A Monitor is not safe for concurrent use: every method, and every
// acknowledgement passed to the Transport, must run on the same event loop.
type Monitor struct {
	state     *State
	router    *Router
	automaton *Automaton
}

// New creates a monitor with empty state.
func New(cfg Config, transport Transport, status StatusPublisher) *Monitor {
	state := NewState()
	automaton := NewAutomaton(state, transport, status, cfg.Marker)
	return &Monitor{
		state:     state,
		router:    NewRouter(state, automaton),
		automaton: automaton,
	}
}

// HandleEvent processes one zone subscription event.
func (m *Monitor) HandleEvent(ev zone.Event) {
	m.router.Handle(ev)
}

// Zones returns the monitored zones in order of first observation.
func (m *Monitor) Zones() []ZoneInfo {
	zones := m.state.Zones()
	result := make([]ZoneInfo, 0, len(zones))
	for _, z := range zones {
		result = append(result, ZoneInfo{
			ZoneID:          z.ZoneID,
			DisplayName:     z.DisplayName,
			State:           z.State,
			Phase:           m.automaton.Phase(z.ZoneID),
			SupportsStandby: z.SupportsStandby(),
		})
	}
	return result
}

// Phase returns the phase of zoneID.
func (m *Monitor) Phase(zoneID string) Phase {
	return m.automaton.Phase(zoneID)
}

// LatestAction returns the latest action line and whether it is a warning.
func (m *Monitor) LatestAction() (string, bool) {
	return m.automaton.LatestAction()
}

// Summary returns the current status text.
func (m *Monitor) Summary() string {
	latest, _ := m.automaton.LatestAction()
	return FormatStatus(latest, m.state.Zones())
}

// Publish pushes the current status text to the status publisher.
func (m *Monitor) Publish() {
	m.automaton.Publish()
}

// Close discards all monitoring state. Acknowledgements arriving afterwards
// are ignored.
func (m *Monitor) Close() {
	m.state.close()
	m.automaton.sequences = make(map[string]*sequence)
}
