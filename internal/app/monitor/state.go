package monitor

import (
	"github.com/osa030/queuebot/internal/app/wait"
	"github.com/osa030/queuebot/internal/domain/zone"
)

// State is the monitoring state shared by the router and the automaton.
// It must only be accessed from the event loop that owns it.
type State struct {
	zones map[string]zone.Zone // monitored zones, last known snapshot
	order []string             // zone ids in order of first observation
	waits *wait.Registry[zone.Zone]

	// removals counts per zone how often it left the monitored set.
	removals map[string]uint64

	closed bool
}

// NewState creates an empty state container.
func NewState() *State {
	return &State{
		zones:    make(map[string]zone.Zone),
		order:    make([]string, 0),
		waits:    wait.NewRegistry[zone.Zone](),
		removals: make(map[string]uint64),
	}
}

// Zone returns the last known snapshot of a monitored zone.
func (s *State) Zone(zoneID string) (zone.Zone, bool) {
	z, ok := s.zones[zoneID]
	return z, ok
}

// IsMonitored reports whether zoneID is in the monitored set.
func (s *State) IsMonitored(zoneID string) bool {
	_, ok := s.zones[zoneID]
	return ok
}

// Zones returns the monitored zones in order of first observation.
func (s *State) Zones() []zone.Zone {
	result := make([]zone.Zone, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.zones[id])
	}
	return result
}

// Waits returns the predicate wait registry.
func (s *State) Waits() *wait.Registry[zone.Zone] {
	return s.waits
}

// generation identifies the current membership of zoneID in the monitored set.
func (s *State) generation(zoneID string) uint64 {
	return s.removals[zoneID]
}

// put stores the snapshot and reports whether the zone is newly monitored.
func (s *State) put(z zone.Zone) bool {
	_, known := s.zones[z.ZoneID]
	s.zones[z.ZoneID] = z
	if !known {
		s.order = append(s.order, z.ZoneID)
	}
	return !known
}

// remove drops the zone and its outstanding wait.
func (s *State) remove(zoneID string) bool {
	s.waits.Disarm(zoneID)
	if _, ok := s.zones[zoneID]; !ok {
		return false
	}
	delete(s.zones, zoneID)
	s.removals[zoneID]++
	for i, id := range s.order {
		if id == zoneID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// close discards everything. Continuations still in flight become no-ops.
func (s *State) close() {
	s.closed = true
	s.zones = make(map[string]zone.Zone)
	s.order = s.order[:0]
	s.waits = wait.NewRegistry[zone.Zone]()
}
