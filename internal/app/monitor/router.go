package monitor

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebot/internal/domain/zone"
)

// Router fans zone subscription events out to the wait registry and the
// automaton, and maintains the monitored zone set.
type Router struct {
	state     *State
	automaton *Automaton
}

// NewRouter creates a router over state and automaton.
func NewRouter(state *State, automaton *Automaton) *Router {
	return &Router{
		state:     state,
		automaton: automaton,
	}
}

// Handle processes one subscription event.
func (r *Router) Handle(ev zone.Event) {
	if r.state.closed {
		return
	}

	switch ev.Kind {
	case zone.EventSubscribed:
		for _, z := range ev.Zones {
			r.added(z)
		}
	case zone.EventChanged:
		for _, z := range ev.Added {
			r.added(z)
		}
		for _, z := range ev.Changed {
			r.changed(z)
		}
		for _, id := range ev.Removed {
			r.removed(id)
		}
	}
}

// added arms before checking so a zone already playing the marker is caught at once.
func (r *Router) added(z zone.Zone) {
	if z.ZoneID == "" {
		return
	}
	if r.state.put(z) {
		zlog.Info().Msgf("monitor: monitoring activated for %s", z.DisplayName)
		r.automaton.Publish()
	}
	if !r.automaton.InSequence(z.ZoneID) {
		r.automaton.ArmMonitoring(z)
	}
	r.dispatch(z)
}

func (r *Router) changed(z zone.Zone) {
	if !r.state.IsMonitored(z.ZoneID) {
		return
	}
	r.state.put(z)
	r.dispatch(z)
}

func (r *Router) removed(zoneID string) {
	r.automaton.Forget(zoneID)
	if !r.state.remove(zoneID) {
		return
	}
	zlog.Info().Msgf("monitor: monitoring deactivated: zone_id=%s", zoneID)
	r.automaton.Publish()
}

func (r *Router) dispatch(z zone.Zone) {
	r.state.waits.Check(z.ZoneID, z)
	r.automaton.Observe(z)
}
