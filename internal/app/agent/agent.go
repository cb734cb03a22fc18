// Package agent runs the queue bot: it owns the event loop, follows the core
// pairing and builds a fresh monitor for every pairing.
package agent

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebot/internal/app/monitor"
	"github.com/osa030/queuebot/internal/domain/zone"
	"github.com/osa030/queuebot/internal/infra/roon"
)

// StatusWaiting is published while no core is paired.
const StatusWaiting = "Waiting for Roon Core"

// Config holds agent configuration.
type Config struct {
	Marker string
}

// Snapshot is a consistent view of the agent taken on the loop.
type Snapshot struct {
	Paired        bool
	Core          roon.Core
	Zones         []monitor.ZoneInfo
	LatestAction  string
	LatestIsError bool
	Status        string
}

// Agent wires the transport to the monitor. All monitor state is owned by
// the loop.
type Agent struct {
	cfg       Config
	loop      *Loop
	transport ZoneTransport
	status    monitor.StatusPublisher

	// loop-owned
	core    *roon.Core
	monitor *monitor.Monitor
}

// New creates an agent running its work on loop.
func New(cfg Config, loop *Loop, transport ZoneTransport, status monitor.StatusPublisher) *Agent {
	return &Agent{
		cfg:       cfg,
		loop:      loop,
		transport: transport,
		status:    status,
	}
}

// Start publishes the initial status.
func (a *Agent) Start() {
	a.post(func() {
		if a.monitor == nil {
			a.status.SetStatus(StatusWaiting, false)
		}
	})
}

// Paired starts monitoring for a newly paired core. Safe to call from any goroutine.
func (a *Agent) Paired(core roon.Core) {
	a.post(func() { a.pair(core) })
}

// Unpaired stops monitoring. Safe to call from any goroutine.
func (a *Agent) Unpaired(core roon.Core) {
	a.post(func() { a.unpair(core) })
}

// Snapshot returns the current state of the agent.
func (a *Agent) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := a.loop.Call(ctx, func() {
		if a.monitor == nil {
			snap.Status = StatusWaiting
			return
		}
		snap.Paired = true
		snap.Core = *a.core
		snap.Zones = a.monitor.Zones()
		snap.LatestAction, snap.LatestIsError = a.monitor.LatestAction()
		snap.Status = a.monitor.Summary()
	})
	return snap, err
}

func (a *Agent) pair(core roon.Core) {
	if a.monitor != nil {
		a.monitor.Close()
	}

	m := monitor.New(
		monitor.Config{Marker: a.cfg.Marker},
		&loopTransport{loop: a.loop, transport: a.transport},
		a.status,
	)
	a.monitor = m
	a.core = &core
	zlog.Info().Msgf("agent: monitoring core %s", core.DisplayName)

	err := a.transport.SubscribeZones(func(ev zone.Event) {
		a.post(func() {
			if a.monitor != m {
				zlog.Debug().Msgf("agent: dropping %s event for a previous pairing", ev.Kind)
				return
			}
			m.HandleEvent(ev)
			if ev.Kind == zone.EventSubscribed {
				m.Publish()
			}
		})
	})
	if err != nil {
		zlog.Error().Msgf("agent: failed to subscribe to zones: %v", err)
	}
}

func (a *Agent) unpair(core roon.Core) {
	if a.monitor == nil {
		return
	}
	a.monitor.Close()
	a.monitor = nil
	a.core = nil
	zlog.Info().Msgf("agent: stopped monitoring core %s", core.DisplayName)
	a.status.SetStatus(StatusWaiting, false)
}

func (a *Agent) post(fn func()) {
	if err := a.loop.Post(fn); err != nil {
		zlog.Debug().Msgf("agent: dropping task: %v", err)
	}
}
