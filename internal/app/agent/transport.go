package agent

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebot/internal/app/monitor"
	"github.com/osa030/queuebot/internal/domain/zone"
)

// ZoneTransport is the control plane as seen by the agent. Callbacks may run
// on any goroutine.
type ZoneTransport interface {
	monitor.Transport
	SubscribeZones(handler func(zone.Event)) error
}

// loopTransport hands acknowledgements back to the loop, so the monitor only
// ever runs there.
type loopTransport struct {
	loop      *Loop
	transport ZoneTransport
}

func (t *loopTransport) Control(zoneID string, cmd zone.Command, ack func(error)) {
	zlog.Debug().Msgf("agent: control: zone_id=%s command=%s", zoneID, cmd)
	t.transport.Control(zoneID, cmd, t.onLoop(ack))
}

func (t *loopTransport) Standby(outputID, controlKey string, ack func(error)) {
	zlog.Debug().Msgf("agent: standby: output_id=%s control_key=%s", outputID, controlKey)
	t.transport.Standby(outputID, controlKey, t.onLoop(ack))
}

func (t *loopTransport) onLoop(ack func(error)) func(error) {
	return func(err error) {
		if postErr := t.loop.Post(func() { ack(err) }); postErr != nil {
			zlog.Debug().Msgf("agent: dropping acknowledgement: %v", postErr)
		}
	}
}
