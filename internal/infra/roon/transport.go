package roon

import (
	"encoding/json"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebot/internal/domain/zone"
)

type zonesBody struct {
	Zones        []zone.Zone       `json:"zones"`
	ZonesAdded   []zone.Zone       `json:"zones_added"`
	ZonesChanged []zone.Zone       `json:"zones_changed"`
	ZonesRemoved []json.RawMessage `json:"zones_removed"`
}

// Transport is the client side of the transport service.
type Transport struct {
	client  *Client
	nextKey atomic.Int64
}

// NewTransport creates a transport service client.
func NewTransport(client *Client) *Transport {
	return &Transport{client: client}
}

// SubscribeZones subscribes to zone updates of the paired core. The handler
// runs on the connection's read goroutine.
func (t *Transport) SubscribeZones(handler func(zone.Event)) error {
	body := map[string]any{"subscription_key": t.nextKey.Add(1)}
	return t.client.Request(ServiceTransport+"/subscribe_zones", body, func(msg *Message) {
		ev, ok, err := decodeZoneEvent(msg)
		if err != nil {
			zlog.Warn().Msgf("roon: dropping zone event: err=%v", err)
			return
		}
		if ok {
			handler(ev)
		}
	})
}

// Control sends a transport control command to a zone.
func (t *Transport) Control(zoneID string, cmd zone.Command, ack func(error)) {
	t.command("control", map[string]string{
		"zone_or_output_id": zoneID,
		"control":           string(cmd),
	}, ack)
}

// Standby puts an output into standby through the given source control.
func (t *Transport) Standby(outputID, controlKey string, ack func(error)) {
	body := map[string]string{"output_id": outputID}
	if controlKey != "" {
		body["control_key"] = controlKey
	}
	t.command("standby", body, ack)
}

// command sends a request whose only result is success or failure. A request
// that cannot be sent is acknowledged with the send error.
func (t *Transport) command(method string, body any, ack func(error)) {
	err := t.client.Request(ServiceTransport+"/"+method, body, func(msg *Message) {
		if msg.IsSuccess() {
			ack(nil)
			return
		}
		ack(responseError(msg))
	})
	if err != nil {
		ack(errors.Wrapf(err, "failed to send %s", method))
	}
}

// decodeZoneEvent converts a subscribe_zones response. Responses carrying no
// zone changes (seek updates, Unsubscribed) report false.
func decodeZoneEvent(msg *Message) (zone.Event, bool, error) {
	var body zonesBody

	switch msg.Name {
	case "Subscribed":
		if len(msg.Body) > 0 {
			if err := msg.Unmarshal(&body); err != nil {
				return zone.Event{}, false, err
			}
		}
		return zone.Event{Kind: zone.EventSubscribed, Zones: body.Zones}, true, nil

	case "Changed":
		if err := msg.Unmarshal(&body); err != nil {
			return zone.Event{}, false, err
		}
		removed, err := removedZoneIDs(body.ZonesRemoved)
		if err != nil {
			return zone.Event{}, false, err
		}
		ev := zone.Event{
			Kind:    zone.EventChanged,
			Added:   body.ZonesAdded,
			Changed: body.ZonesChanged,
			Removed: removed,
		}
		if len(ev.Added) == 0 && len(ev.Changed) == 0 && len(ev.Removed) == 0 {
			return zone.Event{}, false, nil
		}
		return ev, true, nil

	default:
		return zone.Event{}, false, nil
	}
}

// removedZoneIDs accepts zones_removed entries given either as zone ids or as
// zone objects.
func removedZoneIDs(items []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, raw := range items {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			ids = append(ids, id)
			continue
		}

		var z struct {
			ZoneID string `json:"zone_id"`
		}
		if err := json.Unmarshal(raw, &z); err != nil || z.ZoneID == "" {
			return nil, errors.Wrapf(ErrInvalidMessage, "bad zones_removed entry %s", raw)
		}
		ids = append(ids, z.ZoneID)
	}
	return ids, nil
}
