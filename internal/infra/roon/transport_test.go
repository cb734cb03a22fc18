package roon

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebot/internal/domain/zone"
)

func TestTransport_Control(t *testing.T) {
	fc := newFakeCore(t)
	client := NewClient(fc.config(t))
	paired := make(chan Core, 1)
	client.OnPaired(func(core Core) { paired <- core })
	startClient(t, client)
	conn := fc.accept(t)
	pair(t, conn)
	receive(t, paired)

	transport := NewTransport(client)
	acks := make(chan error, 1)

	transport.Control("z1", zone.CommandPause, func(err error) { acks <- err })
	req := readFrame(t, conn)
	assert.Equal(t, ServiceTransport+"/control", req.Name)
	var body map[string]string
	require.NoError(t, req.Unmarshal(&body))
	assert.Equal(t, map[string]string{"zone_or_output_id": "z1", "control": "pause"}, body)

	writeFrame(t, conn, VerbComplete, "Success", req.RequestID, nil)
	assert.NoError(t, receive(t, acks))

	transport.Standby("out-1", "1", func(err error) { acks <- err })
	req = readFrame(t, conn)
	assert.Equal(t, ServiceTransport+"/standby", req.Name)
	require.NoError(t, req.Unmarshal(&body))
	assert.Equal(t, map[string]string{"output_id": "out-1", "control_key": "1"}, body)

	writeFrame(t, conn, VerbComplete, "NotSupported", req.RequestID, map[string]string{"error": "no"})
	err := receive(t, acks)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestFailed))
	assert.Equal(t, "NotSupported", err.Error())
}

func TestTransport_ControlWhenNotConnected(t *testing.T) {
	transport := NewTransport(NewClient(Config{Host: "127.0.0.1", Port: 1}))

	var got error
	transport.Control("z1", zone.CommandStop, func(err error) { got = err })
	assert.True(t, errors.Is(got, ErrNotConnected))
}

func TestTransport_SubscribeZones(t *testing.T) {
	fc := newFakeCore(t)
	client := NewClient(fc.config(t))
	paired := make(chan Core, 1)
	client.OnPaired(func(core Core) { paired <- core })
	startClient(t, client)
	conn := fc.accept(t)
	pair(t, conn)
	receive(t, paired)

	events := make(chan zone.Event, 4)
	require.NoError(t, NewTransport(client).SubscribeZones(func(ev zone.Event) { events <- ev }))

	req := readFrame(t, conn)
	assert.Equal(t, ServiceTransport+"/subscribe_zones", req.Name)

	writeFrame(t, conn, VerbContinue, "Subscribed", req.RequestID, map[string]any{
		"zones": []any{
			map[string]any{"zone_id": "z1", "display_name": "Kitchen", "state": "stopped"},
		},
	})
	ev := receive(t, events)
	assert.Equal(t, zone.EventSubscribed, ev.Kind)
	require.Len(t, ev.Zones, 1)
	assert.Equal(t, "Kitchen", ev.Zones[0].DisplayName)

	// Seek-only updates produce no event.
	writeFrame(t, conn, VerbContinue, "Changed", req.RequestID, map[string]any{
		"zones_seek_changed": []any{map[string]any{"zone_id": "z1", "seek_position": 3}},
	})
	writeFrame(t, conn, VerbContinue, "Changed", req.RequestID, map[string]any{
		"zones_changed": []any{map[string]any{"zone_id": "z1", "display_name": "Kitchen", "state": "playing"}},
	})
	ev = receive(t, events)
	assert.Equal(t, zone.EventChanged, ev.Kind)
	require.Len(t, ev.Changed, 1)
	assert.Equal(t, zone.StatePlaying, ev.Changed[0].State)
}

func TestDecodeZoneEvent(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		want    zone.Event
		wantOK  bool
		wantErr bool
	}{
		{
			name:   "subscribed without body",
			msg:    &Message{Verb: VerbContinue, Name: "Subscribed"},
			want:   zone.Event{Kind: zone.EventSubscribed},
			wantOK: true,
		},
		{
			name:   "removed as ids and objects",
			msg:    &Message{Verb: VerbContinue, Name: "Changed", Body: []byte(`{"zones_removed":["z1",{"zone_id":"z2"}]}`)},
			want:   zone.Event{Kind: zone.EventChanged, Removed: []string{"z1", "z2"}},
			wantOK: true,
		},
		{
			name: "seek only",
			msg:  &Message{Verb: VerbContinue, Name: "Changed", Body: []byte(`{"zones_seek_changed":[{"zone_id":"z1"}]}`)},
		},
		{
			name: "unsubscribed",
			msg:  &Message{Verb: VerbComplete, Name: "Unsubscribed"},
		},
		{
			name:    "bad removal",
			msg:     &Message{Verb: VerbContinue, Name: "Changed", Body: []byte(`{"zones_removed":[7]}`)},
			wantErr: true,
		},
		{
			name:    "bad body",
			msg:     &Message{Verb: VerbContinue, Name: "Changed", Body: []byte(`{`)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := decodeZoneEvent(tt.msg)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidMessage))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want.Kind, got.Kind)
				assert.Equal(t, tt.want.Removed, got.Removed)
				assert.Len(t, got.Zones, len(tt.want.Zones))
			}
		})
	}
}
