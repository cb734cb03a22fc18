package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebot/internal/app/agent"
	"github.com/osa030/queuebot/internal/app/monitor"
	"github.com/osa030/queuebot/internal/domain/zone"
	"github.com/osa030/queuebot/internal/infra/roon"
)

const testToken = "secret-token"

type fakeAgent struct {
	snap agent.Snapshot
	err  error
}

func (f *fakeAgent) Snapshot(context.Context) (agent.Snapshot, error) {
	return f.snap, f.err
}

func startServer(t *testing.T, a Snapshotter) string {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := NewStatusServiceHandler(
		NewStatusService(a),
		connect.WithInterceptors(NewAuthInterceptor(testToken)),
	)
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func pairedSnapshot() agent.Snapshot {
	return agent.Snapshot{
		Paired:       true,
		Core:         roon.Core{CoreID: "core-1", DisplayName: "Living Core"},
		LatestAction: "Latest Action: Kitchen put into Pause",
		Status:       "Latest Action: Kitchen put into Pause\n\nMonitoring Zones:\n• Kitchen\n• Study (supports Standby)",
		Zones: []monitor.ZoneInfo{
			{ZoneID: "z1", DisplayName: "Kitchen", State: zone.StateStopped, Phase: monitor.PhaseArmed},
			{ZoneID: "z2", DisplayName: "Study", State: zone.StatePlaying, Phase: monitor.PhasePausing, SupportsStandby: true},
		},
	}
}

func TestStatusService_GetStatus(t *testing.T) {
	url := startServer(t, &fakeAgent{snap: pairedSnapshot()})
	client := NewStatusClient(http.DefaultClient, url, connect.WithInterceptors(WithToken(testToken)))

	resp, err := client.GetStatus(context.Background(), connect.NewRequest(&GetStatusRequest{}))
	require.NoError(t, err)

	assert.Equal(t, &GetStatusResponse{
		Paired:       true,
		CoreID:       "core-1",
		CoreName:     "Living Core",
		Status:       "Latest Action: Kitchen put into Pause\n\nMonitoring Zones:\n• Kitchen\n• Study (supports Standby)",
		LatestAction: "Latest Action: Kitchen put into Pause",
		ZoneCount:    2,
	}, resp.Msg)
}

func TestStatusService_ListZones(t *testing.T) {
	url := startServer(t, &fakeAgent{snap: pairedSnapshot()})
	client := NewStatusClient(http.DefaultClient, url+"/", connect.WithInterceptors(WithToken(testToken)))

	resp, err := client.ListZones(context.Background(), connect.NewRequest(&ListZonesRequest{}))
	require.NoError(t, err)

	assert.Equal(t, []Zone{
		{ZoneID: "z1", DisplayName: "Kitchen", State: "stopped", Phase: "armed"},
		{ZoneID: "z2", DisplayName: "Study", State: "playing", Phase: "pausing", SupportsStandby: true},
	}, resp.Msg.Zones)
}

func TestStatusService_Unpaired(t *testing.T) {
	url := startServer(t, &fakeAgent{snap: agent.Snapshot{Status: agent.StatusWaiting}})
	client := NewStatusClient(http.DefaultClient, url, connect.WithInterceptors(WithToken(testToken)))

	resp, err := client.GetStatus(context.Background(), connect.NewRequest(&GetStatusRequest{}))
	require.NoError(t, err)
	assert.False(t, resp.Msg.Paired)
	assert.Equal(t, agent.StatusWaiting, resp.Msg.Status)

	zones, err := client.ListZones(context.Background(), connect.NewRequest(&ListZonesRequest{}))
	require.NoError(t, err)
	assert.Empty(t, zones.Msg.Zones)
}

func TestStatusService_AgentUnavailable(t *testing.T) {
	url := startServer(t, &fakeAgent{err: agent.ErrLoopStopped})
	client := NewStatusClient(http.DefaultClient, url, connect.WithInterceptors(WithToken(testToken)))

	_, err := client.GetStatus(context.Background(), connect.NewRequest(&GetStatusRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestAuthInterceptor(t *testing.T) {
	url := startServer(t, &fakeAgent{snap: pairedSnapshot()})

	tests := []struct {
		name     string
		opts     []connect.ClientOption
		wantCode connect.Code
	}{
		{name: "missing token", wantCode: connect.CodeUnauthenticated},
		{
			name:     "wrong token",
			opts:     []connect.ClientOption{connect.WithInterceptors(WithToken("nope"))},
			wantCode: connect.CodeUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewStatusClient(http.DefaultClient, url, tt.opts...)
			_, err := client.GetStatus(context.Background(), connect.NewRequest(&GetStatusRequest{}))
			require.Error(t, err)

			var connectErr *connect.Error
			require.True(t, errors.As(err, &connectErr))
			assert.Equal(t, tt.wantCode, connectErr.Code())
		})
	}
}

func TestStatusServiceHandler_UnknownProcedure(t *testing.T) {
	url := startServer(t, &fakeAgent{})

	resp, err := http.Post(url+"/"+StatusServiceName+"/Nope", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJSONCodec(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&Zone{ZoneID: "z1", Phase: "armed"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"zone_id":"z1","display_name":"","state":"","phase":"armed","supports_standby":false}`, string(data))

	var req GetStatusRequest
	assert.NoError(t, codec.Unmarshal(nil, &req))
	assert.Error(t, codec.Unmarshal([]byte("{"), &req))
}
