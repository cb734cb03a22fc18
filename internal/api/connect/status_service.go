package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/osa030/queuebot/internal/app/agent"
)

const (
	// StatusServiceName is the fully-qualified name of the StatusService.
	StatusServiceName = "queuebot.v1.StatusService"

	// GetStatusProcedure is the path of StatusService.GetStatus.
	GetStatusProcedure = "/queuebot.v1.StatusService/GetStatus"
	// ListZonesProcedure is the path of StatusService.ListZones.
	ListZonesProcedure = "/queuebot.v1.StatusService/ListZones"
)

// Snapshotter provides the agent state.
type Snapshotter interface {
	Snapshot(ctx context.Context) (agent.Snapshot, error)
}

// StatusService implements the StatusService RPC.
type StatusService struct {
	agent Snapshotter
}

// NewStatusService creates a new StatusService.
func NewStatusService(a Snapshotter) *StatusService {
	return &StatusService{agent: a}
}

// GetStatus returns the pairing and the current status text.
func (s *StatusService) GetStatus(
	ctx context.Context,
	req *connect.Request[GetStatusRequest],
) (*connect.Response[GetStatusResponse], error) {
	snap, err := s.agent.Snapshot(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	resp := &GetStatusResponse{
		Paired:       snap.Paired,
		CoreID:       snap.Core.CoreID,
		CoreName:     snap.Core.DisplayName,
		Status:       snap.Status,
		IsError:      snap.LatestIsError,
		LatestAction: snap.LatestAction,
		ZoneCount:    len(snap.Zones),
	}
	return connect.NewResponse(resp), nil
}

// ListZones returns the monitored zones.
func (s *StatusService) ListZones(
	ctx context.Context,
	req *connect.Request[ListZonesRequest],
) (*connect.Response[ListZonesResponse], error) {
	snap, err := s.agent.Snapshot(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	zones := make([]Zone, 0, len(snap.Zones))
	for _, z := range snap.Zones {
		zones = append(zones, Zone{
			ZoneID:          z.ZoneID,
			DisplayName:     z.DisplayName,
			State:           string(z.State),
			Phase:           z.Phase.String(),
			SupportsStandby: z.SupportsStandby,
		})
	}
	return connect.NewResponse(&ListZonesResponse{Zones: zones}), nil
}

// NewStatusServiceHandler builds an HTTP handler serving the StatusService and
// returns the path to mount it on.
func NewStatusServiceHandler(svc *StatusService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	getStatus := connect.NewUnaryHandler(GetStatusProcedure, svc.GetStatus, opts...)
	listZones := connect.NewUnaryHandler(ListZonesProcedure, svc.ListZones, opts...)

	return "/" + StatusServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GetStatusProcedure:
			getStatus.ServeHTTP(w, r)
		case ListZonesProcedure:
			listZones.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// StatusClient is a client for the StatusService.
type StatusClient struct {
	getStatus *connect.Client[GetStatusRequest, GetStatusResponse]
	listZones *connect.Client[ListZonesRequest, ListZonesResponse]
}

// NewStatusClient creates a client for the StatusService at baseURL.
func NewStatusClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *StatusClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &StatusClient{
		getStatus: connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+GetStatusProcedure, opts...),
		listZones: connect.NewClient[ListZonesRequest, ListZonesResponse](httpClient, baseURL+ListZonesProcedure, opts...),
	}
}

// GetStatus calls StatusService.GetStatus.
func (c *StatusClient) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

// ListZones calls StatusService.ListZones.
func (c *StatusClient) ListZones(ctx context.Context, req *connect.Request[ListZonesRequest]) (*connect.Response[ListZonesResponse], error) {
	return c.listZones.CallUnary(ctx, req)
}
