package connect

// GetStatusRequest is the request of StatusService.GetStatus.
type GetStatusRequest struct{}

// GetStatusResponse is the response of StatusService.GetStatus.
type GetStatusResponse struct {
	Paired       bool   `json:"paired"`
	CoreID       string `json:"core_id,omitempty"`
	CoreName     string `json:"core_name,omitempty"`
	Status       string `json:"status"`
	IsError      bool   `json:"is_error"`
	LatestAction string `json:"latest_action,omitempty"`
	ZoneCount    int    `json:"zone_count"`
}

// ListZonesRequest is the request of StatusService.ListZones.
type ListZonesRequest struct{}

// Zone describes a monitored zone.
type Zone struct {
	ZoneID          string `json:"zone_id"`
	DisplayName     string `json:"display_name"`
	State           string `json:"state"`
	Phase           string `json:"phase"`
	SupportsStandby bool   `json:"supports_standby"`
}

// ListZonesResponse is the response of StatusService.ListZones.
type ListZonesResponse struct {
	Zones []Zone `json:"zones"`
}
