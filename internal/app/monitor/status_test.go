package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/queuebot/internal/domain/zone"
)

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name   string
		latest string
		zones  []zone.Zone
		want   string
	}{
		{
			name: "no zones",
			want: "No zones monitored",
		},
		{
			name:  "zones only",
			zones: []zone.Zone{stoppedZone("z1", "Kitchen"), standbyZone("z2", "Study")},
			want:  "Monitoring Zones:\n• Kitchen\n• Study (supports Standby)",
		},
		{
			name:   "latest action leads",
			latest: "Latest Action: Kitchen put into Pause",
			zones:  []zone.Zone{stoppedZone("z1", "Kitchen")},
			want:   "Latest Action: Kitchen put into Pause\n\nMonitoring Zones:\n• Kitchen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatStatus(tt.latest, tt.zones))
		})
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("Pause")
	assert.True(t, ok)
	assert.Equal(t, ActionPause, a)

	a, ok = ParseAction("Standby")
	assert.True(t, ok)
	assert.Equal(t, ActionStandby, a)

	_, ok = ParseAction("pause")
	assert.False(t, ok)
	_, ok = ParseAction("")
	assert.False(t, ok)
}
