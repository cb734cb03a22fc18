package monitor

import (
	"strings"

	"github.com/osa030/queuebot/internal/domain/zone"
)

// FormatStatus renders the operator status text: the latest action line (if
// any), then one bullet per monitored zone.
func FormatStatus(latest string, zones []zone.Zone) string {
	var b strings.Builder

	if latest != "" {
		b.WriteString(latest)
		b.WriteString("\n\n")
	}

	if len(zones) == 0 {
		b.WriteString("No zones monitored")
		return b.String()
	}

	b.WriteString("Monitoring Zones:")
	for _, z := range zones {
		b.WriteString("\n• ")
		b.WriteString(z.DisplayName)
		if z.SupportsStandby() {
			b.WriteString(" (supports Standby)")
		}
	}
	return b.String()
}
