package dispatch

import (
	"time"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
)

// Fixtures shared across the sink tests.

func headerAlert() *eas.Alert {
	return &eas.Alert{
		ID:   "11111111-1111-1111-1111-111111111111",
		Text: "TAKE SHELTER NOW",
		Header: &eas.Header{
			Raw:            "ZCZC-WXR-TOR-048113+0030-1721800-KXYZ/FM -",
			Originator:     "WXR",
			OriginatorName: "National Weather Service",
			EventCode:      "TOR",
			EventName:      "Tornado Warning",
			LocationCodes:  []string{"048113"},
			LocationNames:  []string{"Dallas, TX"},
			DurationMin:    30,
			IssuedAt:       time.Date(2025, time.June, 21, 18, 0, 0, 0, time.UTC),
			IssuedAtLocal:  time.Date(2025, time.June, 21, 14, 0, 0, 0, time.FixedZone("EDT", -4*60*60)),
			Sender:         "KXYZ/FM",
		},
	}
}

func plainAlert() *eas.Alert {
	return &eas.Alert{
		ID:   "22222222-2222-2222-2222-222222222222",
		Text: "Station identification test.",
	}
}
