package audit

import (
	"fmt"
	"time"
)

// LegacyCheckoutAudit detects staged checkout tracking. The step and
// option fields have no equivalent on the new protocol, so funnels
// still sending them need remodelling before they can migrate.
type LegacyCheckoutAudit struct{}

// NewLegacyCheckoutAudit creates a new legacy checkout audit
func NewLegacyCheckoutAudit() *LegacyCheckoutAudit {
	return &LegacyCheckoutAudit{}
}

// ProcessHit processes a hit event
func (d *LegacyCheckoutAudit) ProcessHit(event *HitEvent) *Finding {
	if event.Protocol != "ua" {
		return nil
	}

	step := event.Record.Params["checkout_step"]
	option := event.Record.Params["checkout_option"]
	if step == "" && option == "" {
		return nil
	}

	return &Finding{
		Audit:     "legacy_checkout",
		Severity:  "info",
		ProjectID: event.ProjectID,
		CaptureID: event.CaptureID,
		HitID:     event.HitID,
		PageURL:   event.PageURL,
		Event:     event.Record.Params["product_action"],
		Detail:    fmt.Sprintf("staged checkout fields on the wire (step %q, option %q)", step, option),
		Timestamp: time.Now().UnixMilli(),
	}
}
