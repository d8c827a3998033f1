package audit

import (
	"fmt"
	"time"
)

// IndexZeroAudit detects hits carrying a product in slot 0. Wire slots
// are numbered from 1, so a populated slot 0 means the site's templates
// are off by one and that product never reaches reports.
type IndexZeroAudit struct{}

// NewIndexZeroAudit creates a new index zero audit
func NewIndexZeroAudit() *IndexZeroAudit {
	return &IndexZeroAudit{}
}

// ProcessHit processes a hit event
func (d *IndexZeroAudit) ProcessHit(event *HitEvent) *Finding {
	product, ok := event.Record.Products[0]
	if !ok {
		return nil
	}

	return &Finding{
		Audit:     "index_zero_item",
		Severity:  "warning",
		ProjectID: event.ProjectID,
		CaptureID: event.CaptureID,
		HitID:     event.HitID,
		PageURL:   event.PageURL,
		Event:     event.Record.Event,
		Detail:    fmt.Sprintf("product slot 0 is populated (%d fields); slots are numbered from 1", len(product)),
		Timestamp: time.Now().UnixMilli(),
	}
}
