package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/tagsight/tagsight/internal/config"
)

// UnmigratedEventAudit detects legacy hits with no counterpart on the new protocol
type UnmigratedEventAudit struct {
	observationWindowMs int64
	pendingHits         sync.Map // key -> HitContext
	emitCallback        func(*Finding)
}

// HitContext stores context about a pending legacy hit
type HitContext struct {
	Event     *HitEvent
	Action    string
	Timestamp int64
}

// NewUnmigratedEventAudit creates a new unmigrated event audit
func NewUnmigratedEventAudit(cfg config.UnmigratedEventConfig, emitCallback func(*Finding)) *UnmigratedEventAudit {
	return &UnmigratedEventAudit{
		observationWindowMs: cfg.ObservationWindowMs,
		emitCallback:        emitCallback,
	}
}

// ProcessHit processes a hit event. A legacy hit opens a watch; a ga4
// hit from the same capture resolves everything pending for it.
func (d *UnmigratedEventAudit) ProcessHit(event *HitEvent) {
	if event.CaptureID == "" {
		return
	}

	switch event.Protocol {
	case "ua":
		// Dual-tagged pages send both protocols on purpose
		if event.DualTagged {
			return
		}

		action := legacyAction(event)

		// Store pending hit
		key := event.CaptureID + "|" + action
		d.pendingHits.Store(key, HitContext{
			Event:     event,
			Action:    action,
			Timestamp: event.Timestamp,
		})

		// Schedule check
		go func(checkKey string, legacyHit *HitEvent) {
			time.Sleep(time.Duration(d.observationWindowMs) * time.Millisecond)
			d.checkForCounterpart(checkKey, legacyHit)
		}(key, event)

	case "ga4":
		d.resolveCapture(event.CaptureID)
	}
}

// resolveCapture clears all pending legacy hits for a capture
func (d *UnmigratedEventAudit) resolveCapture(captureID string) {
	d.pendingHits.Range(func(key, value interface{}) bool {
		ctx := value.(HitContext)
		if ctx.Event.CaptureID == captureID {
			d.pendingHits.Delete(key)
		}
		return true
	})
}

func (d *UnmigratedEventAudit) checkForCounterpart(key string, event *HitEvent) {
	value, exists := d.pendingHits.LoadAndDelete(key)
	if !exists {
		return // Already resolved
	}

	ctx := value.(HitContext)

	// No ga4 counterpart - this event is unmigrated
	finding := &Finding{
		Audit:     "unmigrated_event",
		Severity:  "warning",
		ProjectID: ctx.Event.ProjectID,
		CaptureID: ctx.Event.CaptureID,
		HitID:     ctx.Event.HitID,
		PageURL:   ctx.Event.PageURL,
		Event:     ctx.Action,
		Detail:    fmt.Sprintf("legacy %s hit with no ga4 counterpart within %dms", ctx.Action, d.observationWindowMs),
		Timestamp: time.Now().UnixMilli(),
	}

	if d.emitCallback != nil {
		d.emitCallback(finding)
	}
}

// legacyAction names what a legacy hit was doing. Legacy hits carry no
// event name, so the product action stands in for one.
func legacyAction(event *HitEvent) string {
	if action := event.Record.Params["product_action"]; action != "" {
		return action
	}
	return "pageview"
}
