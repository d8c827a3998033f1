package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tagsight/tagsight/internal/config"
)

// SchemaMismatchAudit detects captures that mix tracking schema families
type SchemaMismatchAudit struct {
	redis        *redis.Client
	sessionTTLMs int64
}

// NewSchemaMismatchAudit creates a new schema mismatch audit
func NewSchemaMismatchAudit(rdb *redis.Client, cfg config.SchemaMismatchConfig) *SchemaMismatchAudit {
	return &SchemaMismatchAudit{
		redis:        rdb,
		sessionTTLMs: cfg.SessionTTLMs,
	}
}

// ProcessHit processes a hit or preview and detects mixed schema families
func (d *SchemaMismatchAudit) ProcessHit(event *HitEvent) *Finding {
	if d.redis == nil {
		return nil
	}
	if event.CaptureID == "" {
		return nil
	}

	family := schemaFamily(event)
	if family == "" {
		return nil
	}

	ctx := context.Background()
	key := "mismatch:" + event.CaptureID
	ttl := time.Duration(d.sessionTTLMs) * time.Millisecond

	// Record the family seen for this capture
	d.redis.SAdd(ctx, key, family)
	d.redis.Expire(ctx, key, ttl)

	count, err := d.redis.SCard(ctx, key).Result()
	if err != nil || count < 2 {
		return nil
	}

	// One finding per capture
	flagged, err := d.redis.SetNX(ctx, key+":flagged", 1, ttl).Result()
	if err != nil || !flagged {
		return nil
	}

	families, _ := d.redis.SMembers(ctx, key).Result()
	sort.Strings(families)

	return &Finding{
		Audit:     "schema_mismatch",
		Severity:  "warning",
		ProjectID: event.ProjectID,
		CaptureID: event.CaptureID,
		HitID:     event.HitID,
		PageURL:   event.PageURL,
		Event:     event.Record.Event,
		Detail:    fmt.Sprintf("capture mixes schema families: %s", strings.Join(families, ", ")),
		Timestamp: time.Now().UnixMilli(),
	}
}

// schemaFamily reduces a hit or preview to the schema family it belongs
// to. Dual-tagged hits mix families on purpose and decide nothing.
func schemaFamily(event *HitEvent) string {
	if event.Kind == "preview" {
		switch {
		case strings.HasPrefix(event.Schema, "ua-"):
			return "ua"
		case strings.HasPrefix(event.Schema, "ga4-"):
			return "ga4"
		}
		return ""
	}

	if event.DualTagged {
		return ""
	}
	switch event.Protocol {
	case "ua", "ga4":
		return event.Protocol
	}
	return ""
}
