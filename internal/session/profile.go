package session

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tagsight/tagsight/internal/config"
	"github.com/tagsight/tagsight/internal/storage"
)

// Profiler accumulates per-capture counters in Redis while hits stream
// in, then folds them into one capture_sessions row per capture.
type Profiler struct {
	ch    *storage.ClickHouse
	redis *redis.Client
}

// NewProfiler creates a new capture profiler
func NewProfiler(ch *storage.ClickHouse, redisCfg config.RedisConfig) *Profiler {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	return &Profiler{
		ch:    ch,
		redis: rdb,
	}
}

// Track records one processed hit against its capture profile in Redis
func (p *Profiler) Track(ctx context.Context, hit storage.HitRow) error {
	if p.redis == nil {
		return nil
	}
	if hit.CaptureID == "" {
		return nil
	}

	key := "capture:" + hit.CaptureID

	// Use Redis pipeline for efficiency
	pipe := p.redis.Pipeline()

	// Update capture window
	pipe.HSetNX(ctx, key, "first_seen", hit.ServerTimestamp)
	pipe.HSet(ctx, key, "last_seen", hit.ServerTimestamp)

	// Track based on message kind
	if hit.Kind == "preview" {
		pipe.HIncrBy(ctx, key, "preview_count", 1)
		if hit.Schema != "" {
			pipe.SAdd(ctx, key+":schemas", hit.Schema)
		}
	} else {
		pipe.HIncrBy(ctx, key, "hit_count", 1)
		switch hit.Protocol {
		case "ua":
			pipe.HIncrBy(ctx, key, "ua_hits", 1)
		case "ga4":
			pipe.HIncrBy(ctx, key, "ga4_hits", 1)
		}
		if hit.DualTagged {
			pipe.HIncrBy(ctx, key, "dual_hits", 1)
		}
		if hit.Event != "" {
			pipe.SAdd(ctx, key+":events", hit.Event)
		}
	}

	// Set capture metadata (only if not exists)
	pipe.HSetNX(ctx, key, "project_id", hit.ProjectID)
	if hit.PageURL != "" {
		pipe.HSetNX(ctx, key, "page_url", hit.PageURL)
	}
	if hit.Browser != "" {
		pipe.HSetNX(ctx, key, "browser", hit.Browser)
	}
	if hit.DeviceType != "" {
		pipe.HSetNX(ctx, key, "device_type", hit.DeviceType)
	}
	if hit.Country != "" {
		pipe.HSetNX(ctx, key, "country", hit.Country)
	}

	// Set TTL (1 hour)
	pipe.Expire(ctx, key, time.Hour)
	pipe.Expire(ctx, key+":events", time.Hour)
	pipe.Expire(ctx, key+":schemas", time.Hour)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Error().Err(err).Str("capture_id", hit.CaptureID).Msg("Failed to update capture profile in Redis")
	}
	return err
}

// FlushProfile writes one capture profile to ClickHouse
func (p *Profiler) FlushProfile(ctx context.Context, captureID string) error {
	if p.redis == nil || p.ch == nil {
		return nil
	}

	key := "capture:" + captureID

	// Get all profile data from Redis
	data, err := p.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	events, err := p.redis.SMembers(ctx, key+":events").Result()
	if err != nil {
		return err
	}
	schemas, err := p.redis.SMembers(ctx, key+":schemas").Result()
	if err != nil {
		return err
	}

	// Convert to CaptureSessionRow and insert to ClickHouse
	profile := p.parseProfileData(captureID, data, events, schemas)

	err = p.ch.UpsertCaptureSession(ctx, profile)
	if err != nil {
		return err
	}

	// Delete from Redis after successful insert
	p.redis.Del(ctx, key, key+":events", key+":schemas")

	return nil
}

func (p *Profiler) parseProfileData(captureID string, data map[string]string, events, schemas []string) storage.CaptureSessionRow {
	profile := storage.CaptureSessionRow{
		CaptureID: captureID,
	}

	if v, ok := data["project_id"]; ok {
		profile.ProjectID = v
	}
	if v, ok := data["first_seen"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			profile.FirstSeen = ms
		}
	}
	if v, ok := data["last_seen"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			profile.LastSeen = ms
		}
	}
	if v, ok := data["hit_count"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			profile.HitCount = n
		}
	}
	if v, ok := data["ua_hits"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			profile.UAHits = n
		}
	}
	if v, ok := data["ga4_hits"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			profile.GA4Hits = n
		}
	}
	if v, ok := data["dual_hits"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			profile.DualHits = n
		}
	}
	if v, ok := data["preview_count"]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			profile.PreviewCount = n
		}
	}
	if v, ok := data["page_url"]; ok {
		profile.PageURL = v
	}
	if v, ok := data["browser"]; ok {
		profile.Browser = v
	}
	if v, ok := data["device_type"]; ok {
		profile.DeviceType = v
	}
	if v, ok := data["country"]; ok {
		profile.Country = v
	}

	sort.Strings(events)
	sort.Strings(schemas)
	profile.Events = events
	profile.Schemas = schemas

	return profile
}

// FlushAllProfiles flushes all pending capture profiles to ClickHouse
func (p *Profiler) FlushAllProfiles(ctx context.Context) error {
	if p.redis == nil {
		return nil
	}

	// Find all capture keys
	keys, err := p.redis.Keys(ctx, "capture:*").Result()
	if err != nil {
		return err
	}

	for _, key := range keys {
		// Skip the companion event and schema sets
		if strings.HasSuffix(key, ":events") || strings.HasSuffix(key, ":schemas") {
			continue
		}
		captureID := key[8:] // Remove "capture:" prefix
		if err := p.FlushProfile(ctx, captureID); err != nil {
			log.Error().Err(err).Str("capture_id", captureID).Msg("Failed to flush capture profile")
		}
	}

	return nil
}

// Close closes the profiler
func (p *Profiler) Close() error {
	if p.redis != nil {
		return p.redis.Close()
	}
	return nil
}
