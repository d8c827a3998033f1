package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/tagsight/tagsight/internal/config"
	"github.com/tagsight/tagsight/internal/storage"
)

// findingStore is the slice of the ClickHouse layer findings are
// written through. Tests substitute fakes.
type findingStore interface {
	InsertFindings(ctx context.Context, rows []storage.FindingRow) error
}

// Processor coordinates all migration audits
type Processor struct {
	unmigratedEvent *UnmigratedEventAudit
	schemaMismatch  *SchemaMismatchAudit
	legacyCheckout  *LegacyCheckoutAudit
	indexZero       *IndexZeroAudit

	ch    findingStore
	redis *redis.Client

	// Kafka writer for alerts
	alertWriter *kafka.Writer

	// Buffer for batch inserts
	findingBuffer []storage.FindingRow
	mu            sync.Mutex
	lastFlush     time.Time
}

// NewProcessor creates a new audit processor
func NewProcessor(ch findingStore, rdb *redis.Client, cfg config.AuditsConfig) *Processor {
	return NewProcessorWithKafka(ch, rdb, cfg, config.KafkaConfig{})
}

// NewProcessorWithKafka creates a new audit processor with Kafka alert publishing
func NewProcessorWithKafka(ch findingStore, rdb *redis.Client, cfg config.AuditsConfig, kafkaCfg config.KafkaConfig) *Processor {
	p := &Processor{
		ch:            ch,
		redis:         rdb,
		findingBuffer: make([]storage.FindingRow, 0, 100),
		lastFlush:     time.Now(),
	}

	// Initialize Kafka writer for alerts if configured
	if alertsTopic, ok := kafkaCfg.Topics["alerts"]; ok && len(kafkaCfg.Brokers) > 0 {
		p.alertWriter = &kafka.Writer{
			Addr:                   kafka.TCP(kafkaCfg.Brokers...),
			Topic:                  alertsTopic,
			Balancer:               &kafka.LeastBytes{},
			BatchSize:              1,
			BatchTimeout:           time.Millisecond * 10,
			Async:                  true, // Async for alerts to not block processing
			AllowAutoTopicCreation: true,
		}
		log.Info().Str("topic", alertsTopic).Msg("Kafka alert writer initialized")
	}

	// Initialize audits based on config
	if cfg.UnmigratedEvent.Enabled {
		p.unmigratedEvent = NewUnmigratedEventAudit(cfg.UnmigratedEvent, p.emitFinding)
	}
	if cfg.SchemaMismatch.Enabled {
		p.schemaMismatch = NewSchemaMismatchAudit(rdb, cfg.SchemaMismatch)
	}
	if cfg.LegacyCheckout.Enabled {
		p.legacyCheckout = NewLegacyCheckoutAudit()
	}
	if cfg.IndexZeroItem.Enabled {
		p.indexZero = NewIndexZeroAudit()
	}

	// Start flush ticker
	go p.flushLoop()

	return p
}

// Process processes a single hit from Kafka
func (p *Processor) Process(ctx context.Context, raw map[string]interface{}) error {
	event := p.parseHitEvent(raw)

	var findings []*Finding

	// Handle based on message kind
	switch event.Kind {
	case "hit":
		// Unmigrated event detection
		if p.unmigratedEvent != nil {
			p.unmigratedEvent.ProcessHit(event)
		}

		// Schema mismatch detection
		if p.schemaMismatch != nil {
			if finding := p.schemaMismatch.ProcessHit(event); finding != nil {
				findings = append(findings, finding)
			}
		}

		// Legacy checkout detection
		if p.legacyCheckout != nil {
			if finding := p.legacyCheckout.ProcessHit(event); finding != nil {
				findings = append(findings, finding)
			}
		}

		// Index zero detection
		if p.indexZero != nil {
			if finding := p.indexZero.ProcessHit(event); finding != nil {
				findings = append(findings, finding)
			}
		}

	case "preview":
		// Previews carry a classified schema for mismatch detection
		if p.schemaMismatch != nil {
			if finding := p.schemaMismatch.ProcessHit(event); finding != nil {
				findings = append(findings, finding)
			}
		}
	}

	// Store findings
	for _, finding := range findings {
		p.storeFinding(ctx, finding)
	}

	return nil
}

func (p *Processor) emitFinding(finding *Finding) {
	ctx := context.Background()
	p.storeFinding(ctx, finding)
}

func (p *Processor) storeFinding(ctx context.Context, finding *Finding) {
	row := storage.FindingRow{
		FindingID: uuid.New().String(),
		ProjectID: finding.ProjectID,
		CaptureID: finding.CaptureID,
		Audit:     finding.Audit,
		Severity:  finding.Severity,
		HitID:     finding.HitID,
		PageURL:   finding.PageURL,
		Event:     finding.Event,
		Detail:    finding.Detail,
		Timestamp: finding.Timestamp,
	}

	p.mu.Lock()
	p.findingBuffer = append(p.findingBuffer, row)
	shouldFlush := len(p.findingBuffer) >= 100
	p.mu.Unlock()

	if shouldFlush {
		p.Flush()
	}

	// Publish alert to Kafka for downstream alert processing
	p.publishAlert(ctx, finding, row.FindingID)

	log.Info().
		Str("audit", finding.Audit).
		Str("capture_id", finding.CaptureID).
		Str("page_url", finding.PageURL).
		Msg("Finding detected")
}

// publishAlert publishes a finding alert to Kafka for downstream alert processing
func (p *Processor) publishAlert(ctx context.Context, finding *Finding, findingID string) {
	if p.alertWriter == nil {
		return
	}

	alert := map[string]interface{}{
		"finding_id":   findingID,
		"audit":        finding.Audit,
		"severity":     finding.Severity,
		"project_id":   finding.ProjectID,
		"capture_id":   finding.CaptureID,
		"timestamp":    finding.Timestamp,
		"page_url":     finding.PageURL,
		"detail":       finding.Detail,
		"published_at": time.Now().UnixMilli(),
	}

	if finding.HitID != "" {
		alert["hit_id"] = finding.HitID
	}
	if finding.Event != "" {
		alert["event"] = finding.Event
	}

	data, err := json.Marshal(alert)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal alert")
		return
	}

	err = p.alertWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(finding.ProjectID),
		Value: data,
	})
	if err != nil {
		log.Error().Err(err).Str("audit", finding.Audit).Msg("Failed to publish alert to Kafka")
	} else {
		log.Debug().Str("audit", finding.Audit).Str("project_id", finding.ProjectID).Msg("Alert published to Kafka")
	}
}

func (p *Processor) flushLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		p.Flush()
	}
}

// Flush writes buffered findings to ClickHouse
func (p *Processor) Flush() {
	p.mu.Lock()
	if len(p.findingBuffer) == 0 {
		p.mu.Unlock()
		return
	}

	findings := p.findingBuffer
	p.findingBuffer = make([]storage.FindingRow, 0, 100)
	p.lastFlush = time.Now()
	p.mu.Unlock()

	ctx := context.Background()
	if err := p.ch.InsertFindings(ctx, findings); err != nil {
		log.Error().Err(err).Int("count", len(findings)).Msg("Failed to insert findings")
	} else {
		log.Info().Int("count", len(findings)).Msg("Flushed findings to ClickHouse")
	}
}

func (p *Processor) parseHitEvent(raw map[string]interface{}) *HitEvent {
	event := &HitEvent{}

	if v, ok := raw["hit_id"].(string); ok {
		event.HitID = v
	}
	if v, ok := raw["project_id"].(string); ok {
		event.ProjectID = v
	}
	if v, ok := raw["capture_id"].(string); ok {
		event.CaptureID = v
	}
	if v, ok := raw["kind"].(string); ok {
		event.Kind = v
	}
	if event.Kind == "" {
		event.Kind = "hit"
	}
	if v, ok := raw["protocol"].(string); ok {
		event.Protocol = v
	}
	if v, ok := raw["dual_tagged"].(bool); ok {
		event.DualTagged = v
	}
	if v, ok := raw["page_url"].(string); ok {
		event.PageURL = v
	}
	if v, ok := raw["schema"].(string); ok {
		event.Schema = v
	}
	if v, ok := raw["server_timestamp"].(float64); ok {
		event.Timestamp = int64(v)
	}

	// Parse the nested record
	if record, ok := raw["record"]; ok && record != nil {
		if data, err := json.Marshal(record); err == nil {
			json.Unmarshal(data, &event.Record)
		}
	}

	return event
}

// Stop stops the processor
func (p *Processor) Stop() {
	p.Flush()
	if p.alertWriter != nil {
		if err := p.alertWriter.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close alert writer")
		}
	}
}
