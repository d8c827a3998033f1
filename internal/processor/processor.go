package processor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tagsight/tagsight/internal/config"
	"github.com/tagsight/tagsight/internal/session"
	"github.com/tagsight/tagsight/internal/storage"
	"github.com/tagsight/tagsight/internal/transformer"
)

// hitStore is the slice of the ClickHouse layer the processor writes
// through. Tests substitute fakes.
type hitStore interface {
	InsertHits(ctx context.Context, rows []storage.HitRow) error
	InsertHitItems(ctx context.Context, rows []storage.HitItemRow) error
}

// HitProcessor processes hits from Kafka and writes them to ClickHouse
type HitProcessor struct {
	store    hitStore
	profiler *session.Profiler
	batchCfg config.BatchConfig

	// Row buffers
	hitBuffer  []storage.HitRow
	itemBuffer []storage.HitItemRow

	mu        sync.Mutex
	lastFlush time.Time
	ticker    *time.Ticker
	done      chan struct{}
}

// NewHitProcessor creates a new hit processor
func NewHitProcessor(store hitStore, profiler *session.Profiler, batchCfg config.BatchConfig) *HitProcessor {
	p := &HitProcessor{
		store:      store,
		profiler:   profiler,
		batchCfg:   batchCfg,
		hitBuffer:  make([]storage.HitRow, 0, batchCfg.Size),
		itemBuffer: make([]storage.HitItemRow, 0, 100),
		lastFlush:  time.Now(),
		done:       make(chan struct{}),
	}

	// Start flush ticker
	p.ticker = time.NewTicker(time.Duration(batchCfg.FlushIntervalMs) * time.Millisecond)
	go p.flushLoop()

	return p
}

// Process processes a single hit message
func (p *HitProcessor) Process(ctx context.Context, message map[string]interface{}) error {
	// Transform to ClickHouse rows
	row, items, err := transformer.TransformHit(message)
	if err != nil {
		return err
	}

	// Add to buffers
	p.mu.Lock()
	p.hitBuffer = append(p.hitBuffer, row)
	p.itemBuffer = append(p.itemBuffer, items...)
	shouldFlush := len(p.hitBuffer) >= p.batchCfg.Size
	p.mu.Unlock()

	// Update capture profile
	if p.profiler != nil {
		go p.profiler.Track(ctx, row)
	}

	// Flush if buffer full
	if shouldFlush {
		p.Flush()
	}

	return nil
}

func (p *HitProcessor) flushLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.Flush()
		}
	}
}

// Flush writes all buffered rows to ClickHouse
func (p *HitProcessor) Flush() {
	p.mu.Lock()

	// Check if there's anything to flush
	if len(p.hitBuffer) == 0 && len(p.itemBuffer) == 0 {
		p.mu.Unlock()
		return
	}

	// Get current buffers and create new ones
	hits := p.hitBuffer
	items := p.itemBuffer

	p.hitBuffer = make([]storage.HitRow, 0, p.batchCfg.Size)
	p.itemBuffer = make([]storage.HitItemRow, 0, 100)
	p.lastFlush = time.Now()
	p.mu.Unlock()

	ctx := context.Background()
	start := time.Now()

	// Insert hits
	if len(hits) > 0 {
		if err := p.store.InsertHits(ctx, hits); err != nil {
			log.Error().Err(err).Int("count", len(hits)).Msg("Failed to insert hits")
		} else {
			log.Info().
				Int("count", len(hits)).
				Dur("duration", time.Since(start)).
				Msg("Flushed hits to ClickHouse")
		}
	}

	// Insert hit items
	if len(items) > 0 {
		if err := p.store.InsertHitItems(ctx, items); err != nil {
			log.Error().Err(err).Int("count", len(items)).Msg("Failed to insert hit items")
		} else {
			log.Debug().Int("count", len(items)).Msg("Flushed hit items to ClickHouse")
		}
	}
}

// Stop stops the processor
func (p *HitProcessor) Stop() {
	p.ticker.Stop()
	close(p.done)
	p.Flush() // Final flush
}
