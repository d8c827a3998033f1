package storage

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/tagsight/tagsight/internal/config"
)

// ClickHouse stores decoded hits, their line items, capture session
// summaries and audit findings.
type ClickHouse struct {
	conn driver.Conn
}

// HitRow represents a row in the hits table. Previews share the table
// and are told apart by kind.
type HitRow struct {
	HitID           string
	ProjectID       string
	CaptureID       string
	Kind            string
	Protocol        string
	DualTagged      bool
	PageURL         string
	HitURL          string
	Event           string
	Schema          string
	CallKind        string
	ParamsJSON      string
	Recommendation  string
	ItemCount       int32
	Timestamp       int64
	ServerTimestamp int64
	Browser         string
	BrowserVersion  string
	OS              string
	DeviceType      string
	Country         string
	City            string
}

// HitItemRow represents a row in the hit_items table: one product,
// impression or promotion slot. Field values stay exactly as decoded
// from the wire; FieldsJSON keeps the complete field map including
// codes not broken out into columns.
type HitItemRow struct {
	HitID      string
	ProjectID  string
	CaptureID  string
	ListKind   string
	ListIndex  int32
	ListName   string
	ItemIndex  int32
	ItemID     string
	ItemName   string
	Price      string
	Quantity   string
	FieldsJSON string
}

// CaptureSessionRow represents a row in the capture_sessions table.
type CaptureSessionRow struct {
	CaptureID    string
	ProjectID    string
	FirstSeen    int64
	LastSeen     int64
	HitCount     int64
	UAHits       int64
	GA4Hits      int64
	DualHits     int64
	PreviewCount int64
	Events       []string
	Schemas      []string
	PageURL      string
	Browser      string
	DeviceType   string
	Country      string
}

// FindingRow represents a row in the findings table.
type FindingRow struct {
	FindingID string
	ProjectID string
	CaptureID string
	Audit     string
	Severity  string
	HitID     string
	PageURL   string
	Event     string
	Detail    string
	Timestamp int64
}

func NewClickHouse(cfg config.ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &ClickHouse{conn: conn}, nil
}

func (c *ClickHouse) InsertHits(ctx context.Context, hits []HitRow) error {
	if len(hits) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO hits (
			hit_id, project_id, capture_id, kind, protocol, dual_tagged,
			page_url, hit_url, event, schema, call_kind,
			params_json, recommendation, item_count,
			timestamp, server_timestamp,
			browser, browser_version, os, device_type,
			country, city
		)
	`)
	if err != nil {
		return err
	}

	for _, h := range hits {
		err := batch.Append(
			h.HitID, h.ProjectID, h.CaptureID, h.Kind, h.Protocol, h.DualTagged,
			h.PageURL, h.HitURL, h.Event, h.Schema, h.CallKind,
			h.ParamsJSON, h.Recommendation, h.ItemCount,
			h.Timestamp, h.ServerTimestamp,
			h.Browser, h.BrowserVersion, h.OS, h.DeviceType,
			h.Country, h.City,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) InsertHitItems(ctx context.Context, items []HitItemRow) error {
	if len(items) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO hit_items (
			hit_id, project_id, capture_id,
			list_kind, list_index, list_name, item_index,
			item_id, item_name, price, quantity, fields_json
		)
	`)
	if err != nil {
		return err
	}

	for _, it := range items {
		err := batch.Append(
			it.HitID, it.ProjectID, it.CaptureID,
			it.ListKind, it.ListIndex, it.ListName, it.ItemIndex,
			it.ItemID, it.ItemName, it.Price, it.Quantity, it.FieldsJSON,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// UpsertCaptureSession writes one capture session summary. The table
// is a ReplacingMergeTree keyed on capture_id, so repeated flushes
// collapse to the latest row.
func (c *ClickHouse) UpsertCaptureSession(ctx context.Context, session CaptureSessionRow) error {
	return c.conn.Exec(ctx, `
		INSERT INTO capture_sessions (
			capture_id, project_id,
			first_seen, last_seen,
			hit_count, ua_hits, ga4_hits, dual_hits, preview_count,
			events, schemas,
			page_url, browser, device_type, country
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.CaptureID, session.ProjectID,
		session.FirstSeen, session.LastSeen,
		session.HitCount, session.UAHits, session.GA4Hits, session.DualHits, session.PreviewCount,
		session.Events, session.Schemas,
		session.PageURL, session.Browser, session.DeviceType, session.Country,
	)
}

func (c *ClickHouse) InsertFindings(ctx context.Context, findings []FindingRow) error {
	if len(findings) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO findings (
			finding_id, project_id, capture_id,
			audit, severity, hit_id,
			page_url, event, detail, timestamp
		)
	`)
	if err != nil {
		return err
	}

	for _, f := range findings {
		err := batch.Append(
			f.FindingID, f.ProjectID, f.CaptureID,
			f.Audit, f.Severity, f.HitID,
			f.PageURL, f.Event, f.Detail, f.Timestamp,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
