package audit

import (
	"github.com/tagsight/tagsight/internal/hit"
)

// HitEvent represents a parsed hit from Kafka
type HitEvent struct {
	HitID      string
	ProjectID  string
	CaptureID  string
	Kind       string
	Protocol   string
	DualTagged bool
	PageURL    string
	Schema     string
	Record     hit.Record
	Timestamp  int64
}

// Finding represents a detected migration issue
type Finding struct {
	Audit     string
	Severity  string
	ProjectID string
	CaptureID string
	HitID     string
	PageURL   string
	Event     string
	Detail    string
	Timestamp int64
}
