package collector

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// HAR upload support. Only the fields the decoder needs are read; the
// rest of the archive is ignored.

type HARRequest struct {
	ProjectKey string  `json:"project_key"`
	CaptureID  string  `json:"capture_id,omitempty"`
	HAR        harFile `json:"har"`
}

type harFile struct {
	Log harLog `json:"log"`
}

type harLog struct {
	Entries []harEntry `json:"entries"`
}

type harEntry struct {
	StartedDateTime string          `json:"startedDateTime"`
	Request         harEntryRequest `json:"request"`
	Page            string          `json:"pageref,omitempty"`
}

type harEntryRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// HandleHAR ingests a browser HAR export, feeding every entry URL
// through the same decode path as live hits.
func (h *HTTPHandler) HandleHAR(w http.ResponseWriter, r *http.Request) {
	// Read body
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Parse request
	var req HARRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate API key
	projectID, err := h.validator.ValidateAPIKey(r.Context(), req.ProjectKey)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(HitBatchResponse{
			Success: false,
			Errors:  []string{"Invalid API key"},
		})
		return
	}

	// Rate limiting
	if !h.validator.CheckRateLimit(projectID) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(HitBatchResponse{
			Success: false,
			Errors:  []string{"Rate limit exceeded"},
		})
		return
	}

	// Get client IP for enrichment
	clientIP := r.Header.Get("X-Real-IP")
	if clientIP == "" {
		clientIP = r.Header.Get("X-Forwarded-For")
	}
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}

	// Get User-Agent
	userAgent := r.Header.Get("User-Agent")

	// Process entries
	accepted := 0
	ignored := 0
	rejected := 0
	var results []HitResult
	var errors []string

	for _, entry := range req.HAR.Log.Entries {
		result, ok, err := h.acceptHit(r.Context(), projectID, req.CaptureID, entry.Page, entry.Request.URL, entryTimestamp(entry), userAgent, clientIP)
		if err != nil {
			rejected++
			errors = append(errors, err.Error())
			continue
		}
		if !ok {
			ignored++
			continue
		}
		accepted++
		results = append(results, result)
	}

	// Response
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HitBatchResponse{
		Success:       rejected == 0,
		AcceptedCount: accepted,
		IgnoredCount:  ignored,
		RejectedCount: rejected,
		Results:       results,
		Errors:        errors,
	})
}

// entryTimestamp parses the HAR startedDateTime. Unparseable times
// leave the hit unstamped rather than dropping it.
func entryTimestamp(entry harEntry) int64 {
	if entry.StartedDateTime == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, entry.StartedDateTime)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
