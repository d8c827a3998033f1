package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tagsight/tagsight/internal/enricher"
	"github.com/tagsight/tagsight/internal/gtag"
	"github.com/tagsight/tagsight/internal/hit"
	"github.com/tagsight/tagsight/internal/paramlit"
	"github.com/tagsight/tagsight/internal/schema"
)

// keyValidator and hitProducer are the slices of the validation and
// producer layers the handler uses; tests substitute fakes.
type keyValidator interface {
	ValidateAPIKey(ctx context.Context, apiKey string) (string, error)
	CheckRateLimit(projectID string) bool
}

type hitProducer interface {
	ProduceHit(ctx context.Context, projectID string, hit interface{}) error
	ProducePreview(ctx context.Context, projectID string, preview interface{}) error
}

type HTTPHandler struct {
	producer  hitProducer
	validator keyValidator
	enricher  *enricher.Enricher
}

func NewHTTPHandler(p hitProducer, v keyValidator, e *enricher.Enricher) *HTTPHandler {
	return &HTTPHandler{
		producer:  p,
		validator: v,
		enricher:  e,
	}
}

// RawHit is one captured tracking request as sent by the browser
// extension or capture proxy. The URL is kept exactly as captured and
// never percent-decoded.
type RawHit struct {
	URL       string `json:"url"`
	PageURL   string `json:"page_url,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type HitBatchRequest struct {
	ProjectKey string   `json:"project_key"`
	CaptureID  string   `json:"capture_id,omitempty"`
	PageURL    string   `json:"page_url,omitempty"`
	Hits       []RawHit `json:"hits"`
}

type HitResult struct {
	HitID          string `json:"hit_id"`
	Protocol       string `json:"protocol"`
	DualTagged     bool   `json:"dual_tagged,omitempty"`
	Event          string `json:"event,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

type HitBatchResponse struct {
	Success       bool        `json:"success"`
	AcceptedCount int         `json:"accepted_count"`
	IgnoredCount  int         `json:"ignored_count"`
	RejectedCount int         `json:"rejected_count"`
	Results       []HitResult `json:"results,omitempty"`
	Errors        []string    `json:"errors,omitempty"`
}

// HandleHits accepts a batch of captured tracking URLs, decodes the
// ones that match a known analytics protocol and publishes them.
// Non-matching URLs are counted as ignored, not rejected.
func (h *HTTPHandler) HandleHits(w http.ResponseWriter, r *http.Request) {
	// Read body
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Parse request
	var req HitBatchRequest
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

	// Process hits
	accepted := 0
	ignored := 0
	rejected := 0
	var results []HitResult
	var errors []string

	for _, raw := range req.Hits {
		pageURL := raw.PageURL
		if pageURL == "" {
			pageURL = req.PageURL
		}

		result, ok, err := h.acceptHit(r.Context(), projectID, req.CaptureID, pageURL, raw.URL, raw.Timestamp, userAgent, clientIP)
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

// acceptHit decodes one captured URL and publishes the enriched hit.
// ok is false when the URL matches no known protocol.
func (h *HTTPHandler) acceptHit(ctx context.Context, projectID, captureID, pageURL, rawURL string, timestamp int64, userAgent, clientIP string) (HitResult, bool, error) {
	protocol, dual, rec, ok := decodeHit(rawURL)
	if !ok {
		return HitResult{}, false, nil
	}

	msg := enricher.HitMessage{
		HitID:      uuid.New().String(),
		ProjectID:  projectID,
		CaptureID:  captureID,
		Kind:       "hit",
		Protocol:   protocol,
		DualTagged: dual,
		PageURL:    pageURL,
		HitURL:     rawURL,
		Record:     rec,
		Timestamp:  timestamp,
	}
	if protocol == "ua" && !dual {
		msg.Recommendation = gtag.Render(rec)
	}

	// Enrich hit
	h.enricher.Enrich(&msg, userAgent, clientIP)

	// Produce to Kafka
	if err := h.producer.ProduceHit(ctx, projectID, msg); err != nil {
		log.Error().Err(err).Str("hit_id", msg.HitID).Msg("Failed to produce hit")
		return HitResult{}, false, err
	}

	return HitResult{
		HitID:          msg.HitID,
		Protocol:       protocol,
		DualTagged:     dual,
		Event:          rec.Event,
		Recommendation: msg.Recommendation,
	}, true, nil
}

// decodeHit matches a captured URL against the known protocols. The
// current protocol is checked first; a legacy hit labelled as
// dual-tagged still decodes as legacy but is flagged so downstream
// audits can tell migrated pages from unmigrated ones.
func decodeHit(rawURL string) (protocol string, dual bool, rec hit.Record, ok bool) {
	switch {
	case hit.IsGA4Hit(rawURL):
		return "ga4", false, hit.DecodeGA4(rawURL), true
	case hit.IsUADualHit(rawURL):
		return "ua", true, hit.DecodeUA(rawURL), true
	case hit.IsUAHit(rawURL):
		return "ua", false, hit.DecodeUA(rawURL), true
	}
	return "", false, hit.Record{}, false
}

type PreviewRequest struct {
	ProjectKey string `json:"project_key"`
	CaptureID  string `json:"capture_id,omitempty"`
	PageURL    string `json:"page_url,omitempty"`
	CallKind   string `json:"call_kind"`
	Params     string `json:"params"`
}

// HandlePreview classifies a captured tag-call parameter object and
// reports which schema family it follows. The params field carries the
// object literal exactly as captured from page source.
func (h *HTTPHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	// Read body
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Parse request
	var req PreviewRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Validate API key
	projectID, err := h.validator.ValidateAPIKey(r.Context(), req.ProjectKey)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "Invalid API key",
		})
		return
	}

	// Rate limiting
	if !h.validator.CheckRateLimit(projectID) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "Rate limit exceeded",
		})
		return
	}

	params, err := paramlit.Parse(req.Params)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	label := schema.Classify(schema.CallKind(req.CallKind), params)

	msg := enricher.HitMessage{
		HitID:     uuid.New().String(),
		ProjectID: projectID,
		CaptureID: req.CaptureID,
		Kind:      "preview",
		PageURL:   req.PageURL,
		CallKind:  req.CallKind,
		Schema:    string(label),
	}

	clientIP := r.Header.Get("X-Real-IP")
	if clientIP == "" {
		clientIP = r.Header.Get("X-Forwarded-For")
	}
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}
	h.enricher.Enrich(&msg, r.Header.Get("User-Agent"), clientIP)

	// The classification is still returned if publishing fails.
	if err := h.producer.ProducePreview(r.Context(), projectID, msg); err != nil {
		log.Error().Err(err).Str("hit_id", msg.HitID).Msg("Failed to produce preview")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"schema":  string(label),
	})
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Project-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
