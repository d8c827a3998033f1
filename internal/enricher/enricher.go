package enricher

import (
	"net"
	"time"

	"github.com/mssola/useragent"
	"github.com/oschwald/geoip2-golang"

	"github.com/tagsight/tagsight/internal/hit"
)

type Enricher struct {
	geoIP *geoip2.Reader
}

func NewEnricher(geoIPPath string) *Enricher {
	// Try to load GeoIP database
	var geoIP *geoip2.Reader
	if geoIPPath != "" {
		geoIP, _ = geoip2.Open(geoIPPath)
	}

	return &Enricher{
		geoIP: geoIP,
	}
}

// HitMessage is the envelope published to Kafka for every accepted hit
// or preview. Kind is "hit" for decoded tracking hits and "preview" for
// schema classifications.
type HitMessage struct {
	// Decoded hit fields
	HitID      string     `json:"hit_id"`
	ProjectID  string     `json:"project_id"`
	CaptureID  string     `json:"capture_id,omitempty"`
	Kind       string     `json:"kind"`
	Protocol   string     `json:"protocol,omitempty"`
	DualTagged bool       `json:"dual_tagged,omitempty"`
	PageURL    string     `json:"page_url,omitempty"`
	HitURL     string     `json:"hit_url,omitempty"`
	Record     hit.Record `json:"record"`

	// Preview fields
	CallKind string `json:"call_kind,omitempty"`
	Schema   string `json:"schema,omitempty"`

	// Rendered gtag suggestion for hits still on the legacy protocol
	Recommendation string `json:"recommendation,omitempty"`

	Timestamp int64 `json:"timestamp,omitempty"`

	// Enriched fields
	ServerTimestamp int64  `json:"server_timestamp"`
	Browser         string `json:"browser,omitempty"`
	BrowserVersion  string `json:"browser_version,omitempty"`
	OS              string `json:"os,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
	Country         string `json:"country,omitempty"`
	City            string `json:"city,omitempty"`
	ClientIP        string `json:"client_ip,omitempty"`
}

// Enrich fills the message's server-side fields in place.
func (e *Enricher) Enrich(msg *HitMessage, userAgentString, clientIP string) {
	msg.ServerTimestamp = time.Now().UnixMilli()

	// Parse user agent
	if userAgentString != "" {
		ua := useragent.New(userAgentString)
		msg.Browser, msg.BrowserVersion = ua.Browser()
		msg.OS = ua.OS()
		msg.DeviceType = getDeviceType(ua)
	}

	// GeoIP lookup
	if e.geoIP != nil && clientIP != "" {
		ip := net.ParseIP(clientIP)
		if ip != nil {
			record, err := e.geoIP.City(ip)
			if err == nil {
				msg.Country = record.Country.IsoCode
				if name, ok := record.City.Names["en"]; ok {
					msg.City = name
				}
			}
		}
	}

	msg.ClientIP = clientIP
}

func getDeviceType(ua *useragent.UserAgent) string {
	if ua.Mobile() {
		return "mobile"
	}
	if ua.Bot() {
		return "bot"
	}
	return "desktop"
}

func (e *Enricher) Close() {
	if e.geoIP != nil {
		e.geoIP.Close()
	}
}
