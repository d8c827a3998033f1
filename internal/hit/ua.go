package hit

import (
	"regexp"
	"strconv"
	"strings"
)

// uaPath marks the legacy measurement-protocol collection endpoint.
const uaPath = "/collect"

// Event-label values distinguishing the two tag setups that emit
// legacy hits. The legacy-only label is a prefix of the dual label, so
// the two predicates overlap on dual-tagged hits.
const (
	uaLegacyLabel = "el=ua-gtm"
	uaDualLabel   = "el=ua-gtm-ga4"
)

var (
	uaProductRe        = regexp.MustCompile(`&pr(\d+)([a-z]{2})=([^&]*)`)
	uaImpressionNameRe = regexp.MustCompile(`&il(\d+)nm=([^&]*)`)
	uaImpressionItemRe = regexp.MustCompile(`&il(\d+)pi(\d+)([a-z]{2})=([^&]*)`)
	uaPromoRe          = regexp.MustCompile(`&promo(\d+)([a-z]{2})=([^&]*)`)
	uaActionRe         = regexp.MustCompile(`&(pa|ti|ta|tr|tt|ts|tcc|pal|cos|col|promoa|cu)=([^&]*)`)
)

// IsUAHit reports whether url is a measurement-protocol hit emitted by
// a tag that speaks only the legacy schema.
func IsUAHit(url string) bool {
	return strings.Contains(url, uaPath) && strings.Contains(url, uaLegacyLabel)
}

// IsUADualHit reports whether url is a measurement-protocol hit emitted
// by a legacy tag that has been reconfigured to also emit unified
// events.
func IsUADualHit(url string) bool {
	return strings.Contains(url, uaPath) && strings.Contains(url, uaDualLabel)
}

// DecodeUA reconstructs the event encoded in a measurement-protocol hit
// URL. Four independent scans pick up products (&pr<N><CC>=),
// impression list names (&il<N>nm=), impression items
// (&il<N>pi<M><CC>=) and promotions (&promo<N><CC>=); a fifth collects
// the fixed set of action parameters. The scans are additive: fields
// found later for an index already seen merge into the existing entry.
func DecodeUA(url string) Record {
	var rec Record
	for _, m := range uaProductRe.FindAllStringSubmatch(url, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if name, ok := uaProductFields[m[2]]; ok {
			rec.product(idx)[name] = m[3]
		}
	}
	for _, m := range uaImpressionNameRe.FindAllStringSubmatch(url, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rec.impressionList(idx).Name = m[2]
	}
	for _, m := range uaImpressionItemRe.FindAllStringSubmatch(url, -1) {
		listIdx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		itemIdx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if name, ok := uaImpressionFields[m[3]]; ok {
			rec.impressionList(listIdx).item(itemIdx)[name] = m[4]
		}
	}
	for _, m := range uaPromoRe.FindAllStringSubmatch(url, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if name, ok := uaPromoFields[m[2]]; ok {
			rec.promo(idx)[name] = m[3]
		}
	}
	for _, m := range uaActionRe.FindAllStringSubmatch(url, -1) {
		name := uaActionParams[m[1]]
		if _, seen := rec.Params[name]; seen {
			continue
		}
		rec.setParam(name, m[2])
	}
	return rec
}
