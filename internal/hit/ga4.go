package hit

import (
	"regexp"
	"strconv"
	"strings"
)

// ga4Path marks the unified collection endpoint.
const ga4Path = "/g/collect"

var (
	ga4ProductRe    = regexp.MustCompile(`&pr(\d+)=([^&]*)`)
	ga4EventParamRe = regexp.MustCompile(`&epn?\.([^=&]*)=([^&]*)`)
	ga4EventNameRe  = regexp.MustCompile(`&en=([^&]*)`)
)

// IsGA4Hit reports whether url targets the unified collection endpoint.
func IsGA4Hit(url string) bool {
	return strings.Contains(url, ga4Path)
}

// DecodeGA4 reconstructs the event encoded in a unified-protocol hit
// URL. Each &pr<N>= block becomes the product at index N, &ep.<name>=
// and &epn.<name>= become event parameters, and the first &en= sets the
// event name. Values pass through exactly as captured; no
// percent-decoding is applied.
func DecodeGA4(url string) Record {
	var rec Record
	for _, m := range ga4ProductRe.FindAllStringSubmatch(url, -1) {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		p := rec.product(idx)
		for _, field := range splitTildeFields(m[2]) {
			if len(field) < 2 {
				continue
			}
			if name, ok := ga4ItemFields[field[:2]]; ok {
				p[name] = field[2:]
			}
		}
	}
	for _, m := range ga4EventParamRe.FindAllStringSubmatch(url, -1) {
		rec.setParam(m[1], m[2])
	}
	if m := ga4EventNameRe.FindStringSubmatch(url); m != nil {
		rec.Event = m[1]
	}
	return rec
}

// splitTildeFields splits a product payload on the ~ separator and
// undoes the escaping of literal tildes. A literal ~ inside a value is
// encoded as two adjacent separators, which surface as an empty split
// part: whenever the part after the current one is empty, the current
// field continues with a ~ plus the following non-empty part, and the
// scan advances past both.
func splitTildeFields(payload string) []string {
	parts := strings.Split(payload, "~")
	fields := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		field := parts[i]
		for i+1 < len(parts) && parts[i+1] == "" {
			field += "~"
			if i+2 < len(parts) && parts[i+2] != "" {
				field += parts[i+2]
			}
			i += 2
		}
		fields = append(fields, field)
	}
	return fields
}
