// Package gtag renders suggested replacement calls in the unified
// event API for decoded hit records.
package gtag

import (
	"sort"
	"strings"

	"github.com/tagsight/tagsight/internal/hit"
)

// Render produces the source text of a gtag('event', ...) call carrying
// the record's event name, one line per event parameter and, when the
// record holds products, an items array listing them by ascending index
// starting from index 1. A product stored at index 0 is left out of the
// array; that offset, and the fact that values are quoted without any
// escaping, reproduce the behavior of the call sites this output is
// meant to replace.
func Render(rec hit.Record) string {
	var b strings.Builder
	b.WriteString("gtag('event', '")
	b.WriteString(rec.Event)
	b.WriteString("', {")

	body := false
	for _, key := range sortedKeys(rec.Params) {
		b.WriteString("\n  ")
		b.WriteString(key)
		b.WriteString(": '")
		b.WriteString(rec.Params[key])
		b.WriteString("',")
		body = true
	}

	if len(rec.Products) > 0 {
		b.WriteString("\n  items: [")
		for _, idx := range rec.ProductIndexes() {
			if idx < 1 {
				continue
			}
			writeItem(&b, rec.Products[idx])
		}
		b.WriteString("\n  ],")
		body = true
	}

	if body {
		b.WriteString("\n")
	}
	b.WriteString("});")
	return b.String()
}

func writeItem(b *strings.Builder, p hit.Product) {
	b.WriteString("\n    {")
	for _, field := range sortedKeys(p) {
		b.WriteString("\n      '")
		b.WriteString(field)
		b.WriteString("': '")
		b.WriteString(p[field])
		b.WriteString("',")
	}
	b.WriteString("\n    },")
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
