// Package hit decodes captured analytics hit URLs into structured
// event records. Two wire encodings are supported: the unified
// collection format (ga4.go) and the legacy measurement protocol
// (ua.go). Decoding is total: unrecognized input yields an empty
// record, unknown field codes are dropped, and nothing here errors or
// panics.
package hit

import "sort"

// Product holds the decoded fields of one item, keyed by canonical
// field name rather than wire code.
type Product map[string]string

// ImpressionList groups the impression items of one list slot together
// with the list's display name.
type ImpressionList struct {
	Name        string          `json:"name,omitempty"`
	Impressions map[int]Product `json:"impressions,omitempty"`
}

// Record is the structured event reconstructed from a single hit URL.
//
// The index maps are sparse: indices come straight from the wire, may
// start above zero and may contain gaps. Absent indices are never
// filled in with empty entries; consumers enumerate by ascending index
// and skip the gaps.
type Record struct {
	Event       string                  `json:"event,omitempty"`
	Products    map[int]Product         `json:"products,omitempty"`
	Impressions map[int]*ImpressionList `json:"impressions,omitempty"`
	Promos      map[int]Product         `json:"promos,omitempty"`
	Params      map[string]string       `json:"params,omitempty"`
}

// Empty reports whether decoding produced nothing at all.
func (r Record) Empty() bool {
	return r.Event == "" &&
		len(r.Products) == 0 &&
		len(r.Impressions) == 0 &&
		len(r.Promos) == 0 &&
		len(r.Params) == 0
}

// ProductIndexes returns the populated product indices in ascending order.
func (r Record) ProductIndexes() []int { return sortedIndexes(r.Products) }

// PromoIndexes returns the populated promotion indices in ascending order.
func (r Record) PromoIndexes() []int { return sortedIndexes(r.Promos) }

// ImpressionIndexes returns the populated impression-list indices in
// ascending order.
func (r Record) ImpressionIndexes() []int { return sortedIndexes(r.Impressions) }

// Indexes returns the populated item indices of the list in ascending order.
func (l *ImpressionList) Indexes() []int {
	if l == nil {
		return nil
	}
	return sortedIndexes(l.Impressions)
}

func sortedIndexes[V any](m map[int]V) []int {
	if len(m) == 0 {
		return nil
	}
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (r *Record) product(idx int) Product {
	if r.Products == nil {
		r.Products = make(map[int]Product)
	}
	p, ok := r.Products[idx]
	if !ok {
		p = make(Product)
		r.Products[idx] = p
	}
	return p
}

func (r *Record) promo(idx int) Product {
	if r.Promos == nil {
		r.Promos = make(map[int]Product)
	}
	p, ok := r.Promos[idx]
	if !ok {
		p = make(Product)
		r.Promos[idx] = p
	}
	return p
}

func (r *Record) impressionList(idx int) *ImpressionList {
	if r.Impressions == nil {
		r.Impressions = make(map[int]*ImpressionList)
	}
	l, ok := r.Impressions[idx]
	if !ok {
		l = &ImpressionList{}
		r.Impressions[idx] = l
	}
	return l
}

func (l *ImpressionList) item(idx int) Product {
	if l.Impressions == nil {
		l.Impressions = make(map[int]Product)
	}
	p, ok := l.Impressions[idx]
	if !ok {
		p = make(Product)
		l.Impressions[idx] = p
	}
	return p
}

func (r *Record) setParam(name, value string) {
	if r.Params == nil {
		r.Params = make(map[string]string)
	}
	r.Params[name] = value
}
