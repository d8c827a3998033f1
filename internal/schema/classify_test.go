package schema

import "testing"

func TestClassify_Gtag(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]any
		want   Label
	}{
		{
			name:   "no ecommerce markers",
			params: map[string]any{"page_title": "Home", "send_to": "G-1"},
			want:   Unknown,
		},
		{
			name:   "nil params",
			params: nil,
			want:   Unknown,
		},
		{
			name:   "unified items",
			params: map[string]any{"items": []any{map[string]any{"item_id": "a"}}},
			want:   GA4Gtag,
		},
		{
			name:   "legacy items",
			params: map[string]any{"items": []any{map[string]any{"id": "a"}}},
			want:   UAGtag,
		},
		{
			name: "mixed items",
			params: map[string]any{"items": []any{
				map[string]any{"item_id": "a"},
				map[string]any{"id": "b"},
			}},
			want: GtagUnknown,
		},
		{
			name: "all entries agree legacy",
			params: map[string]any{"items": []any{
				map[string]any{"id": "a"},
				map[string]any{"name": "b", "price": 1.5},
			}},
			want: UAGtag,
		},
		{
			name:   "entry with both marker families counts as unified",
			params: map[string]any{"items": []any{map[string]any{"item_id": "a", "id": "b"}}},
			want:   GA4Gtag,
		},
		{
			name:   "entry matching neither rule",
			params: map[string]any{"items": []any{map[string]any{"sku": "a"}}},
			want:   GtagUnknown,
		},
		{
			name:   "non-object entry",
			params: map[string]any{"items": []any{"a"}},
			want:   GtagUnknown,
		},
		{
			name:   "items not a list",
			params: map[string]any{"items": "a,b"},
			want:   GtagUnknown,
		},
		{
			name:   "items empty list",
			params: map[string]any{"items": []any{}},
			want:   GtagUnknown,
		},
		{
			name:   "transaction markers without items",
			params: map[string]any{"transaction_id": "T1", "value": 9.99, "currency": "USD"},
			want:   GtagUnknown,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(CallGtag, c.params); got != c.want {
				t.Errorf("Classify(CallGtag, %v) = %s, want %s", c.params, got, c.want)
			}
		})
	}
}

func TestClassify_DataLayer(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]any
		want   Label
	}{
		{
			name:   "no ecommerce key",
			params: map[string]any{"event": "page_view"},
			want:   Unknown,
		},
		{
			name:   "ecommerce not an object",
			params: map[string]any{"ecommerce": "yes"},
			want:   Unknown,
		},
		{
			name:   "unified items",
			params: map[string]any{"ecommerce": map[string]any{"items": []any{map[string]any{"item_id": "a"}}}},
			want:   GA4GTM,
		},
		{
			name:   "unified transaction_id",
			params: map[string]any{"ecommerce": map[string]any{"transaction_id": "T1"}},
			want:   GA4GTM,
		},
		{
			name:   "unified value",
			params: map[string]any{"ecommerce": map[string]any{"value": 10.0}},
			want:   GA4GTM,
		},
		{
			name: "classic purchase wrapper",
			params: map[string]any{"ecommerce": map[string]any{
				"purchase": map[string]any{"actionField": map[string]any{}, "products": []any{}},
			}},
			want: UAGTM,
		},
		{
			name: "classic promo click",
			params: map[string]any{"ecommerce": map[string]any{
				"promoClick": map[string]any{"promotions": []any{map[string]any{"id": "p"}}},
			}},
			want: UAGTM,
		},
		{
			name: "items inside classic wrapper",
			params: map[string]any{"ecommerce": map[string]any{
				"checkout": map[string]any{"items": []any{map[string]any{"item_id": "a"}}},
			}},
			want: GA4GTM,
		},
		{
			name: "strong markers beat wrappers",
			params: map[string]any{"ecommerce": map[string]any{
				"items":    []any{map[string]any{"item_id": "a"}},
				"purchase": map[string]any{"actionField": map[string]any{}},
			}},
			want: GA4GTM,
		},
		{
			name: "only the first wrapper is inspected",
			params: map[string]any{"ecommerce": map[string]any{
				"detail":   map[string]any{"step": 1.0},
				"purchase": map[string]any{"products": []any{}},
			}},
			want: Unknown,
		},
		{
			name: "bare wrapper falls through to impressions",
			params: map[string]any{"ecommerce": map[string]any{
				"detail":      map[string]any{"step": 1.0},
				"impressions": []any{map[string]any{}},
			}},
			want: UAGTM,
		},
		{
			name:   "impressions fallback",
			params: map[string]any{"ecommerce": map[string]any{"impressions": []any{map[string]any{}}}},
			want:   UAGTM,
		},
		{
			name:   "empty ecommerce object",
			params: map[string]any{"ecommerce": map[string]any{}},
			want:   Unknown,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(CallDataLayer, c.params); got != c.want {
				t.Errorf("Classify(CallDataLayer, %v) = %s, want %s", c.params, got, c.want)
			}
		})
	}
}

// Any combination of kind and object must land on exactly one label
// without panicking.
func TestClassify_Total(t *testing.T) {
	known := map[Label]bool{
		Unknown: true, GtagUnknown: true,
		UAGTM: true, GA4GTM: true,
		UAGtag: true, GA4Gtag: true,
	}
	objects := []map[string]any{
		nil,
		{},
		{"items": nil},
		{"items": 42.0},
		{"items": []any{nil}},
		{"items": []any{map[string]any{}}},
		{"ecommerce": nil},
		{"ecommerce": []any{}},
		{"ecommerce": map[string]any{"detail": "x"}},
		{"ecommerce": map[string]any{"click": nil}},
		{"value": nil, "currency": nil},
		{"ecommerce": map[string]any{"impressions": nil}},
	}
	for _, kind := range []CallKind{CallGtag, CallDataLayer, CallKind("bogus")} {
		for _, obj := range objects {
			got := Classify(kind, obj)
			if !known[got] {
				t.Fatalf("Classify(%s, %v) produced unexpected label %q", kind, obj, got)
			}
		}
	}
}
