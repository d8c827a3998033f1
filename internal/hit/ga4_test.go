package hit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsGA4Hit(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://www.google-analytics.com/g/collect?v=2&en=view_item", true},
		{"https://region1.google-analytics.com/g/collect?v=2", true},
		{"https://www.google-analytics.com/collect?v=1&el=ua-gtm", false},
		{"https://example.com/checkout", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsGA4Hit(c.url); got != c.want {
			t.Errorf("IsGA4Hit(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestDecodeGA4_Products(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&en=purchase" +
		"&pr1=id12345~nmWidget~prUSD%209.99~qt2" +
		"&pr2=idSKU-7~brAcme~caToys"

	got := DecodeGA4(url)
	want := Record{
		Event: "purchase",
		Products: map[int]Product{
			1: {"item_id": "12345", "item_name": "Widget", "price": "USD%209.99", "quantity": "2"},
			2: {"item_id": "SKU-7", "item_brand": "Acme", "item_category": "Toys"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeGA4_TildeEscape(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&pr1=id12345~nmFoo~~Bar"

	got := DecodeGA4(url)
	want := Product{"item_id": "12345", "item_name": "Foo~Bar"}
	if diff := cmp.Diff(want, got.Products[1]); diff != "" {
		t.Fatalf("product mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitTildeFields(t *testing.T) {
	cases := []struct {
		payload string
		want    []string
	}{
		{"id12345~nmFoo~~Bar", []string{"id12345", "nmFoo~Bar"}},
		{"nmFoo~~", []string{"nmFoo~"}},
		{"nm~~~~X", []string{"nm~~X"}},
		{"id1~nm2", []string{"id1", "nm2"}},
		{"id1", []string{"id1"}},
		{"", []string{""}},
	}
	for _, c := range cases {
		got := splitTildeFields(c.payload)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("splitTildeFields(%q) mismatch (-want +got):\n%s", c.payload, diff)
		}
	}
}

func TestDecodeGA4_UnknownCodesDropped(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&pr1=zzMystery~id123~q9"

	got := DecodeGA4(url)
	want := Product{"item_id": "123"}
	if diff := cmp.Diff(want, got.Products[1]); diff != "" {
		t.Fatalf("product mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeGA4_EventParams(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&en=view_item" +
		"&ep.page_type=pdp&ep.list_id=spring&epn.items_count=4"

	got := DecodeGA4(url)
	want := map[string]string{
		"page_type":   "pdp",
		"list_id":     "spring",
		"items_count": "4",
	}
	if diff := cmp.Diff(want, got.Params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeGA4_FirstEventNameWins(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&en=view_item&en=purchase"

	got := DecodeGA4(url)
	if got.Event != "view_item" {
		t.Fatalf("expected event view_item, got %q", got.Event)
	}
}

func TestDecodeGA4_EmptyProductPayload(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&pr3="

	got := DecodeGA4(url)
	if len(got.Products) != 1 {
		t.Fatalf("expected one product index, got %d", len(got.Products))
	}
	p, ok := got.Products[3]
	if !ok {
		t.Fatal("expected product at index 3")
	}
	if len(p) != 0 {
		t.Fatalf("expected empty product, got %v", p)
	}
}

func TestDecodeGA4_SparseIndices(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&pr2=idA&pr7=idB&pr4=idC"

	got := DecodeGA4(url)
	want := []int{2, 4, 7}
	if diff := cmp.Diff(want, got.ProductIndexes()); diff != "" {
		t.Fatalf("index order mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeGA4_NonMatchingURL(t *testing.T) {
	got := DecodeGA4("https://example.com/checkout?step=2")
	if !got.Empty() {
		t.Fatalf("expected empty record, got %+v", got)
	}
}

func TestDecodeGA4_NoPercentDecoding(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&pr1=nmBlue%20Widget&ep.page=%2Fhome"

	got := DecodeGA4(url)
	if v := got.Products[1]["item_name"]; v != "Blue%20Widget" {
		t.Errorf("expected raw value Blue%%20Widget, got %q", v)
	}
	if v := got.Params["page"]; v != "%2Fhome" {
		t.Errorf("expected raw value %%2Fhome, got %q", v)
	}
}

func TestDecodeGA4_Idempotent(t *testing.T) {
	url := "https://www.google-analytics.com/g/collect?v=2&en=purchase&pr1=id1~nmA~~B&ep.x=1"

	first := DecodeGA4(url)
	second := DecodeGA4(url)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("decode not idempotent (-first +second):\n%s", diff)
	}
}
