package transformer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tagsight/tagsight/internal/enricher"
	"github.com/tagsight/tagsight/internal/hit"
)

// messageFromHit runs an envelope through the JSON wire format the
// consumer sees.
func messageFromHit(t *testing.T, msg enricher.HitMessage) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to unmarshal message: %v", err)
	}
	return m
}

func TestTransformHitCompoundLegacyHit(t *testing.T) {
	rawURL := "https://www.google-analytics.com/collect?v=1&t=event&el=ua-gtm" +
		"&pa=purchase&ti=T123&tr=49.98&cu=USD" +
		"&pr1id=SKU1&pr1nm=Widget&pr1pr=24.99&pr1qt=2" +
		"&pr2id=SKU2&pr2nm=Gadget" +
		"&il1nm=Search%20Results&il1pi1id=SKU3&il1pi1nm=Thing" +
		"&promo1id=PROMO1&promo1nm=Summer%20Sale&promo1cr=banner_top"

	message := messageFromHit(t, enricher.HitMessage{
		HitID:           "h1",
		ProjectID:       "proj-1",
		CaptureID:       "cap-1",
		Kind:            "hit",
		Protocol:        "ua",
		PageURL:         "https://shop.example/checkout",
		HitURL:          rawURL,
		Record:          hit.DecodeUA(rawURL),
		Timestamp:       1700000000000,
		ServerTimestamp: 1700000000123,
		Browser:         "Chrome",
		DeviceType:      "desktop",
	})

	row, items, err := TransformHit(message)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if row.HitID != "h1" || row.ProjectID != "proj-1" || row.CaptureID != "cap-1" {
		t.Errorf("unexpected envelope columns: %+v", row)
	}
	if row.Protocol != "ua" || row.Kind != "hit" {
		t.Errorf("unexpected protocol columns: %+v", row)
	}
	if row.Event != "" {
		t.Errorf("legacy hits carry no event name, got %q", row.Event)
	}
	if row.ItemCount != 4 {
		t.Errorf("expected 4 items, got %d", row.ItemCount)
	}
	if !strings.Contains(row.ParamsJSON, `"transaction_id":"T123"`) {
		t.Errorf("expected action params in params_json, got %s", row.ParamsJSON)
	}
	if !strings.Contains(row.ParamsJSON, `"value":"49.98"`) {
		t.Errorf("expected transaction revenue in params_json, got %s", row.ParamsJSON)
	}

	if len(items) != 4 {
		t.Fatalf("expected 4 item rows, got %d", len(items))
	}

	p1 := items[0]
	if p1.ListKind != "product" || p1.ItemIndex != 1 {
		t.Errorf("unexpected first item: %+v", p1)
	}
	if p1.ItemID != "SKU1" || p1.ItemName != "Widget" || p1.Price != "24.99" || p1.Quantity != "2" {
		t.Errorf("unexpected first item fields: %+v", p1)
	}

	p2 := items[1]
	if p2.ListKind != "product" || p2.ItemIndex != 2 || p2.ItemID != "SKU2" {
		t.Errorf("unexpected second item: %+v", p2)
	}

	imp := items[2]
	if imp.ListKind != "impression" || imp.ListIndex != 1 || imp.ItemIndex != 1 {
		t.Errorf("unexpected impression item: %+v", imp)
	}
	if imp.ListName != "Search%20Results" {
		t.Errorf("expected raw list name, got %q", imp.ListName)
	}
	if imp.ItemID != "SKU3" {
		t.Errorf("unexpected impression item id: %q", imp.ItemID)
	}

	promo := items[3]
	if promo.ListKind != "promo" || promo.ItemIndex != 1 || promo.ItemID != "PROMO1" {
		t.Errorf("unexpected promo item: %+v", promo)
	}
	if !strings.Contains(promo.FieldsJSON, `"creative_name":"banner_top"`) {
		t.Errorf("expected full field map in fields_json, got %s", promo.FieldsJSON)
	}
}

func TestTransformHitSparseIndexOrder(t *testing.T) {
	message := messageFromHit(t, enricher.HitMessage{
		HitID: "h2",
		Kind:  "hit",
		Record: hit.Record{
			Event: "view_item_list",
			Products: map[int]hit.Product{
				9: {"item_id": "C"},
				2: {"item_id": "A"},
				4: {"item_id": "B"},
			},
		},
	})

	row, items, err := TransformHit(message)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Event != "view_item_list" {
		t.Errorf("expected event from record, got %q", row.Event)
	}

	var got []int32
	for _, item := range items {
		got = append(got, item.ItemIndex)
	}
	want := []int32{2, 4, 9}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected ascending indices %v, got %v", want, got)
			break
		}
	}
}

func TestTransformHitPreview(t *testing.T) {
	message := messageFromHit(t, enricher.HitMessage{
		HitID:     "h3",
		ProjectID: "proj-1",
		Kind:      "preview",
		CallKind:  "datalayer",
		Schema:    "ua-gtm",
	})

	row, items, err := TransformHit(message)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Kind != "preview" || row.Schema != "ua-gtm" || row.CallKind != "datalayer" {
		t.Errorf("unexpected preview columns: %+v", row)
	}
	if len(items) != 0 {
		t.Errorf("expected no items for a preview, got %d", len(items))
	}
}

func TestTransformHitMissingID(t *testing.T) {
	_, _, err := TransformHit(map[string]interface{}{"kind": "hit"})
	if err == nil {
		t.Fatal("expected an error for a message without hit_id")
	}
}

func TestTransformHitKindDefault(t *testing.T) {
	row, _, err := TransformHit(map[string]interface{}{"hit_id": "h4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Kind != "hit" {
		t.Errorf("expected kind to default to hit, got %q", row.Kind)
	}
}
