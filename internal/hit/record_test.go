package hit

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordIndexHelpers_Empty(t *testing.T) {
	var rec Record
	if !rec.Empty() {
		t.Fatal("zero record should be empty")
	}
	if idx := rec.ProductIndexes(); idx != nil {
		t.Fatalf("expected nil indices, got %v", idx)
	}
	if idx := rec.ImpressionIndexes(); idx != nil {
		t.Fatalf("expected nil indices, got %v", idx)
	}
	var list *ImpressionList
	if idx := list.Indexes(); idx != nil {
		t.Fatalf("expected nil indices from nil list, got %v", idx)
	}
}

// Hit records travel through the pipeline as JSON; the integer-keyed
// sparse maps must survive the trip with their indices intact.
func TestRecordJSONRoundTrip(t *testing.T) {
	rec := Record{
		Event:    "purchase",
		Products: map[int]Product{0: {"item_id": "Z"}, 5: {"item_id": "A", "price": "1.50"}},
		Impressions: map[int]*ImpressionList{
			2: {Name: "Home", Impressions: map[int]Product{0: {"item_id": "B"}}},
		},
		Promos: map[int]Product{3: {"creative_name": "banner"}},
		Params: map[string]string{"value": "9.99"},
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(rec, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
