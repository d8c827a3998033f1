package gtag

import (
	"strings"
	"testing"

	"github.com/tagsight/tagsight/internal/hit"
)

func TestRender_ParamsAndItems(t *testing.T) {
	rec := hit.Record{
		Event:  "purchase",
		Params: map[string]string{"value": "9.99"},
		Products: map[int]hit.Product{
			1: {"item_id": "X"},
		},
	}

	want := `gtag('event', 'purchase', {
  value: '9.99',
  items: [
    {
      'item_id': 'X',
    },
  ],
});`
	if got := Render(rec); got != want {
		t.Fatalf("render mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestRender_IndexZeroExcluded(t *testing.T) {
	rec := hit.Record{
		Event: "view_item_list",
		Products: map[int]hit.Product{
			0: {"item_id": "Z"},
			1: {"item_id": "A"},
			2: {"item_id": "B"},
		},
	}

	got := Render(rec)
	if strings.Contains(got, "Z") {
		t.Fatalf("index 0 product leaked into output:\n%s", got)
	}
	want := `gtag('event', 'view_item_list', {
  items: [
    {
      'item_id': 'A',
    },
    {
      'item_id': 'B',
    },
  ],
});`
	if got != want {
		t.Fatalf("render mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestRender_OnlyIndexZeroYieldsEmptyItems(t *testing.T) {
	rec := hit.Record{
		Event:    "view_item",
		Products: map[int]hit.Product{0: {"item_id": "Z"}},
	}

	want := `gtag('event', 'view_item', {
  items: [
  ],
});`
	if got := Render(rec); got != want {
		t.Fatalf("render mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestRender_EmptyRecord(t *testing.T) {
	if got := Render(hit.Record{Event: "select_item"}); got != "gtag('event', 'select_item', {});" {
		t.Fatalf("unexpected render: %s", got)
	}
	if got := Render(hit.Record{}); got != "gtag('event', '', {});" {
		t.Fatalf("unexpected render: %s", got)
	}
}

func TestRender_SortsKeysAndIndices(t *testing.T) {
	rec := hit.Record{
		Event: "purchase",
		Params: map[string]string{
			"value":    "5",
			"currency": "USD",
		},
		Products: map[int]hit.Product{
			5: {"item_id": "LATE"},
			2: {"item_id": "EARLY"},
		},
	}

	got := Render(rec)
	if c, v := strings.Index(got, "currency"), strings.Index(got, "value"); c == -1 || v == -1 || c > v {
		t.Fatalf("params not in sorted order:\n%s", got)
	}
	if e, l := strings.Index(got, "EARLY"), strings.Index(got, "LATE"); e == -1 || l == -1 || e > l {
		t.Fatalf("items not in ascending index order:\n%s", got)
	}
}

func TestRender_NoValueEscaping(t *testing.T) {
	rec := hit.Record{
		Event:  "add_to_cart",
		Params: map[string]string{"label": "it's"},
	}

	got := Render(rec)
	if !strings.Contains(got, "label: 'it's',") {
		t.Fatalf("embedded quote should pass through unescaped:\n%s", got)
	}
}
