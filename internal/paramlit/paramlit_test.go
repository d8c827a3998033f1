package paramlit

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_EcommerceCall(t *testing.T) {
	src := `{
		// migrated from the old tag
		transaction_id: 'T100',
		value: 19.99,
		currency: "USD",
		items: [
			{item_id: 'SKU1', item_name: 'Widget', quantity: 2, in_stock: true},
			{item_id: 'SKU2', price: -1.5e2, discount: null},
		],
	}`

	got, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"transaction_id": "T100",
		"value":          19.99,
		"currency":       "USD",
		"items": []any{
			map[string]any{"item_id": "SKU1", "item_name": "Widget", "quantity": 2.0, "in_stock": true},
			map[string]any{"item_id": "SKU2", "price": -150.0, "discount": nil},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("object mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_KeyAndStringForms(t *testing.T) {
	src := `{'single': "double", "spaced key": 'a\'b', $id_9: 'é\n', nested: {empty: {}}}`

	got, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"single":     "double",
		"spaced key": "a'b",
		"$id_9":      "é\n",
		"nested":     map[string]any{"empty": map[string]any{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("object mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_CommentsAndTrailingCommas(t *testing.T) {
	src := "{\n" +
		"  /* step: checkout */\n" +
		"  step: 2, // second page\n" +
		"  options: ['visa', 'paypal',],\n" +
		"}"

	got, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"step":    2.0,
		"options": []any{"visa", "paypal"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("object mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyObject(t *testing.T) {
	got, err := Parse("  {}  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty object, got %v", got)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"function call", `{items: loadItems()}`},
		{"bare identifier", `{value: price}`},
		{"template literal", "{label: `hi`}"},
		{"member access", `{v: window.price}`},
		{"numeric key", `{1: 'a'}`},
		{"unterminated string", `{a: 'oops}`},
		{"unterminated object", `{a: 1`},
		{"unterminated comment", `{a: 1 /* }`},
		{"trailing statement", `{a: 1}; alert(1)`},
		{"missing colon", `{a 1}`},
		{"bad number", `{a: 1.2.3}`},
		{"not an object", `[1, 2]`},
		{"empty input", ``},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Parse(c.src); err == nil {
				t.Fatalf("expected parse error for %q", c.src)
			} else if !strings.HasPrefix(err.Error(), "offset ") {
				t.Fatalf("error should carry an offset, got %q", err.Error())
			}
		})
	}
}

func TestParse_ErrorPositionsPointAtOffender(t *testing.T) {
	_, err := Parse(`{a: doIt()}`)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), `"doIt"`) {
		t.Fatalf("error should name the unsupported value, got %q", err.Error())
	}
}
