package transformer

import (
	"encoding/json"
	"fmt"

	"github.com/tagsight/tagsight/internal/hit"
	"github.com/tagsight/tagsight/internal/storage"
)

// TransformHit flattens a consumed hit message into a hits row plus
// one hit_items row per occupied product, impression and promotion
// slot. Items come out in ascending index order with gaps skipped.
func TransformHit(message map[string]interface{}) (storage.HitRow, []storage.HitItemRow, error) {
	hitID := getString(message, "hit_id")
	if hitID == "" {
		return storage.HitRow{}, nil, fmt.Errorf("message has no hit_id")
	}

	rec, err := recordFromMessage(message)
	if err != nil {
		return storage.HitRow{}, nil, fmt.Errorf("failed to parse record: %w", err)
	}

	row := storage.HitRow{
		HitID:           hitID,
		ProjectID:       getString(message, "project_id"),
		CaptureID:       getString(message, "capture_id"),
		Kind:            getString(message, "kind"),
		Protocol:        getString(message, "protocol"),
		DualTagged:      getBool(message, "dual_tagged"),
		PageURL:         getString(message, "page_url"),
		HitURL:          getString(message, "hit_url"),
		Event:           rec.Event,
		Schema:          getString(message, "schema"),
		CallKind:        getString(message, "call_kind"),
		Recommendation:  getString(message, "recommendation"),
		Timestamp:       getInt64(message, "timestamp"),
		ServerTimestamp: getInt64(message, "server_timestamp"),
		Browser:         getString(message, "browser"),
		BrowserVersion:  getString(message, "browser_version"),
		OS:              getString(message, "os"),
		DeviceType:      getString(message, "device_type"),
		Country:         getString(message, "country"),
		City:            getString(message, "city"),
	}
	if row.Kind == "" {
		row.Kind = "hit"
	}

	if len(rec.Params) > 0 {
		data, err := json.Marshal(rec.Params)
		if err != nil {
			return storage.HitRow{}, nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		row.ParamsJSON = string(data)
	}

	items := itemRows(row, rec)
	row.ItemCount = int32(len(items))

	return row, items, nil
}

func itemRows(row storage.HitRow, rec hit.Record) []storage.HitItemRow {
	var items []storage.HitItemRow

	base := storage.HitItemRow{
		HitID:     row.HitID,
		ProjectID: row.ProjectID,
		CaptureID: row.CaptureID,
	}

	for _, idx := range rec.ProductIndexes() {
		item := base
		item.ListKind = "product"
		item.ItemIndex = int32(idx)
		items = append(items, fillItem(item, rec.Products[idx]))
	}

	for _, listIdx := range rec.ImpressionIndexes() {
		list := rec.Impressions[listIdx]
		for _, itemIdx := range list.Indexes() {
			item := base
			item.ListKind = "impression"
			item.ListIndex = int32(listIdx)
			item.ListName = list.Name
			item.ItemIndex = int32(itemIdx)
			items = append(items, fillItem(item, list.Impressions[itemIdx]))
		}
	}

	for _, idx := range rec.PromoIndexes() {
		item := base
		item.ListKind = "promo"
		item.ItemIndex = int32(idx)
		items = append(items, fillItem(item, rec.Promos[idx]))
	}

	return items
}

func fillItem(item storage.HitItemRow, fields hit.Product) storage.HitItemRow {
	item.ItemID = fields["item_id"]
	item.ItemName = fields["item_name"]
	item.Price = fields["price"]
	item.Quantity = fields["quantity"]
	if len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			item.FieldsJSON = string(data)
		}
	}
	return item
}

// recordFromMessage rebuilds the typed record from the generic message
// map by passing it back through the record's own JSON codec.
func recordFromMessage(message map[string]interface{}) (hit.Record, error) {
	raw, ok := message["record"]
	if !ok || raw == nil {
		return hit.Record{}, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return hit.Record{}, err
	}

	var rec hit.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return hit.Record{}, err
	}
	return rec, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt64(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}
