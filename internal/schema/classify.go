// Package schema assigns tagging-convention labels to the parameter
// objects of captured analytics calls.
package schema

// CallKind identifies which API surface supplied a parameter object.
type CallKind string

const (
	// CallGtag is a direct gtag('event', ...) call.
	CallGtag CallKind = "gtag"
	// CallDataLayer is a dataLayer.push({...}) structured push.
	CallDataLayer CallKind = "datalayer"
)

// Label is one of the six schema categories.
type Label string

const (
	Unknown     Label = "unknown"
	GtagUnknown Label = "gtag-unknown"
	UAGTM       Label = "ua-gtm"
	GA4GTM      Label = "ga4-gtm"
	UAGtag      Label = "ua-gtag"
	GA4Gtag     Label = "ga4-gtag"
)

// uaActions lists the classic action wrappers in inspection order. Only
// the first one present on the ecommerce object is examined.
var uaActions = []string{
	"detail", "click", "add", "remove", "purchase",
	"refund", "checkout", "checkoutStep", "promoView", "promoClick",
}

// Classify inspects an already-materialized parameter object and
// returns the schema label it represents. The checks in each branch
// form a deliberate precedence chain; markers are not mutually
// exclusive across categories, so the order carries the tie-break
// policy. Classify is total: any input maps to exactly one label.
func Classify(kind CallKind, params map[string]any) Label {
	switch kind {
	case CallGtag:
		return classifyGtag(params)
	case CallDataLayer:
		return classifyDataLayer(params)
	default:
		return Unknown
	}
}

func classifyGtag(params map[string]any) Label {
	_, hasItems := params["items"]
	if !hasItems && !hasAny(params, "transaction_id", "value", "currency") {
		return Unknown
	}
	items, ok := params["items"].([]any)
	if !ok || len(items) == 0 {
		return GtagUnknown
	}

	var result Label
	for _, entry := range items {
		obj, ok := entry.(map[string]any)
		if !ok {
			return GtagUnknown
		}
		var entryLabel Label
		switch {
		case hasAny(obj, "item_id", "item_name", "promotion_id", "promotion_name", "creative_name"):
			entryLabel = GA4Gtag
		case hasAny(obj, "id", "name"):
			entryLabel = UAGtag
		default:
			return GtagUnknown
		}
		if result == "" {
			result = entryLabel
		} else if result != entryLabel {
			return GtagUnknown
		}
	}
	if result == "" {
		return GtagUnknown
	}
	return result
}

func classifyDataLayer(params map[string]any) Label {
	ecommerce, ok := params["ecommerce"].(map[string]any)
	if !ok {
		return Unknown
	}
	if hasAny(ecommerce, "items", "transaction_id", "value") {
		return GA4GTM
	}
	for _, action := range uaActions {
		v, present := ecommerce[action]
		if !present {
			continue
		}
		obj, _ := v.(map[string]any)
		if hasAny(obj, "actionField", "products", "promotions") {
			return UAGTM
		}
		if _, ok := obj["items"]; ok {
			return GA4GTM
		}
		// A wrapper with no recognizable markers decides nothing, and
		// later wrappers are not consulted.
		break
	}
	if _, ok := ecommerce["impressions"]; ok {
		return UAGTM
	}
	return Unknown
}

func hasAny(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}
