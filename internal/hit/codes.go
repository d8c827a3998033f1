package hit

// Wire-code tables. Each decoder maps two-letter (or, for action
// parameters, exact) codes to canonical field names through these
// read-only tables; codes missing from the relevant table are dropped.

var ga4ItemFields = map[string]string{
	"id": "item_id",
	"nm": "item_name",
	"br": "item_brand",
	"ca": "item_category",
	"c2": "item_category2",
	"c3": "item_category3",
	"c4": "item_category4",
	"c5": "item_category5",
	"va": "item_variant",
	"pr": "price",
	"qt": "quantity",
	"cp": "coupon",
	"ln": "item_list_name",
	"li": "item_list_id",
	"lp": "index",
	"ds": "discount",
	"af": "affiliation",
	"pi": "promotion_id",
	"pn": "promotion_name",
	"cn": "creative_name",
	"cs": "creative_slot",
	"lo": "Location ID",
}

var uaProductFields = map[string]string{
	"id": "item_id",
	"nm": "item_name",
	"br": "item_brand",
	"ca": "item_category",
	"va": "item_variant",
	"qt": "quantity",
	"pr": "price",
	"cc": "coupon",
	"ps": "index",
}

var uaImpressionFields = map[string]string{
	"id": "item_id",
	"nm": "item_name",
	"br": "item_brand",
	"ca": "item_category",
	"va": "item_variant",
	"ps": "index",
	"pr": "price",
}

var uaPromoFields = map[string]string{
	"id": "item_id",
	"nm": "item_name",
	"cr": "creative_name",
	"ps": "index",
}

var uaActionParams = map[string]string{
	"pa":     "product_action",
	"ti":     "transaction_id",
	"ta":     "affiliation",
	"tr":     "value",
	"tt":     "tax",
	"ts":     "shipping",
	"tcc":    "coupon",
	"pal":    "item_list_name",
	"cos":    "checkout_step",
	"col":    "checkout_option",
	"promoa": "promo_action",
	"cu":     "currency",
}
