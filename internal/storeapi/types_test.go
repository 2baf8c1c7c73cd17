package storeapi

import (
	"encoding/json"
	"strings"
	"testing"
)

func fieldsOf(errs []*MalformedPayloadError) map[string]bool {
	out := make(map[string]bool, len(errs))
	for _, e := range errs {
		out[e.Field] = true
	}
	return out
}

func TestDecodeCart_MissingItemsSubstitutesEmpty(t *testing.T) {
	cart, err := DecodeCart(strings.NewReader(`{"items_count": 0, "totals": {}}`))
	if err != nil {
		t.Fatalf("DecodeCart returned error: %v", err)
	}
	if cart.Items == nil || len(cart.Items) != 0 {
		t.Fatalf("Items = %#v, want empty non-nil slice", cart.Items)
	}
	if !fieldsOf(cart.Anomalies)["items"] {
		t.Fatalf("Anomalies = %v, want items noted", cart.Anomalies)
	}
}

func TestDecodeCart_ItemsWrongShape(t *testing.T) {
	cart, err := DecodeCart(strings.NewReader(`{"items": {"oops": true}, "items_count": 1, "totals": {}}`))
	if err != nil {
		t.Fatalf("DecodeCart returned error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("Items = %#v, want empty", cart.Items)
	}
	if !fieldsOf(cart.Anomalies)["items"] {
		t.Fatalf("Anomalies = %v, want items noted", cart.Anomalies)
	}
}

func TestDecodeCart_SkipsBrokenItemsKeepsGoodOnes(t *testing.T) {
	payload := `{"items_count": 3, "totals": {}, "items": [
		"not an object",
		{"name": "no key", "quantity": 1},
		{"key": "k1", "quantity": 1, "prices": {"regular_price": "abc", "sale_price": 500}},
		{"key": "k2", "name": "Mug", "quantity": "2", "prices": [], "totals": "x", "images": {}, "variation": 7, "quantity_limits": []}
	]}`
	cart, err := DecodeCart(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("DecodeCart returned error: %v", err)
	}
	if len(cart.Items) != 2 || cart.Items[0].Key != "k1" || cart.Items[1].Key != "k2" {
		t.Fatalf("Items = %#v, want k1 and k2", cart.Items)
	}
	fields := fieldsOf(cart.Anomalies)
	for _, want := range []string{
		"items[0]",
		"items[1].key",
		"items[2].prices.regular_price",
		"items[2].totals",
		"items[3].prices",
		"items[3].totals",
		"items[3].images",
		"items[3].variation",
		"items[3].quantity_limits",
	} {
		if !fields[want] {
			t.Fatalf("Anomalies = %v, want %s noted", cart.Anomalies, want)
		}
	}
	if got := cart.Items[0].Prices.SalePrice.Value; got != 500 {
		t.Fatalf("numeric sale_price = %d, want 500", got)
	}

	k2 := cart.Items[1]
	if k2.Name != "Mug" || k2.Quantity != 2 {
		t.Fatalf("k2 = name %q quantity %d, want Mug 2", k2.Name, k2.Quantity)
	}
	if k2.Prices != nil || k2.Totals != nil || k2.QuantityLimits != nil {
		t.Fatalf("k2 wrong-shaped members not zeroed: %+v", k2)
	}
	if len(k2.Images) != 0 || len(k2.Variation) != 0 {
		t.Fatalf("k2 images/variation = %v/%v, want empty", k2.Images, k2.Variation)
	}
}

func TestDecodeCart_NonStringKeyDropsLine(t *testing.T) {
	cart, err := DecodeCart(strings.NewReader(`{"items_count": 1, "totals": {}, "items": [{"key": 12, "quantity": 1}]}`))
	if err != nil {
		t.Fatalf("DecodeCart returned error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("Items = %#v, want none", cart.Items)
	}
	if !fieldsOf(cart.Anomalies)["items[0].key"] {
		t.Fatalf("Anomalies = %v, want items[0].key noted", cart.Anomalies)
	}
}

func TestDecodeCart_StringItemsCount(t *testing.T) {
	cart, err := DecodeCart(strings.NewReader(`{"items_count": "3", "items": [], "totals": {}}`))
	if err != nil {
		t.Fatalf("DecodeCart returned error: %v", err)
	}
	if cart.ItemsCount != 3 {
		t.Fatalf("ItemsCount = %d, want 3", cart.ItemsCount)
	}
}

func TestDecodeCart_RejectsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `null`, `"cart"`, `<html>`} {
		if _, err := DecodeCart(strings.NewReader(body)); err == nil {
			t.Fatalf("DecodeCart(%q) returned nil error", body)
		}
	}
}

func TestAmount_Unmarshal(t *testing.T) {
	cases := []struct {
		in        string
		value     int64
		present   bool
		malformed bool
	}{
		{`"1000"`, 1000, true, false},
		{`1000`, 1000, true, false},
		{`"-250"`, -250, true, false},
		{`12.0`, 12, true, false},
		{`null`, 0, false, false},
		{`""`, 0, false, false},
		{`"ten"`, 0, true, true},
		{`{}`, 0, true, true},
		{`"NaN"`, 0, true, true},
		{`"Inf"`, 0, true, true},
		{`"-Infinity"`, 0, true, true},
		{`"1e30"`, 0, true, true},
		{`-1e30`, 0, true, true},
		{`"9223372036854775808"`, 0, true, true},
		{`1e3`, 1000, true, false},
	}
	for _, tc := range cases {
		var a Amount
		if err := json.Unmarshal([]byte(tc.in), &a); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tc.in, err)
		}
		if a.Value != tc.value || a.Present != tc.present || a.Malformed != tc.malformed {
			t.Fatalf("Unmarshal(%s) = %+v, want value=%d present=%v malformed=%v", tc.in, a, tc.value, tc.present, tc.malformed)
		}
	}
}
