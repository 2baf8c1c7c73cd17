package storeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
)

// Cart mirrors the payload returned by GET /cart.
type Cart struct {
	Items      []Item     `json:"items"`
	ItemsCount int        `json:"items_count"`
	Totals     CartTotals `json:"totals"`

	// Anomalies lists fields that were substituted during decoding.
	Anomalies []*MalformedPayloadError `json:"-"`
}

// CurrencyInfo is embedded in every money-bearing object of the Store API.
type CurrencyInfo struct {
	CurrencyCode              string `json:"currency_code"`
	CurrencySymbol            string `json:"currency_symbol"`
	CurrencyMinorUnit         *int   `json:"currency_minor_unit"`
	CurrencyDecimalSeparator  string `json:"currency_decimal_separator"`
	CurrencyThousandSeparator string `json:"currency_thousand_separator"`
	CurrencyPrefix            string `json:"currency_prefix"`
	CurrencySuffix            string `json:"currency_suffix"`
}

// CartTotals aggregates the whole cart.
type CartTotals struct {
	CurrencyInfo
	TotalItems    Amount `json:"total_items"`
	TotalDiscount Amount `json:"total_discount"`
	TotalShipping Amount `json:"total_shipping"`
	TotalTax      Amount `json:"total_tax"`
	TotalPrice    Amount `json:"total_price"`
}

// Item is one cart line.
type Item struct {
	Key              string               `json:"key"`
	ID               int64                `json:"id"`
	Name             string               `json:"name"`
	SKU              string               `json:"sku"`
	Permalink        string               `json:"permalink"`
	ShortDescription string               `json:"short_description"`
	Description      string               `json:"description"`
	Quantity         int                  `json:"quantity"`
	QuantityLimits   *QuantityLimits      `json:"quantity_limits"`
	Images           []Image              `json:"images"`
	Variation        []VariationAttribute `json:"variation"`
	Prices           *ItemPrices          `json:"prices"`
	Totals           *ItemTotals          `json:"totals"`
}

// QuantityLimits bounds the quantity a line accepts.
type QuantityLimits struct {
	Minimum    int   `json:"minimum"`
	Maximum    int   `json:"maximum"`
	MultipleOf int   `json:"multiple_of"`
	Editable   *bool `json:"editable"`
}

// ItemPrices holds per-unit prices.
type ItemPrices struct {
	CurrencyInfo
	Price        Amount `json:"price"`
	RegularPrice Amount `json:"regular_price"`
	SalePrice    Amount `json:"sale_price"`
}

// ItemTotals holds per-line totals.
type ItemTotals struct {
	CurrencyInfo
	LineSubtotal Amount `json:"line_subtotal"`
	LineTotal    Amount `json:"line_total"`
}

// Image is a product image reference.
type Image struct {
	ID        int64  `json:"id"`
	Src       string `json:"src"`
	Thumbnail string `json:"thumbnail"`
	Name      string `json:"name"`
	Alt       string `json:"alt"`
}

// VariationAttribute is one attribute/value pair of a product variation.
type VariationAttribute struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// ErrorResponse is the Store API error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DecodeCart reads a cart payload. Only a body that is not a JSON object fails;
// wrong-shaped members are replaced with zero values and recorded on
// Cart.Anomalies.
func DecodeCart(r io.Reader) (*Cart, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cart body: %w", err)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &MalformedPayloadError{Reason: "cart payload is not a JSON object"}
	}
	if envelope == nil {
		return nil, &MalformedPayloadError{Reason: "cart payload is null"}
	}

	cart := &Cart{}
	note := func(field, reason string) {
		cart.Anomalies = append(cart.Anomalies, &MalformedPayloadError{Field: field, Reason: reason})
	}

	if raw, ok := envelope["items_count"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &cart.ItemsCount); err != nil {
			var amt Amount
			_ = amt.UnmarshalJSON(raw)
			if amt.Malformed || !amt.Present {
				note("items_count", "not an integer")
			}
			cart.ItemsCount = int(amt.Value)
		}
	} else {
		note("items_count", "missing")
	}

	if raw, ok := envelope["totals"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &cart.Totals); err != nil {
			note("totals", "not an object")
			cart.Totals = CartTotals{}
		}
	} else {
		note("totals", "missing")
	}
	checkAmounts(note, "totals", map[string]Amount{
		"total_items":    cart.Totals.TotalItems,
		"total_discount": cart.Totals.TotalDiscount,
		"total_shipping": cart.Totals.TotalShipping,
		"total_tax":      cart.Totals.TotalTax,
		"total_price":    cart.Totals.TotalPrice,
	})

	raw, ok := envelope["items"]
	if !ok || isNull(raw) {
		note("items", "missing")
		cart.Items = []Item{}
		return cart, nil
	}
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		note("items", "not an array")
		cart.Items = []Item{}
		return cart, nil
	}
	cart.Items = make([]Item, 0, len(rawItems))
	for i, rawItem := range rawItems {
		field := fmt.Sprintf("items[%d]", i)
		item, ok := decodeItem(rawItem, field, note)
		if !ok {
			continue
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}

// decodeItem reads one line member by member. A wrong-shaped member is noted
// and left at its zero value; only a line without a usable key is dropped.
func decodeItem(raw json.RawMessage, field string, note func(field, reason string)) (Item, bool) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil || members == nil {
		note(field, "not a cart item object")
		return Item{}, false
	}

	var item Item
	if !decodeMember(members, "key", &item.Key) || item.Key == "" {
		note(field+".key", "missing")
		return Item{}, false
	}

	for _, m := range []struct {
		name string
		dst  any
	}{
		{"id", &item.ID},
		{"name", &item.Name},
		{"sku", &item.SKU},
		{"permalink", &item.Permalink},
		{"short_description", &item.ShortDescription},
		{"description", &item.Description},
		{"images", &item.Images},
		{"variation", &item.Variation},
		{"quantity_limits", &item.QuantityLimits},
	} {
		if !decodeMember(members, m.name, m.dst) {
			note(field+"."+m.name, "wrong shape")
		}
	}

	if rawQty, ok := members["quantity"]; ok && !isNull(rawQty) {
		if err := json.Unmarshal(rawQty, &item.Quantity); err != nil {
			var amt Amount
			_ = amt.UnmarshalJSON(rawQty)
			if amt.Malformed || !amt.Present {
				note(field+".quantity", "not an integer")
			}
			item.Quantity = int(amt.Value)
		}
	}

	switch {
	case !present(members, "prices"):
		note(field+".prices", "missing")
	case !decodeMember(members, "prices", &item.Prices):
		note(field+".prices", "not an object")
	default:
		checkAmounts(note, field+".prices", map[string]Amount{
			"price":         item.Prices.Price,
			"regular_price": item.Prices.RegularPrice,
			"sale_price":    item.Prices.SalePrice,
		})
	}

	switch {
	case !present(members, "totals"):
		note(field+".totals", "missing")
	case !decodeMember(members, "totals", &item.Totals):
		note(field+".totals", "not an object")
	default:
		checkAmounts(note, field+".totals", map[string]Amount{
			"line_subtotal": item.Totals.LineSubtotal,
			"line_total":    item.Totals.LineTotal,
		})
	}

	return item, true
}

// decodeMember unmarshals members[name] into dst. Absent and null members
// succeed and leave dst untouched; on failure dst is reset to its zero value.
func decodeMember(members map[string]json.RawMessage, name string, dst any) bool {
	raw, ok := members[name]
	if !ok || isNull(raw) {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		v := reflect.ValueOf(dst).Elem()
		v.Set(reflect.Zero(v.Type()))
		return false
	}
	return true
}

func present(members map[string]json.RawMessage, name string) bool {
	raw, ok := members[name]
	return ok && !isNull(raw)
}

func checkAmounts(note func(field, reason string), prefix string, amounts map[string]Amount) {
	for name, amt := range amounts {
		if amt.Malformed {
			note(prefix+"."+name, "not a minor-unit amount")
		}
	}
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
