package cart

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/minicart/internal/money"
	"github.com/five82/minicart/internal/storeapi"
)

var baseCurrency = money.Currency{
	MinorUnit:         money.DefaultMinorUnit,
	ThousandSeparator: money.DefaultThousandSeparator,
	DecimalSeparator:  money.DefaultDecimalSeparator,
}

// Normalize derives a Snapshot from a raw cart payload. It never fails: absent
// or wrong-shaped members are replaced with defaults and logged as recoverable
// anomalies. Normalize is pure apart from logging, so the same payload always
// yields the same Snapshot.
func Normalize(raw *storeapi.Cart, logger zerolog.Logger) *Snapshot {
	if raw == nil {
		logger.Warn().Str("field", "cart").Msg("cart_payload_missing")
		return &Snapshot{
			Items:   []LineItem{},
			IsEmpty: true,
			Totals:  Totals{Currency: baseCurrency, FormattedTotalItems: baseCurrency.Format(0), FormattedTotalPrice: baseCurrency.Format(0)},
		}
	}
	for _, anomaly := range raw.Anomalies {
		logger.Warn().Str("field", anomaly.Field).Str("reason", anomaly.Reason).Msg("cart_payload_substituted")
	}

	currency := currencyOf(raw.Totals.CurrencyInfo, baseCurrency)

	items := make([]LineItem, 0, len(raw.Items))
	for _, rawItem := range raw.Items {
		items = append(items, normalizeItem(rawItem, currency))
	}

	count := raw.ItemsCount
	if count < 0 {
		logger.Warn().Int("items_count", count).Msg("cart_negative_item_count")
		count = 0
	}

	return &Snapshot{
		Items:     items,
		ItemCount: count,
		IsEmpty:   count <= 0,
		Totals: Totals{
			Currency:            currency,
			TotalItems:          raw.Totals.TotalItems.Value,
			TotalPrice:          raw.Totals.TotalPrice.Value,
			TotalDiscount:       raw.Totals.TotalDiscount.Value,
			FormattedTotalItems: currency.Format(raw.Totals.TotalItems.Value),
			FormattedTotalPrice: currency.Format(raw.Totals.TotalPrice.Value),
		},
	}
}

func normalizeItem(raw storeapi.Item, cartCurrency money.Currency) LineItem {
	prices := raw.Prices
	if prices == nil {
		prices = &storeapi.ItemPrices{}
	}
	totals := raw.Totals
	if totals == nil {
		totals = &storeapi.ItemTotals{}
	}
	currency := currencyOf(prices.CurrencyInfo, cartCurrency)

	regular := prices.RegularPrice.Value
	price := prices.Price.Value
	if !prices.Price.Present {
		price = regular
	}
	// An absent sale price means the line sells at its current price.
	sale := prices.SalePrice.Value
	if !prices.SalePrice.Present {
		sale = price
	}
	discount := regular - sale

	quantity := raw.Quantity
	if quantity < 0 {
		quantity = 0
	}

	item := LineItem{
		Key:      raw.Key,
		Quantity: quantity,
		Limits:   limitsOf(raw.QuantityLimits),
		Prices:   Prices{Price: price, RegularPrice: regular, SalePrice: sale},
		Totals:   LineTotals{LineSubtotal: totals.LineSubtotal.Value, LineTotal: totals.LineTotal.Value},
		Currency: currency,
		Product: Product{
			ID:               raw.ID,
			Name:             PlainText(raw.Name),
			SKU:              raw.SKU,
			Permalink:        raw.Permalink,
			Description:      raw.Description,
			ShortDescription: raw.ShortDescription,
		},
		OnSale:        discount != 0,
		IsVariation:   len(raw.Variation) > 0,
		Discount:      discount,
		TotalDiscount: discount * int64(quantity),
	}

	if short := PlainText(raw.ShortDescription); short != "" {
		item.DisplayDescription = short
	} else {
		item.DisplayDescription = PlainText(raw.Description)
	}

	for _, img := range raw.Images {
		item.Product.Images = append(item.Product.Images, Image{Src: img.Src, Thumbnail: img.Thumbnail, Alt: img.Alt})
	}
	if len(item.Product.Images) > 0 {
		first := item.Product.Images[0]
		item.Image = &first
	}
	for _, attr := range raw.Variation {
		item.Product.Attributes = append(item.Product.Attributes, Attribute{
			Name:  PlainText(attr.Attribute),
			Value: PlainText(attr.Value),
		})
	}

	item.FormattedPrice = currency.Format(price)
	item.FormattedRegularPrice = currency.Format(regular)
	item.FormattedSalePrice = currency.Format(sale)
	item.FormattedLineSubtotal = currency.Format(item.Totals.LineSubtotal)
	item.FormattedLineTotal = currency.Format(item.Totals.LineTotal)
	item.FormattedDiscountAmount = currency.Format(discount)
	item.FormattedTotalDiscount = currency.Format(item.TotalDiscount)
	return item
}

func limitsOf(raw *storeapi.QuantityLimits) Limits {
	limits := Limits{Minimum: DefaultMinimum, Maximum: DefaultMaximum, StepMultiple: 1, Editable: true}
	if raw == nil {
		return limits
	}
	if raw.Minimum > 0 {
		limits.Minimum = raw.Minimum
	}
	if raw.Maximum > 0 {
		limits.Maximum = raw.Maximum
	}
	if limits.Maximum < limits.Minimum {
		limits.Maximum = limits.Minimum
	}
	if raw.MultipleOf > 1 {
		limits.StepMultiple = raw.MultipleOf
	}
	if raw.Editable != nil {
		limits.Editable = *raw.Editable
	}
	return limits
}

func currencyOf(info storeapi.CurrencyInfo, fallback money.Currency) money.Currency {
	c := fallback
	if code := strings.TrimSpace(info.CurrencyCode); code != "" {
		c.Code = code
	}
	if symbol := strings.TrimSpace(info.CurrencySymbol); symbol != "" {
		c.Symbol = symbol
	}
	if info.CurrencyMinorUnit != nil && *info.CurrencyMinorUnit >= 0 {
		c.MinorUnit = *info.CurrencyMinorUnit
	}
	if info.CurrencyThousandSeparator != "" {
		c.ThousandSeparator = info.CurrencyThousandSeparator
	}
	if info.CurrencyDecimalSeparator != "" {
		c.DecimalSeparator = info.CurrencyDecimalSeparator
	}
	return c.WithDefaults()
}
