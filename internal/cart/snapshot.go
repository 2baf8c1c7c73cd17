// Package cart derives the display-ready cart view model from Store API payloads.
package cart

import (
	"github.com/five82/minicart/internal/money"
)

// Default quantity bounds when a line carries no quantity_limits.
const (
	DefaultMinimum = 1
	DefaultMaximum = 9999
)

// Snapshot is the normalized cart derived from one server response.
type Snapshot struct {
	Items     []LineItem `json:"items"`
	ItemCount int        `json:"itemCount"`
	IsEmpty   bool       `json:"isEmpty"`
	Totals    Totals     `json:"totals"`
}

// Totals is the cart-level money aggregate.
type Totals struct {
	Currency            money.Currency `json:"currency"`
	TotalItems          int64          `json:"totalItems"`
	TotalPrice          int64          `json:"totalPrice"`
	TotalDiscount       int64          `json:"totalDiscount"`
	FormattedTotalItems string         `json:"formattedTotalItems"`
	FormattedTotalPrice string         `json:"formattedTotalPrice"`
}

// Limits bounds a line's quantity.
type Limits struct {
	Minimum      int  `json:"minimum"`
	Maximum      int  `json:"maximum"`
	StepMultiple int  `json:"stepMultiple"`
	Editable     bool `json:"editable"`
}

// Clamp brings q into [Minimum, Maximum] and down to a multiple of
// StepMultiple, never below Minimum.
func (l Limits) Clamp(q int) int {
	minimum, maximum := l.Minimum, l.Maximum
	if minimum < 1 {
		minimum = 1
	}
	if maximum < minimum {
		maximum = minimum
	}
	if q < minimum {
		q = minimum
	}
	if q > maximum {
		q = maximum
	}
	if step := l.StepMultiple; step > 1 && q%step != 0 {
		stepped := q - q%step
		if stepped >= minimum {
			q = stepped
		}
	}
	return q
}

// Prices are per-unit amounts in minor units.
type Prices struct {
	Price        int64 `json:"price"`
	RegularPrice int64 `json:"regularPrice"`
	SalePrice    int64 `json:"salePrice"`
}

// LineTotals are per-line amounts in minor units.
type LineTotals struct {
	LineSubtotal int64 `json:"lineSubtotal"`
	LineTotal    int64 `json:"lineTotal"`
}

// Attribute is one variation attribute/value pair.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Image is the product image reference shown next to a line.
type Image struct {
	Src       string `json:"src"`
	Thumbnail string `json:"thumbnail"`
	Alt       string `json:"alt"`
}

// Product describes what a line refers to.
type Product struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	SKU              string      `json:"sku"`
	Permalink        string      `json:"permalink"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"shortDescription"`
	Images           []Image     `json:"images"`
	Attributes       []Attribute `json:"attributes"`
}

// LineItem is a derived cart line. It is produced by Normalize and never edited
// by hand.
type LineItem struct {
	Key      string         `json:"key"`
	Quantity int            `json:"quantity"`
	Limits   Limits         `json:"limits"`
	Prices   Prices         `json:"prices"`
	Totals   LineTotals     `json:"totals"`
	Currency money.Currency `json:"currency"`
	Product  Product        `json:"product"`

	OnSale             bool   `json:"onSale"`
	IsVariation        bool   `json:"isVariation"`
	DisplayDescription string `json:"displayDescription"`
	Image              *Image `json:"image,omitempty"`
	Discount           int64  `json:"discount"`
	TotalDiscount      int64  `json:"totalDiscount"`

	FormattedPrice          string `json:"formattedPrice"`
	FormattedRegularPrice   string `json:"formattedRegularPrice"`
	FormattedSalePrice      string `json:"formattedSalePrice"`
	FormattedLineSubtotal   string `json:"formattedLineSubtotal"`
	FormattedLineTotal      string `json:"formattedLineTotal"`
	FormattedDiscountAmount string `json:"formattedDiscountAmount"`
	FormattedTotalDiscount  string `json:"formattedTotalDiscount"`
}

// Find returns the line with key, or false.
func (s *Snapshot) Find(key string) (LineItem, bool) {
	if s == nil {
		return LineItem{}, false
	}
	for _, item := range s.Items {
		if item.Key == key {
			return item, true
		}
	}
	return LineItem{}, false
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	dup := *s
	if s.Items != nil {
		dup.Items = make([]LineItem, len(s.Items))
		for i, item := range s.Items {
			dup.Items[i] = item.clone()
		}
	}
	return &dup
}

func (l LineItem) clone() LineItem {
	if l.Image != nil {
		img := *l.Image
		l.Image = &img
	}
	if l.Product.Images != nil {
		l.Product.Images = append([]Image(nil), l.Product.Images...)
	}
	if l.Product.Attributes != nil {
		l.Product.Attributes = append([]Attribute(nil), l.Product.Attributes...)
	}
	return l
}
