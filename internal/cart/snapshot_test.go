package cart

import "testing"

func TestLimitsClamp(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		in     int
		want   int
	}{
		{"below minimum", Limits{Minimum: 1, Maximum: 9999}, 0, 1},
		{"negative", Limits{Minimum: 1, Maximum: 9999}, -3, 1},
		{"within", Limits{Minimum: 1, Maximum: 9999}, 42, 42},
		{"above maximum", Limits{Minimum: 1, Maximum: 9999}, 10000, 9999},
		{"zero minimum floors at one", Limits{Minimum: 0, Maximum: 5}, 0, 1},
		{"inverted bounds", Limits{Minimum: 3, Maximum: 1}, 9, 3},
		{"step rounds down", Limits{Minimum: 2, Maximum: 20, StepMultiple: 4}, 11, 8},
		{"step keeps minimum", Limits{Minimum: 3, Maximum: 20, StepMultiple: 4}, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limits.Clamp(tt.in); got != tt.want {
				t.Fatalf("Clamp(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	orig := &Snapshot{
		Items: []LineItem{{
			Key:     "a",
			Image:   &Image{Src: "x"},
			Product: Product{Attributes: []Attribute{{Name: "Size", Value: "L"}}},
		}},
		ItemCount: 1,
	}
	dup := orig.Clone()
	dup.Items[0].Image.Src = "y"
	dup.Items[0].Product.Attributes[0].Value = "S"
	dup.Items[0].Quantity = 9

	if orig.Items[0].Image.Src != "x" {
		t.Fatalf("image shared between clones")
	}
	if orig.Items[0].Product.Attributes[0].Value != "L" {
		t.Fatalf("attributes shared between clones")
	}
	if orig.Items[0].Quantity != 0 {
		t.Fatalf("items shared between clones")
	}
}

func TestSnapshotFind(t *testing.T) {
	snap := &Snapshot{Items: []LineItem{{Key: "a", Quantity: 1}, {Key: "b", Quantity: 2}}}
	if item, ok := snap.Find("b"); !ok || item.Quantity != 2 {
		t.Fatalf("Find(b) = %+v, %v", item, ok)
	}
	if _, ok := snap.Find("zz"); ok {
		t.Fatalf("Find(zz) should miss")
	}
	var nilSnap *Snapshot
	if _, ok := nilSnap.Find("a"); ok {
		t.Fatalf("nil snapshot should miss")
	}
}
