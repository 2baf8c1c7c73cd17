package money

import "testing"

func TestFormat_Defaults(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		want   string
	}{
		{"zero", 0, "0,00 kr"},
		{"cents only", 5, "0,05 kr"},
		{"simple", 12345, "123,45 kr"},
		{"thousand", 100000, "1 000,00 kr"},
		{"million", 123456789, "1 234 567,89 kr"},
		{"negative", -50, "-0,50 kr"},
		{"negative grouped", -100000, "-1 000,00 kr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Format(tc.amount, "kr"); got != tc.want {
				t.Fatalf("Format(%d) = %q, want %q", tc.amount, got, tc.want)
			}
		})
	}
}

func TestFormat_CustomSeparators(t *testing.T) {
	if got := Format(123456789, "$", ",", "."); got != "1,234,567.89 $" {
		t.Fatalf("Format = %q, want %q", got, "1,234,567.89 $")
	}
	if got := Format(100000, "kr", ""); got != "1000,00 kr" {
		t.Fatalf("Format with empty thousand separator = %q, want %q", got, "1000,00 kr")
	}
}

func TestCurrencyFormat_MinorUnit(t *testing.T) {
	yen := Currency{Symbol: "¥", MinorUnit: 0, ThousandSeparator: ",", DecimalSeparator: "."}
	if got := yen.Format(1500); got != "1,500 ¥" {
		t.Fatalf("yen.Format = %q, want %q", got, "1,500 ¥")
	}

	kr := Currency{Symbol: "kr", MinorUnit: -1}.WithDefaults()
	if got := kr.Format(800); got != "8,00 kr" {
		t.Fatalf("kr.Format = %q, want %q", got, "8,00 kr")
	}

	dinar := Currency{Symbol: "KD", MinorUnit: 3}.WithDefaults()
	if got := dinar.Format(1234567); got != "1 234,567 KD" {
		t.Fatalf("dinar.Format = %q, want %q", got, "1 234,567 KD")
	}
}

func TestGroupDigits(t *testing.T) {
	cases := map[string]string{
		"1":       "1",
		"123":     "123",
		"1234":    "1 234",
		"123456":  "123 456",
		"1234567": "1 234 567",
	}
	for in, want := range cases {
		if got := groupDigits(in, " "); got != want {
			t.Fatalf("groupDigits(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormat_EmptySymbolKeepsSeparatorSpace(t *testing.T) {
	if got := Format(12345, ""); got != "123,45 " {
		t.Fatalf("Format with empty symbol = %q, want %q", got, "123,45 ")
	}
	if got := (Currency{}).WithDefaults().Format(0); got != "0,00 " {
		t.Fatalf("Currency{}.Format(0) = %q, want %q", got, "0,00 ")
	}
}
