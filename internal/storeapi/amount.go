package storeapi

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is an integer minor-unit value. The Store API sends money as strings
// ("1000"); numbers are accepted too. Unusable input leaves Value at zero and
// sets Malformed instead of failing the whole decode.
type Amount struct {
	Value     int64
	Present   bool
	Malformed bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	a.Present = true

	text := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			a.Malformed = true
			return nil
		}
		text = strings.TrimSpace(s)
		if text == "" {
			a.Present = false
			return nil
		}
	}

	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		a.Value = v
		return nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && inInt64Range(f) {
		a.Value = int64(f)
		return nil
	}
	a.Malformed = true
	return nil
}

// inInt64Range rejects NaN, infinities and values int64 cannot hold.
func inInt64Range(f float64) bool {
	return !math.IsNaN(f) && f >= math.MinInt64 && f < math.MaxInt64
}

// MarshalJSON implements json.Marshaler using the Store API string form.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Present {
		return []byte("null"), nil
	}
	return json.Marshal(strconv.FormatInt(a.Value, 10))
}
