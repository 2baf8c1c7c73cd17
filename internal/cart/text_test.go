package cart

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  plain   text ", "plain text"},
		{"<p>One</p><p>Two</p>", "One Two"},
		{"wo<b>r</b>d", "word"},
		{"Fish &amp; chips", "Fish & chips"},
		{"<p>Hi<script>alert(1)</script></p>", "Hi"},
		{"line<br/>break", "line break"},
		{"<ul><li>a</li><li>b</li></ul>", "a b"},
	}
	for _, tt := range tests {
		if got := PlainText(tt.in); got != tt.want {
			t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
