package tokenizer

import (
	"strings"
	"testing"
)

// Counter tests would download encoding data, so only the offline estimate
// is covered here.

func TestApprox(t *testing.T) {
	for _, tc := range []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "abc", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: strings.Repeat("a", 400), want: 100},
	} {
		if got := Approx(tc.text); got != tc.want {
			t.Errorf("Approx(%d chars) = %d, want %d", len(tc.text), got, tc.want)
		}
	}
}

func TestApproxTruncate(t *testing.T) {
	text := strings.Repeat("evidence ", 100)

	if got := ApproxTruncate(text, 10000); got != text {
		t.Error("text within budget was altered")
	}

	got := ApproxTruncate(text, 10)
	if len([]rune(got)) != 40 {
		t.Errorf("truncated to %d runes, want 40", len([]rune(got)))
	}
	if !strings.HasPrefix(text, got) {
		t.Error("truncation is not a prefix")
	}

	if got := ApproxTruncate(text, 0); got != "" {
		t.Errorf("zero budget returned %q", got)
	}
}
