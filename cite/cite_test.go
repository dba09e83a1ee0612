package cite

import (
	"strings"
	"testing"
)

var fullSource = Source{
	Title:   "Usability heuristics revisited",
	URL:     "https://example.org/paper",
	Authors: []string{"J. Nielsen", "D. Norman"},
	Year:    2019,
	Venue:   "CHI",
}

func TestFormatAPA(t *testing.T) {
	got := Format(fullSource, StyleAPA)
	want := "J. Nielsen & D. Norman (2019). Usability heuristics revisited. CHI. https://example.org/paper"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatAPANoYear(t *testing.T) {
	s := fullSource
	s.Year = 0
	got := Format(s, StyleAPA)
	if !strings.HasPrefix(got, "J. Nielsen & D. Norman (n.d.).") {
		t.Errorf("missing n.d. marker: %q", got)
	}
}

func TestFormatAPAThreeAuthors(t *testing.T) {
	s := fullSource
	s.Authors = []string{"A", "B", "C"}
	got := Format(s, StyleAPA)
	if !strings.HasPrefix(got, "A, B, & C (2019).") {
		t.Errorf("unexpected author join: %q", got)
	}
}

func TestFormatIEEE(t *testing.T) {
	got := Format(fullSource, StyleIEEE)
	want := `J. Nielsen, D. Norman, "Usability heuristics revisited," CHI, 2019. [Online]. Available: https://example.org/paper`
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatPlain(t *testing.T) {
	got := Format(fullSource, StylePlain)
	want := "Usability heuristics revisited (2019) - J. Nielsen, D. Norman - CHI - https://example.org/paper"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatWebResultWithoutMetadata(t *testing.T) {
	s := Source{Title: "Ten usability heuristics", URL: "https://example.org/heuristics"}

	for _, style := range []Style{StyleAPA, StyleIEEE, StylePlain} {
		got := Format(s, style)
		if !strings.Contains(got, "Ten usability heuristics") || !strings.Contains(got, "https://example.org/heuristics") {
			t.Errorf("%s: %q lost title or url", style, got)
		}
		if strings.Contains(got, "()") || strings.Contains(got, "(0)") {
			t.Errorf("%s: %q renders empty metadata", style, got)
		}
	}
}

func TestFormatEmptyTitle(t *testing.T) {
	got := Format(Source{URL: "https://example.org"}, StylePlain)
	if !strings.HasPrefix(got, "Untitled") {
		t.Errorf("empty title not defaulted: %q", got)
	}
}

func TestFormatList(t *testing.T) {
	sources := []Source{
		{Title: "First"},
		{Title: "Second"},
	}
	got := FormatList(sources, StylePlain)
	if len(got) != 2 {
		t.Fatalf("got %d citations, want 2", len(got))
	}
	if !strings.HasPrefix(got[0], "[1] First") || !strings.HasPrefix(got[1], "[2] Second") {
		t.Errorf("numbering wrong: %v", got)
	}
}

func TestParseStyle(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Style
	}{
		{in: "", want: StylePlain},
		{in: "APA", want: StyleAPA},
		{in: " ieee ", want: StyleIEEE},
		{in: "plain", want: StylePlain},
	} {
		got, err := ParseStyle(tc.in)
		if err != nil {
			t.Errorf("ParseStyle(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStyle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ParseStyle("chicago"); err == nil {
		t.Error("expected error for unknown style")
	}
}
