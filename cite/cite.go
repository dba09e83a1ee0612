// Package cite renders evidence metadata as citation strings in a handful of
// styles. Sources are routinely missing authors, years or venues; every style
// degrades gracefully instead of printing empty brackets.
package cite

import (
	"fmt"
	"strings"
)

// Style selects a citation format.
type Style string

const (
	StyleAPA   Style = "apa"
	StyleIEEE  Style = "ieee"
	StylePlain Style = "plain"
)

// ParseStyle normalizes a style name; empty means plain.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return StylePlain, nil
	case StyleAPA:
		return StyleAPA, nil
	case StyleIEEE:
		return StyleIEEE, nil
	case StylePlain:
		return StylePlain, nil
	default:
		return "", fmt.Errorf("unknown citation style %q (want apa, ieee or plain)", s)
	}
}

// Source is the metadata a citation is built from.
type Source struct {
	Title   string
	URL     string
	Authors []string
	Year    int
	Venue   string
}

// Format renders one source in the given style.
func Format(s Source, style Style) string {
	if s.Title == "" {
		s.Title = "Untitled"
	}
	switch style {
	case StyleAPA:
		return formatAPA(s)
	case StyleIEEE:
		return formatIEEE(s)
	default:
		return formatPlain(s)
	}
}

// FormatList renders sources in pool order with 1-based bracket numbers, the
// same numbers the answer text cites.
func FormatList(sources []Source, style Style) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = fmt.Sprintf("[%d] %s", i+1, Format(s, style))
	}
	return out
}

func formatAPA(s Source) string {
	var b strings.Builder
	if len(s.Authors) > 0 {
		b.WriteString(joinAmpersand(s.Authors))
		if s.Year > 0 {
			fmt.Fprintf(&b, " (%d)", s.Year)
		} else {
			b.WriteString(" (n.d.)")
		}
		b.WriteString(". ")
	} else if s.Year > 0 {
		fmt.Fprintf(&b, "(%d). ", s.Year)
	}
	b.WriteString(ensurePeriod(s.Title))
	if s.Venue != "" {
		b.WriteString(" " + ensurePeriod(s.Venue))
	}
	if s.URL != "" {
		b.WriteString(" " + s.URL)
	}
	return b.String()
}

func formatIEEE(s Source) string {
	var b strings.Builder
	if len(s.Authors) > 0 {
		b.WriteString(strings.Join(s.Authors, ", "))
		b.WriteString(", ")
	}
	title := strings.TrimSuffix(s.Title, ".")
	var tail string
	if s.Venue != "" {
		tail = " " + s.Venue
	}
	if s.Year > 0 {
		if tail != "" {
			tail += ","
		}
		tail += fmt.Sprintf(" %d", s.Year)
	}
	if tail != "" {
		fmt.Fprintf(&b, "%q%s.", title+",", tail)
	} else {
		fmt.Fprintf(&b, "%q.", title)
	}
	if s.URL != "" {
		b.WriteString(" [Online]. Available: " + s.URL)
	}
	return b.String()
}

func formatPlain(s Source) string {
	head := s.Title
	if s.Year > 0 {
		head = fmt.Sprintf("%s (%d)", head, s.Year)
	}
	parts := []string{head}
	if len(s.Authors) > 0 {
		parts = append(parts, strings.Join(s.Authors, ", "))
	}
	if s.Venue != "" {
		parts = append(parts, s.Venue)
	}
	if s.URL != "" {
		parts = append(parts, s.URL)
	}
	return strings.Join(parts, " - ")
}

// joinAmpersand joins names APA style: "A", "A & B", "A, B, & C".
func joinAmpersand(authors []string) string {
	switch len(authors) {
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " & " + authors[1]
	default:
		return strings.Join(authors[:len(authors)-1], ", ") + ", & " + authors[len(authors)-1]
	}
}

func ensurePeriod(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}
