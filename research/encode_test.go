package research

import (
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	t.Run("plain object", func(t *testing.T) {
		plan, err := decodeJSON[Plan](`{"strategy": "s", "steps": [{"id": "step-1", "goal": "g"}]}`)
		if err != nil {
			t.Fatalf("decodeJSON: %v", err)
		}
		if plan.Strategy != "s" || len(plan.Steps) != 1 {
			t.Errorf("decoded %+v", plan)
		}
	})

	t.Run("fenced object", func(t *testing.T) {
		raw := "```json\n{\"verdict\": \"revise\", \"issues\": [\"x\"]}\n```"
		review, err := decodeJSON[Review](raw)
		if err != nil {
			t.Fatalf("decodeJSON: %v", err)
		}
		if review.Verdict != "revise" || len(review.Issues) != 1 {
			t.Errorf("decoded %+v", review)
		}
	})

	t.Run("object buried in prose", func(t *testing.T) {
		raw := `Sure! Here is the review you asked for: {"verdict": "approve"} Hope that helps.`
		review, err := decodeJSON[Review](raw)
		if err != nil {
			t.Fatalf("decodeJSON: %v", err)
		}
		if review.Verdict != "approve" {
			t.Errorf("verdict = %q", review.Verdict)
		}
	})

	t.Run("no object at all", func(t *testing.T) {
		if _, err := decodeJSON[Review]("the draft looks good"); err == nil {
			t.Fatal("decodeJSON accepted prose")
		}
	})
}

func TestSanitizeJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "fence with language", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "padded", in: "  {\"a\": 1}\n", want: `{"a": 1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitizeJSON(tc.in); got != tc.want {
				t.Errorf("sanitizeJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
	if got := sanitizeJSON("```json\n{\"a\": 1}\n```"); strings.Contains(got, "```") {
		t.Errorf("fence survived: %q", got)
	}
}
