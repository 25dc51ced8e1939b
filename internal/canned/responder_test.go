package canned

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResponder_SeededPatterns(t *testing.T) {
	r := NewResponder()
	cases := []struct {
		in   string
		want string
	}{
		{
			"what are your hours",
			"We're open Monday through Friday from 9 AM to 6 PM, and Saturday from 10 AM to 4 PM. We're closed on Sundays.",
		},
		{
			"what is your return policy",
			"You can return any item within 30 days of purchase for a full refund, as long as it's in its original condition. Just bring your receipt or order confirmation.",
		},
		{
			"how do I track my order",
			"You can track your order anytime using the tracking link in your confirmation email, or by entering your order number on our website's tracking page.",
		},
	}
	for _, tc := range cases {
		got, ok := r.Match(tc.in)
		if !ok {
			t.Fatalf("expected match for %q", tc.in)
		}
		if got != tc.want {
			t.Fatalf("answer mismatch for %q:\ngot  %q\nwant %q", tc.in, got, tc.want)
		}
		if reply := r.Reply(tc.in); reply != tc.want {
			t.Fatalf("Reply mismatch for %q: got %q", tc.in, reply)
		}
	}
}

func TestResponder_MatchIsCaseInsensitiveAndSubstring(t *testing.T) {
	r := NewResponder()
	for _, in := range []string{
		"What are your hours?",
		"hi, WHAT ARE YOUR HOURS today",
		"Could you tell me how do I track my order please",
	} {
		if _, ok := r.Match(in); !ok {
			t.Fatalf("expected match for %q", in)
		}
	}
}

func TestResponder_FallbackVerbatim(t *testing.T) {
	r := NewResponder()
	for _, in := range []string{
		"do you sell gift cards",
		"",
		"what are your hour",
	} {
		if got := r.Reply(in); got != r.Fallback() {
			t.Fatalf("expected fallback for %q, got %q", in, got)
		}
	}
	want := "I'm sorry, I didn't quite catch that. You can ask me about our hours, our return policy, or how to track an order."
	if r.Fallback() != want {
		t.Fatalf("fallback string mismatch:\ngot  %q\nwant %q", r.Fallback(), want)
	}
}

func TestLoadResponder_FileOverridesRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := `rules:
  - match: "where are you located"
    answer: "We're at 1 Demo Street."
fallback: "Ask me where we are located."
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	r, err := LoadResponder(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, ok := r.Match("Where are you located?"); !ok || got != "We're at 1 Demo Street." {
		t.Fatalf("expected file rule to match, got %q ok=%v", got, ok)
	}
	if _, ok := r.Match("what are your hours"); ok {
		t.Fatalf("expected built-in rules to be replaced")
	}
	if r.Fallback() != "Ask me where we are located." {
		t.Fatalf("expected fallback override, got %q", r.Fallback())
	}
}

func TestLoadResponder_KeepsBuiltinFallbackWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := `rules:
  - match: "ping"
    answer: "pong"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	r, err := LoadResponder(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Fallback() != NewResponder().Fallback() {
		t.Fatalf("expected built-in fallback to survive, got %q", r.Fallback())
	}
}

func TestLoadResponder_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		data string
	}{
		{"empty_rules", "rules: []\n"},
		{"missing_answer", "rules:\n  - match: \"hi\"\n"},
		{"bad_yaml", ":\t not yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.data), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadResponder(path); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
	if _, err := LoadResponder(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
