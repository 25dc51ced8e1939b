package canned

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule pairs a keyword pattern with its fixed answer. A transcript matches
// when it contains the pattern, case-insensitively.
type Rule struct {
	Match  string `yaml:"match"`
	Answer string `yaml:"answer"`
}

// Responder answers keyword-matched questions instantly with fixed strings,
// bypassing the generation API, and falls back to a guidance string otherwise.
type Responder struct {
	rules    []Rule
	fallback string
}

// The three seeded demo questions and their answers.
var builtinRules = []Rule{
	{
		Match:  "what are your hours",
		Answer: "We're open Monday through Friday from 9 AM to 6 PM, and Saturday from 10 AM to 4 PM. We're closed on Sundays.",
	},
	{
		Match:  "what is your return policy",
		Answer: "You can return any item within 30 days of purchase for a full refund, as long as it's in its original condition. Just bring your receipt or order confirmation.",
	},
	{
		Match:  "how do i track my order",
		Answer: "You can track your order anytime using the tracking link in your confirmation email, or by entering your order number on our website's tracking page.",
	},
}

const builtinFallback = "I'm sorry, I didn't quite catch that. You can ask me about our hours, our return policy, or how to track an order."

// NewResponder returns a responder seeded with the built-in rules.
func NewResponder() *Responder {
	return &Responder{rules: builtinRules, fallback: builtinFallback}
}

type rulesFile struct {
	Rules    []Rule `yaml:"rules"`
	Fallback string `yaml:"fallback"`
}

// LoadResponder reads a YAML rules file replacing the built-in rules. An empty
// path returns the built-in responder. The fallback string is only replaced
// when the file sets one.
func LoadResponder(path string) (*Responder, error) {
	if path == "" {
		return NewResponder(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read canned rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse canned rules file: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("canned rules file %s contains no rules", path)
	}
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Match) == "" || r.Answer == "" {
			return nil, fmt.Errorf("canned rule %d is missing match or answer", i)
		}
	}

	fallback := f.Fallback
	if fallback == "" {
		fallback = builtinFallback
	}
	return &Responder{rules: f.Rules, fallback: fallback}, nil
}

// Match returns the fixed answer for the first rule whose pattern the text
// contains, case-insensitively.
func (r *Responder) Match(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, rule := range r.rules {
		if strings.Contains(lowered, strings.ToLower(rule.Match)) {
			return rule.Answer, true
		}
	}
	return "", false
}

// Reply returns the matched answer or the fallback guidance string.
func (r *Responder) Reply(text string) string {
	if answer, ok := r.Match(text); ok {
		return answer
	}
	return r.fallback
}

// Fallback returns the guidance string used for unmatched input.
func (r *Responder) Fallback() string {
	return r.fallback
}
