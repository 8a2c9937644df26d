package moderation

import (
	"errors"
	"strings"

	"gigflow/internal/rules"
)

var ErrUnknownSeverity = errors.New("moderation: unknown severity")

const maxFlaggedRunes = 80

// Confidence is reported for telemetry only and carries no predictive meaning.
var confidence = map[Severity]float64{
	Safe:      0.95,
	Warning:   0.70,
	Violation: 0.85,
	Severe:    0.95,
}

// ActionFor is the fixed severity to action mapping for non-call content.
func ActionFor(s Severity) Action {
	switch s {
	case Warning:
		return ActionWarn
	case Violation:
		return ActionBlock
	case Severe:
		return ActionReport
	default:
		return ActionAllow
	}
}

// Classifier maps text to a Verdict using the keyword tables of the current rule set.
// It holds no mutable state of its own and is safe for concurrent use.
type Classifier struct {
	rules *rules.Provider
}

func NewClassifier(p *rules.Provider) *Classifier {
	return &Classifier{rules: p}
}

// Classify evaluates the severe, violation and warning tables in that order and
// returns the first table with a substring hit.
func (c *Classifier) Classify(text string) Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return safeVerdict()
	}
	lowered := strings.ToLower(trimmed)

	m := c.rules.Current().Moderation
	tables := []struct {
		severity Severity
		terms    []string
	}{
		{Severe, m.Severe},
		{Violation, m.Violation},
		{Warning, m.Warning},
	}

	for _, t := range tables {
		matched := match(lowered, t.terms)
		if len(matched) == 0 {
			continue
		}
		return Verdict{
			Severity:       t.severity,
			Categories:     matched,
			Confidence:     confidence[t.severity],
			FlaggedContent: excerpt(trimmed),
			Action:         ActionFor(t.severity),
		}
	}
	return safeVerdict()
}

// ClassifyCall is Classify for live call transcripts, where severe content ends the call.
func (c *Classifier) ClassifyCall(text string) Verdict {
	v := c.Classify(text)
	if v.Severity == Severe {
		v.Action = ActionEndCall
	}
	return v
}

func safeVerdict() Verdict {
	return Verdict{
		Severity:   Safe,
		Categories: []string{},
		Confidence: confidence[Safe],
		Action:     ActionAllow,
	}
}

func match(text string, terms []string) []string {
	var out []string
	for _, term := range terms {
		if strings.Contains(text, term) {
			out = append(out, term)
		}
	}
	return out
}

func excerpt(text string) string {
	r := []rune(text)
	if len(r) <= maxFlaggedRunes {
		return text
	}
	return string(r[:maxFlaggedRunes]) + "…"
}
