package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

var (
	ErrNoCompletionPhrases = errors.New("rules: completion phrase list is empty")
	ErrOverlappingTables   = errors.New("rules: moderation tables must be disjoint")
)

// Moderation holds the three keyword tables in priority order.
type Moderation struct {
	Severe    []string `yaml:"severe" json:"severe"`
	Violation []string `yaml:"violation" json:"violation"`
	Warning   []string `yaml:"warning" json:"warning"`
}

// RuleSet is the data that drives both classification and completion detection.
type RuleSet struct {
	Moderation        Moderation `yaml:"moderation" json:"moderation"`
	CompletionPhrases []string   `yaml:"completion_phrases" json:"completion_phrases"`
}

// Parse decodes a YAML rule file and normalizes every term.
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("rules: decode: %w", err)
	}

	rs.Moderation.Severe = normalize(rs.Moderation.Severe)
	rs.Moderation.Violation = normalize(rs.Moderation.Violation)
	rs.Moderation.Warning = normalize(rs.Moderation.Warning)
	rs.CompletionPhrases = normalize(rs.CompletionPhrases)

	if err := rs.validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadFile reads rules from path. An empty path yields the embedded defaults.
func LoadFile(path string) (*RuleSet, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the rule set compiled into the binary.
func Default() (*RuleSet, error) {
	return Parse(defaultRules)
}

func (rs *RuleSet) validate() error {
	if len(rs.CompletionPhrases) == 0 {
		return ErrNoCompletionPhrases
	}

	seen := make(map[string]string)
	tables := []struct {
		name  string
		terms []string
	}{
		{"severe", rs.Moderation.Severe},
		{"violation", rs.Moderation.Violation},
		{"warning", rs.Moderation.Warning},
	}
	for _, t := range tables {
		for _, term := range t.terms {
			if other, ok := seen[term]; ok && other != t.name {
				return fmt.Errorf("%w: %q is in both %s and %s", ErrOverlappingTables, term, other, t.name)
			}
			seen[term] = t.name
		}
	}
	return nil
}

// normalize lower-cases and trims terms, dropping blanks and duplicates while keeping order.
func normalize(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Provider hands out the current rule set. Readers never lock; Set swaps atomically.
type Provider struct {
	current atomic.Pointer[RuleSet]
}

func NewProvider(rs *RuleSet) *Provider {
	p := &Provider{}
	p.current.Store(rs)
	return p
}

func (p *Provider) Current() *RuleSet {
	return p.current.Load()
}

func (p *Provider) Set(rs *RuleSet) {
	p.current.Store(rs)
}
