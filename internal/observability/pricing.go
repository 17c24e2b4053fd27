package observability

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pricing.yaml
var defaultPricingYAML []byte

// ModelPrice is one pricing entry. Speech models set PerMinute; language
// models set the per-million token prices.
type ModelPrice struct {
	Match            string  `yaml:"match"`
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
	PerMinute        float64 `yaml:"per_minute"`
}

type Pricing struct {
	Models []ModelPrice `yaml:"models"`
}

// DefaultPricing returns the embedded price table.
func DefaultPricing() *Pricing {
	p, err := ParsePricing(defaultPricingYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded pricing table is invalid: %v", err))
	}
	return p
}

func ParsePricing(raw []byte) (*Pricing, error) {
	var p Pricing
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse pricing: %w", err)
	}
	for i, m := range p.Models {
		if strings.TrimSpace(m.Match) == "" {
			return nil, fmt.Errorf("pricing entry %d has no match", i)
		}
		if m.InputPerMillion < 0 || m.OutputPerMillion < 0 || m.PerMinute < 0 {
			return nil, fmt.Errorf("pricing entry %q has a negative price", m.Match)
		}
	}
	return &p, nil
}

// LoadPricing reads a YAML price table from path, or returns the embedded
// default when path is empty.
func LoadPricing(path string) (*Pricing, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPricing(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}
	return ParsePricing(raw)
}

// Lookup returns the first entry whose Match is a substring of name.
func (p *Pricing) Lookup(name string) (ModelPrice, bool) {
	if p == nil {
		return ModelPrice{}, false
	}
	lower := strings.ToLower(name)
	for _, m := range p.Models {
		if strings.Contains(lower, strings.ToLower(m.Match)) {
			return m, true
		}
	}
	return ModelPrice{}, false
}

// Usage is what a single tool call consumed.
type Usage struct {
	InputTokens     int
	OutputTokens    int
	InputChars      int
	OutputChars     int
	DurationSeconds float64
}

// Cost prices one tool call. Token counts reported by the provider win;
// otherwise tokens are estimated at four characters each. Speech entries
// are charged per minute of audio, estimated from input length when the
// duration is unknown.
func (p *Pricing) Cost(toolName string, u Usage) float64 {
	m, ok := p.Lookup(toolName)
	if !ok {
		return 0
	}
	if m.PerMinute > 0 {
		minutes := u.DurationSeconds / 60
		if minutes <= 0 {
			minutes = math.Max(float64(u.InputChars)/150/60, 0.1)
		}
		return m.PerMinute * minutes
	}
	in, out := float64(u.InputTokens), float64(u.OutputTokens)
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		in, out = float64(u.InputChars)/4, float64(u.OutputChars)/4
	}
	return in/1e6*m.InputPerMillion + out/1e6*m.OutputPerMillion
}
