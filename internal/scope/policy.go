// Package scope decides whether a question falls outside the temporal and
// topical coverage of the indexed filings before any retrieval is attempted.
package scope

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidPolicy is returned when a policy table fails validation.
var ErrInvalidPolicy = errors.New("invalid scope policy")

// Entity is a company covered by the corpus.
type Entity struct {
	Name string `toml:"name"`
	// Keywords identify the entity in a question (lowercase substring match).
	Keywords []string `toml:"keywords"`
	// CutoffYear is the last year covered by the entity's filing.
	CutoffYear int `toml:"cutoff_year"`
}

// RoleYearRule rejects questions naming Role together with any of Years,
// whether or not an entity is named.
type RoleYearRule struct {
	Role  string `toml:"role"`
	Years []int  `toml:"years"`
}

// Policy is the data that drives the gate.
type Policy struct {
	Entities      []Entity       `toml:"entities"`
	ForecastTerms []string       `toml:"forecast_terms"`
	TriviaTerms   []string       `toml:"trivia_terms"`
	RoleYearRules []RoleYearRule `toml:"role_year_rules"`
}

// DefaultPolicy returns the policy for the Apple FY2024 and Tesla FY2023 10-K corpus.
func DefaultPolicy() Policy {
	return Policy{
		Entities: []Entity{
			{Name: "Apple", Keywords: []string{"apple"}, CutoffYear: 2024},
			{Name: "Tesla", Keywords: []string{"tesla", "tsla"}, CutoffYear: 2023},
		},
		ForecastTerms: []string{"forecast", "predict", "prediction", "price target", "stock price"},
		TriviaTerms:   []string{"painted", "what color", "headquarters painted", "hq painted", "wall color"},
		RoleYearRules: []RoleYearRule{
			{Role: "cfo", Years: []int{2025}},
		},
	}
}

// LoadPolicy reads a TOML policy file.
//
// Example:
//
//	forecast_terms = ["forecast", "price target"]
//	trivia_terms = ["what color"]
//
//	[[entities]]
//	name = "Apple"
//	keywords = ["apple"]
//	cutoff_year = 2024
//
//	[[role_year_rules]]
//	role = "cfo"
//	years = [2025]
func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read scope policy %s: %w", path, err)
	}

	var p Policy
	if err := toml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("failed to parse scope policy %s: %w", path, err)
	}
	p.normalize()

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks that the policy can drive a gate.
func (p Policy) Validate() error {
	if len(p.Entities) == 0 {
		return fmt.Errorf("%w: at least one entity is required", ErrInvalidPolicy)
	}
	for i, e := range p.Entities {
		if e.Name == "" {
			return fmt.Errorf("%w: entity %d has no name", ErrInvalidPolicy, i)
		}
		if len(e.Keywords) == 0 {
			return fmt.Errorf("%w: entity %s has no keywords", ErrInvalidPolicy, e.Name)
		}
		if e.CutoffYear < 2000 || e.CutoffYear > 2099 {
			return fmt.Errorf("%w: entity %s cutoff year %d outside 2000-2099", ErrInvalidPolicy, e.Name, e.CutoffYear)
		}
	}
	for _, r := range p.RoleYearRules {
		if r.Role == "" || len(r.Years) == 0 {
			return fmt.Errorf("%w: role/year rule needs a role and at least one year", ErrInvalidPolicy)
		}
	}
	return nil
}

// maxCutoff is the limit applied when no entity is named.
func (p Policy) maxCutoff() int {
	limit := 0
	for _, e := range p.Entities {
		if e.CutoffYear > limit {
			limit = e.CutoffYear
		}
	}
	return limit
}

func (p *Policy) normalize() {
	for i := range p.Entities {
		p.Entities[i].Keywords = lowerAll(p.Entities[i].Keywords)
	}
	p.ForecastTerms = lowerAll(p.ForecastTerms)
	p.TriviaTerms = lowerAll(p.TriviaTerms)
	for i := range p.RoleYearRules {
		p.RoleYearRules[i].Role = strings.ToLower(strings.TrimSpace(p.RoleYearRules[i].Role))
	}
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
