package scope

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule names the check that rejected a question.
type Rule string

const (
	RuleNone     Rule = ""
	RuleForecast Rule = "forecast"
	RuleTrivia   Rule = "trivia"
	RuleYear     Rule = "year_beyond_coverage"
	RuleRoleYear Rule = "role_year"
)

var yearRe = regexp.MustCompile(`\b(20\d{2})\b`)

// Verdict is the result of classifying one question.
type Verdict struct {
	OutOfScope bool
	Rule       Rule
	// Term is the matched forecast/trivia term or role.
	Term string
	// Year is the offending year for year-based rules.
	Year int
	// Entity is the resolved entity name, if exactly one was named.
	Entity string
}

// Gate classifies questions against a Policy. A Gate is immutable and safe
// for concurrent use.
type Gate struct {
	policy Policy
}

// NewGate creates a gate for the given policy.
func NewGate(policy Policy) *Gate {
	policy.normalize()
	return &Gate{policy: policy}
}

// Policy returns the policy the gate was built with.
func (g *Gate) Policy() Policy {
	return g.policy
}

// IsOutOfScope reports whether query must be refused without retrieval.
func (g *Gate) IsOutOfScope(query string) bool {
	return g.Classify(query).OutOfScope
}

// Classify evaluates the rules in order and stops at the first match.
func (g *Gate) Classify(query string) Verdict {
	q := strings.ToLower(query)

	if term, ok := containsAny(q, g.policy.ForecastTerms); ok {
		return Verdict{OutOfScope: true, Rule: RuleForecast, Term: term}
	}
	if term, ok := containsAny(q, g.policy.TriviaTerms); ok {
		return Verdict{OutOfScope: true, Rule: RuleTrivia, Term: term}
	}

	years := extractYears(q)
	matched := g.matchEntities(q)

	if len(years) > 0 {
		limit := g.policy.maxCutoff()
		entity := ""
		if len(matched) > 0 {
			// Several named entities: the tightest cutoff applies.
			limit = matched[0].CutoffYear
			for _, e := range matched[1:] {
				if e.CutoffYear < limit {
					limit = e.CutoffYear
				}
			}
			if len(matched) == 1 {
				entity = matched[0].Name
			}
		}
		for _, y := range years {
			if y > limit {
				return Verdict{OutOfScope: true, Rule: RuleYear, Year: y, Entity: entity}
			}
		}
	}

	for _, rule := range g.policy.RoleYearRules {
		if !strings.Contains(q, rule.Role) {
			continue
		}
		for _, y := range years {
			for _, ry := range rule.Years {
				if y == ry {
					return Verdict{OutOfScope: true, Rule: RuleRoleYear, Term: rule.Role, Year: y}
				}
			}
		}
	}

	v := Verdict{}
	if len(matched) == 1 {
		v.Entity = matched[0].Name
	}
	return v
}

func (g *Gate) matchEntities(q string) []Entity {
	var out []Entity
	for _, e := range g.policy.Entities {
		if _, ok := containsAny(q, e.Keywords); ok {
			out = append(out, e)
		}
	}
	return out
}

func containsAny(q string, terms []string) (string, bool) {
	for _, t := range terms {
		if t != "" && strings.Contains(q, t) {
			return t, true
		}
	}
	return "", false
}

func extractYears(q string) []int {
	matches := yearRe.FindAllString(q, -1)
	if len(matches) == 0 {
		return nil
	}
	years := make([]int, 0, len(matches))
	for _, m := range matches {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	return years
}
