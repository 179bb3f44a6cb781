package update

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/3leaps/reqbound/pkg/pep440"
)

type Decision string

const (
	DecisionUpToDate Decision = "up-to-date" // Bound covers the latest version
	DecisionStale    Decision = "stale"      // Bound must be raised
	DecisionFailure  Decision = "failure"    // No decision could be made
)

var (
	// ErrNoUpperBound means the requirement has no "<" or "<=" clause to update.
	ErrNoUpperBound = errors.New("no upper version bound")
	// ErrSelfCheck means the computed bound does not contain the latest version.
	ErrSelfCheck = errors.New("new bound does not contain latest version")
)

// Plan is the outcome of Decide.
type Plan struct {
	Decision Decision
	// OldBound is the requirement's upper bound clauses, comma-joined.
	OldBound string
	// NewBound is the replacement upper bound; empty unless stale.
	NewBound string
	// Specifiers is the full replacement set; nil unless stale.
	Specifiers pep440.SpecifierSet
	// Message is a one-line summary of the decision for diagnostics.
	Message string
}

// SplitUpperBounds partitions specs into upper-bound clauses and the rest,
// preserving order within each group.
func SplitUpperBounds(specs pep440.SpecifierSet) (upper, other pep440.SpecifierSet) {
	for _, s := range specs {
		if s.IsUpperBound() {
			upper = append(upper, s)
		} else {
			other = append(other, s)
		}
	}
	return upper, other
}

// NextMajorBound returns "<N+1" where N is latest's major release segment.
func NextMajorBound(latest pep440.Version) pep440.Specifier {
	return pep440.Specifier{
		Operator: pep440.OpLess,
		Version:  strconv.Itoa(latest.Major() + 1),
	}
}

// Decide determines whether specs still admit latest.
//
// prereleases controls whether a pre-release latest version can be admitted by
// an upper bound; callers pass the same policy used to select latest.
func Decide(specs pep440.SpecifierSet, latest pep440.Version, prereleases bool) (Plan, error) {
	upper, other := SplitUpperBounds(specs)
	if len(upper) == 0 {
		return Plan{Decision: DecisionFailure}, ErrNoUpperBound
	}
	plan := Plan{OldBound: upper.String()}

	covered, err := upper.Contains(latest, prereleases)
	if err != nil {
		plan.Decision = DecisionFailure
		return plan, fmt.Errorf("evaluate upper bound %s: %w", plan.OldBound, err)
	}
	if covered {
		plan.Decision = DecisionUpToDate
		plan.Message = fmt.Sprintf("Latest version %s is within upper bound %s, nothing to do", latest, plan.OldBound)
		return plan, nil
	}

	bound := NextMajorBound(latest)
	plan.NewBound = bound.String()
	plan.Specifiers = append(append(pep440.SpecifierSet{}, other...), bound)

	ok, err := bound.Contains(latest, prereleases)
	if err != nil || !ok {
		plan.Decision = DecisionFailure
		if err != nil {
			return plan, fmt.Errorf("self-check %s: %w", plan.NewBound, err)
		}
		return plan, fmt.Errorf("new specifier set %s does not contain %s: %w", plan.Specifiers, latest, ErrSelfCheck)
	}

	plan.Decision = DecisionStale
	plan.Message = fmt.Sprintf("Raising upper bound %s -> %s to include %s", plan.OldBound, plan.NewBound, latest)
	return plan, nil
}

// DescribeDecision returns a human-readable dry-run status.
func DescribeDecision(d Decision) string {
	switch d {
	case DecisionUpToDate:
		return "Up to date (latest version within upper bound)"
	case DecisionStale:
		return "Stale (upper bound would be raised)"
	case DecisionFailure:
		return "Failure (no decision could be made)"
	default:
		return string(d)
	}
}
