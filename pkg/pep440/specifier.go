package pep440

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	gopep440 "github.com/aquasecurity/go-pep440-version"
)

var (
	// ErrInvalidSpecifier is returned when a clause has no recognizable operator.
	ErrInvalidSpecifier = errors.New("invalid specifier")
	// ErrUnsupportedOperator is returned by Contains for operators it does not evaluate.
	ErrUnsupportedOperator = errors.New("unsupported specifier operator")
)

// Operator is a PEP 440 comparison operator.
type Operator string

const (
	OpCompatible   Operator = "~="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpArbitrary    Operator = "==="
)

// Longest operators first so "<=" is not read as "<".
var specifierPattern = regexp.MustCompile(`^\s*(===|~=|==|!=|<=|>=|<|>)\s*(\S+)\s*$`)

// Specifier is one clause of a version constraint, such as "<3" or ">=1.2".
type Specifier struct {
	Operator Operator
	Version  string // as written, without surrounding whitespace
}

// ParseSpecifier parses a single clause.
func ParseSpecifier(s string) (Specifier, error) {
	m := specifierPattern.FindStringSubmatch(s)
	if m == nil {
		return Specifier{}, fmt.Errorf("%w: %q", ErrInvalidSpecifier, s)
	}
	return Specifier{Operator: Operator(m[1]), Version: m[2]}, nil
}

// String renders the clause without inner whitespace, e.g. "<3".
func (s Specifier) String() string {
	return string(s.Operator) + s.Version
}

// IsUpperBound reports whether s caps the allowed maximum version.
func (s Specifier) IsUpperBound() bool {
	return s.Operator == OpLess || s.Operator == OpLessEqual
}

// Contains reports whether v satisfies s. Pre-releases are rejected unless
// prereleases is set or the specifier itself names a pre-release.
func (s Specifier) Contains(v Version, prereleases bool) (bool, error) {
	switch s.Operator {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpEqual, OpNotEqual:
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, s.Operator)
	}
	if strings.HasSuffix(s.Version, ".*") {
		return false, fmt.Errorf("%w: wildcard %s", ErrUnsupportedOperator, s)
	}
	sv, err := Parse(s.Version)
	if err != nil {
		return false, fmt.Errorf("specifier %s: %w", s, err)
	}

	allow := prereleases || sv.IsPrerelease()
	if v.IsPrerelease() && !allow {
		return false, nil
	}
	check, err := gopep440.NewSpecifiers(s.String(), gopep440.WithPreRelease(allow))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrInvalidSpecifier, s, err)
	}
	return check.Check(v.v), nil
}

// SpecifierSet is a comma-separated list of clauses, all of which must hold.
type SpecifierSet []Specifier

// ParseSpecifierSet parses "a,b,c". An empty or blank string yields an empty set.
func ParseSpecifierSet(s string) (SpecifierSet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var set SpecifierSet
	for _, part := range strings.Split(s, ",") {
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

// String joins the clauses with commas and no spaces.
func (ss SpecifierSet) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// Contains reports whether v satisfies every clause in ss.
func (ss SpecifierSet) Contains(v Version, prereleases bool) (bool, error) {
	for _, s := range ss {
		ok, err := s.Contains(v, prereleases)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
