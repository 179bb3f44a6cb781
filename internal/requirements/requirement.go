package requirements

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/3leaps/reqbound/pkg/pep440"
)

// ErrInvalidRequirement is returned when a string is not a PEP 508 requirement.
var ErrInvalidRequirement = errors.New("invalid requirement")

var (
	namePattern      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	canonicalPattern = regexp.MustCompile(`[-_.]+`)
)

// CanonicalName returns the PEP 503 normalized form of a project name.
func CanonicalName(name string) string {
	return strings.ToLower(canonicalPattern.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// Requirement is one parsed PEP 508 dependency specification.
type Requirement struct {
	Name       string
	Extras     []string
	Specifiers pep440.SpecifierSet
	URL        string
	Marker     string

	text string
	// specStart and specEnd delimit the specifier text inside text. They are
	// equal when the requirement has no specifiers.
	specStart, specEnd int
}

// ParseRequirement parses s, e.g. `requests[socks] >=2.8, <3 ; python_version>"3.7"`.
func ParseRequirement(s string) (Requirement, error) {
	r := Requirement{text: s}
	i := skipSpace(s, 0)

	loc := namePattern.FindStringIndex(s[i:])
	if loc == nil {
		return Requirement{}, fmt.Errorf("%w: %q: missing project name", ErrInvalidRequirement, s)
	}
	r.Name = s[i : i+loc[1]]
	i += loc[1]
	nameEnd := i

	j := skipSpace(s, i)
	if j < len(s) && s[j] == '[' {
		end := strings.IndexByte(s[j:], ']')
		if end < 0 {
			return Requirement{}, fmt.Errorf("%w: %q: unterminated extras", ErrInvalidRequirement, s)
		}
		for _, extra := range strings.Split(s[j+1:j+end], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				r.Extras = append(r.Extras, extra)
			}
		}
		i = j + end + 1
		nameEnd = i
		j = skipSpace(s, i)
	}

	if j < len(s) && s[j] == '@' {
		rest := s[j+1:]
		if k := strings.Index(rest, " ;"); k >= 0 {
			r.Marker = strings.TrimSpace(rest[k+2:])
			rest = rest[:k]
		}
		r.URL = strings.TrimSpace(rest)
		if r.URL == "" {
			return Requirement{}, fmt.Errorf("%w: %q: empty URL", ErrInvalidRequirement, s)
		}
		r.specStart, r.specEnd = nameEnd, nameEnd
		return r, nil
	}

	end := len(s)
	if k := strings.IndexByte(s[j:], ';'); k >= 0 {
		end = j + k
		r.Marker = strings.TrimSpace(s[end+1:])
		if r.Marker == "" {
			return Requirement{}, fmt.Errorf("%w: %q: empty marker", ErrInvalidRequirement, s)
		}
	}

	start, stop := j, end
	for stop > start && isSpace(s[stop-1]) {
		stop--
	}
	paren := stop > start && s[start] == '('
	if paren {
		if s[stop-1] != ')' {
			return Requirement{}, fmt.Errorf("%w: %q: unbalanced parentheses", ErrInvalidRequirement, s)
		}
		start = skipSpace(s, start+1)
		stop--
		for stop > start && isSpace(s[stop-1]) {
			stop--
		}
	}

	if start == stop {
		if !paren {
			start, stop = nameEnd, nameEnd
		}
		r.specStart, r.specEnd = start, stop
		return r, nil
	}
	specs, err := pep440.ParseSpecifierSet(s[start:stop])
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q: %v", ErrInvalidRequirement, s, err)
	}
	r.Specifiers = specs
	r.specStart, r.specEnd = start, stop
	return r, nil
}

// CanonicalName returns the normalized project name of r.
func (r Requirement) CanonicalName() string { return CanonicalName(r.Name) }

// Text returns the requirement exactly as it appears in its source.
func (r Requirement) Text() string { return r.text }

// String renders r in normalized form: name, extras, specifiers, marker.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	if r.URL != "" {
		b.WriteString(" @ " + r.URL)
		if r.Marker != "" {
			b.WriteString(" ")
		}
	} else {
		b.WriteString(r.Specifiers.String())
	}
	if r.Marker != "" {
		b.WriteString("; " + r.Marker)
	}
	return b.String()
}

// withSpecifiers returns the source text with only the specifier span replaced.
func (r Requirement) withSpecifiers(set pep440.SpecifierSet) string {
	return r.text[:r.specStart] + set.String() + r.text[r.specEnd:]
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }
