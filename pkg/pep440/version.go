package pep440

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gopep440 "github.com/aquasecurity/go-pep440-version"
)

// ErrInvalidVersion is returned when a string is not a PEP 440 version.
var ErrInvalidVersion = errors.New("invalid version")

// normalizedPattern reads the leading fields of a normalized version string,
// e.g. "1!2.0rc1.post2.dev3+local".
var normalizedPattern = regexp.MustCompile(`^(?:([0-9]+)!)?([0-9]+)(?:\.[0-9]+)*((?:a|b|rc)[0-9]+)?(?:\.post[0-9]+)?(\.dev[0-9]+)?(?:\+.*)?$`)

// Version is a parsed PEP 440 version. Ordering follows Python's packaging.
type Version struct {
	v     gopep440.Version
	epoch int
	major int
	pre   bool
}

// Parse parses s as a PEP 440 version. Surrounding whitespace and a leading
// "v" are accepted.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "v"), "V")
	if raw == "" {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	lv, err := gopep440.Parse(strings.ToLower(raw))
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
	}
	m := normalizedPattern.FindStringSubmatch(lv.String())
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q: unexpected normal form %q", ErrInvalidVersion, s, lv.String())
	}
	v := Version{v: lv, pre: m[3] != "" || m[4] != ""}
	if m[1] != "" {
		if v.epoch, err = strconv.Atoi(m[1]); err != nil {
			return Version{}, fmt.Errorf("%w: epoch %q: %v", ErrInvalidVersion, m[1], err)
		}
	}
	if v.major, err = strconv.Atoi(m[2]); err != nil {
		return Version{}, fmt.Errorf("%w: release %q: %v", ErrInvalidVersion, m[2], err)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the normalized form of v.
func (v Version) String() string {
	return v.v.String()
}

// Epoch returns the epoch, 0 when absent.
func (v Version) Epoch() int { return v.epoch }

// Major returns the first release segment.
func (v Version) Major() int { return v.major }

// IsPrerelease reports whether v is a pre-release or a dev release.
func (v Version) IsPrerelease() bool { return v.pre }

// Equal reports whether v and o sort equal.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Compare returns -1 if v < o, 0 if v == o, 1 if v > o.
func (v Version) Compare(o Version) int {
	switch {
	case v.v.LessThan(o.v):
		return -1
	case v.v.GreaterThan(o.v):
		return 1
	}
	return 0
}
