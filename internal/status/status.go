// Package status appends key=value outcome lines to a CI status file such as
// $GITHUB_OUTPUT.
package status

import (
	"fmt"
	"os"
	"strings"

	"github.com/3leaps/reqbound/pkg/update"
)

const (
	KeyStatus         = "status"
	KeyOldRequirement = "old-requirement"
	KeyNewRequirement = "new-requirement"
	KeyLatestVersion  = "latest-version"
)

// Pair is one key=value line.
type Pair struct {
	Key   string
	Value string
}

// Outcome is what a run reports to the status file.
type Outcome struct {
	Decision update.Decision
	// Latest is empty when the latest version was never determined.
	Latest   string
	OldBound string
	NewBound string
}

// Pairs renders the outcome in file order: status first, then the bounds on
// stale, then latest-version when known.
func (o Outcome) Pairs() []Pair {
	pairs := []Pair{{KeyStatus, string(o.Decision)}}
	if o.Decision == update.DecisionStale {
		pairs = append(pairs,
			Pair{KeyOldRequirement, o.OldBound},
			Pair{KeyNewRequirement, o.NewBound},
		)
	}
	if o.Latest != "" {
		pairs = append(pairs, Pair{KeyLatestVersion, o.Latest})
	}
	return pairs
}

// Write appends the outcome to path. An empty path is a no-op.
func Write(path string, o Outcome) error {
	if path == "" {
		return nil
	}
	return Append(path, o.Pairs()...)
}

// Append adds one line per pair to path, creating it if needed. Existing
// content is never rewritten.
func Append(path string, pairs ...Pair) error {
	var b strings.Builder
	for _, p := range pairs {
		if strings.ContainsAny(p.Key, "=\n") || strings.Contains(p.Value, "\n") {
			return fmt.Errorf("status %q: key or value not representable on one line", p.Key)
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
		b.WriteByte('\n')
	}

	// #nosec G304 -- path is the user-selected status file
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open status file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write status file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close status file: %w", err)
	}
	return nil
}
