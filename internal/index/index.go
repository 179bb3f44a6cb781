package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/3leaps/reqbound/internal/model"
	"github.com/3leaps/reqbound/pkg/pep440"
)

// ErrNoReleases means no published version survived the selection policy.
var ErrNoReleases = errors.New("no eligible releases")

const (
	KindPyPI   = "pypi"
	KindGitHub = "github"
)

// Source lists the published versions of a package.
type Source interface {
	Name() string
	Versions(ctx context.Context, pkg string) ([]model.Candidate, error)
}

// Policy controls which candidates Latest may select.
type Policy struct {
	// Prereleases admits pre-release and dev versions, and releases the index
	// flags as pre-releases.
	Prereleases bool
}

// Latest returns the highest eligible version among cands. Yanked and
// unparseable candidates are skipped. A candidate is a pre-release when its
// version says so or the index flagged it.
func Latest(cands []model.Candidate, policy Policy, logger *zap.Logger) (pep440.Version, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		best  pep440.Version
		found bool
	)
	for _, c := range cands {
		if c.Yanked {
			logger.Debug("skipping yanked release", zap.String("version", c.Version))
			continue
		}
		v, err := pep440.Parse(c.Version)
		if err != nil {
			logger.Debug("skipping unparseable version", zap.String("version", c.Version), zap.Error(err))
			continue
		}
		if (v.IsPrerelease() || c.Prerelease) && !policy.Prereleases {
			logger.Debug("skipping pre-release", zap.String("version", c.Version))
			continue
		}
		if !found || best.Less(v) {
			best, found = v, true
		}
	}
	if !found {
		return pep440.Version{}, fmt.Errorf("%w (%d published)", ErrNoReleases, len(cands))
	}
	return best, nil
}

// LatestFrom fetches candidates for pkg from src and selects the latest.
func LatestFrom(ctx context.Context, src Source, pkg string, policy Policy, logger *zap.Logger) (pep440.Version, error) {
	cands, err := src.Versions(ctx, pkg)
	if err != nil {
		return pep440.Version{}, err
	}
	v, err := Latest(cands, policy, logger)
	if err != nil {
		return pep440.Version{}, fmt.Errorf("%s %s: %w", src.Name(), pkg, err)
	}
	return v, nil
}
