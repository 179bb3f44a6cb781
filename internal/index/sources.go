package index

import (
	"context"

	"github.com/3leaps/reqbound/internal/host/github"
	"github.com/3leaps/reqbound/internal/host/pypi"
	"github.com/3leaps/reqbound/internal/model"
)

// PyPI lists releases from the PyPI JSON API.
type PyPI struct {
	Client *pypi.Client
}

func (s *PyPI) Name() string { return KindPyPI }

// Versions returns one candidate per release key. A release is yanked only
// when it has files and all of them are yanked.
func (s *PyPI) Versions(ctx context.Context, pkg string) ([]model.Candidate, error) {
	project, err := s.Client.Project(ctx, pkg)
	if err != nil {
		return nil, err
	}
	cands := make([]model.Candidate, 0, len(project.Releases))
	for version, files := range project.Releases {
		cands = append(cands, model.Candidate{Version: version, Yanked: allYanked(files)})
	}
	return cands, nil
}

func allYanked(files []model.DistFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !f.Yanked {
			return false
		}
	}
	return true
}

// GitHub lists release tags of a repository. The package name is ignored;
// Repo names where the package is released.
type GitHub struct {
	Client *github.Client
	Repo   string
}

func (s *GitHub) Name() string { return KindGitHub }

// Versions skips drafts and carries the release's pre-release flag.
func (s *GitHub) Versions(ctx context.Context, _ string) ([]model.Candidate, error) {
	releases, err := s.Client.ListReleases(ctx, s.Repo)
	if err != nil {
		return nil, err
	}
	cands := make([]model.Candidate, 0, len(releases))
	for _, r := range releases {
		if r.Draft {
			continue
		}
		cands = append(cands, model.Candidate{Version: r.TagName, Prerelease: r.Prerelease})
	}
	return cands, nil
}
