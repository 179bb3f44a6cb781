// Package check runs one bound check for a single package: fetch the latest
// release, locate the requirement, decide, and rewrite when stale.
package check

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/3leaps/reqbound/internal/index"
	"github.com/3leaps/reqbound/internal/requirements"
	"github.com/3leaps/reqbound/internal/status"
	"github.com/3leaps/reqbound/pkg/update"
)

type Request struct {
	Package     string
	DepsFile    string
	Prereleases bool
	DryRun      bool
}

// Result describes what a run found and did. Fields after Decision are
// filled in as far as the run got.
type Result struct {
	Package        string          `json:"package"`
	Index          string          `json:"index"`
	DepsFile       string          `json:"deps_file"`
	Decision       update.Decision `json:"status"`
	Latest         string          `json:"latest_version,omitempty"`
	OldRequirement string          `json:"old_requirement,omitempty"`
	NewRequirement string          `json:"new_requirement,omitempty"`
	OldBound       string          `json:"old_bound,omitempty"`
	NewBound       string          `json:"new_bound,omitempty"`
	Written        bool            `json:"written"`
	DryRun         bool            `json:"dry_run,omitempty"`
}

// Outcome converts the result to its status file lines.
func (r Result) Outcome() status.Outcome {
	return status.Outcome{
		Decision: r.Decision,
		Latest:   r.Latest,
		OldBound: r.OldBound,
		NewBound: r.NewBound,
	}
}

type Checker struct {
	Source index.Source
	// Out receives the progress lines.
	Out    io.Writer
	Logger *zap.Logger
}

// Run performs the check. On error the returned Result has Decision failure
// and carries whatever was learned before the failure.
func (c *Checker) Run(ctx context.Context, req Request) (Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := c.Out
	if out == nil {
		out = io.Discard
	}

	res := Result{
		Package:  req.Package,
		Index:    c.Source.Name(),
		DepsFile: req.DepsFile,
		Decision: update.DecisionFailure,
		DryRun:   req.DryRun,
	}

	fmt.Fprintf(out, "Updating requirement for %s...\n", req.Package)

	latest, err := index.LatestFrom(ctx, c.Source, req.Package, index.Policy{Prereleases: req.Prereleases}, logger)
	if err != nil {
		return res, fmt.Errorf("fetch latest version of %s: %w", req.Package, err)
	}
	res.Latest = latest.String()
	fmt.Fprintf(out, "  Latest %s version is %s\n", displayName(res.Index), res.Latest)

	file, err := requirements.Load(req.DepsFile)
	if err != nil {
		return res, err
	}
	entry, err := file.Find(req.Package)
	if err != nil {
		if errors.Is(err, requirements.ErrNotFound) {
			return res, fmt.Errorf("could not find requirement for %s in %s: %w", req.Package, req.DepsFile, err)
		}
		return res, err
	}
	res.OldRequirement = entry.Requirement.String()
	fmt.Fprintf(out, "  Requirement is %s\n", res.OldRequirement)
	logger.Debug("located requirement",
		zap.String("file", req.DepsFile),
		zap.Int("line", entry.Line),
		zap.String("group", entry.Group))

	plan, err := update.Decide(entry.Requirement.Specifiers, latest, req.Prereleases)
	res.OldBound = plan.OldBound
	if err != nil {
		if errors.Is(err, update.ErrNoUpperBound) {
			return res, fmt.Errorf("could not find upper version bound for %s in requirement %s: %w", req.Package, res.OldRequirement, err)
		}
		return res, err
	}
	fmt.Fprintf(out, "  Upper version bound is %s\n", plan.OldBound)
	logger.Debug(plan.Message, zap.String("decision", update.DescribeDecision(plan.Decision)))

	if plan.Decision == update.DecisionUpToDate {
		res.Decision = plan.Decision
		fmt.Fprintf(out, "Latest %s version is within upper bound, nothing to do\n", displayName(res.Index))
		return res, nil
	}

	if err := file.SetSpecifiers(entry, plan.Specifiers); err != nil {
		return res, err
	}
	res.NewBound = plan.NewBound
	res.NewRequirement = entry.Requirement.String()
	fmt.Fprintf(out, "  New requirement for %s is %s\n", req.Package, res.NewRequirement)

	if req.DryRun {
		res.Decision = plan.Decision
		fmt.Fprintf(out, "Dry run: %s, %s left unchanged\n", update.DescribeDecision(plan.Decision), req.DepsFile)
		return res, nil
	}
	if err := file.Save(); err != nil {
		return res, err
	}
	res.Decision = plan.Decision
	res.Written = true
	fmt.Fprintf(out, "Updated requirement to include latest %s version\n", displayName(res.Index))
	return res, nil
}

func displayName(kind string) string {
	switch kind {
	case index.KindPyPI:
		return "PyPI"
	case index.KindGitHub:
		return "GitHub"
	default:
		return kind
	}
}
