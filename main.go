package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/reqbound/internal/check"
	"github.com/3leaps/reqbound/internal/cli"
	"github.com/3leaps/reqbound/internal/config"
	"github.com/3leaps/reqbound/internal/host/github"
	"github.com/3leaps/reqbound/internal/host/pypi"
	"github.com/3leaps/reqbound/internal/index"
	"github.com/3leaps/reqbound/internal/logging"
	"github.com/3leaps/reqbound/internal/status"
	"github.com/3leaps/reqbound/pkg/update"
)

var version = "dev"

//go:embed docs/quickstart.txt
var quickstartDoc string

type options struct {
	requirements string
	statusFile   string
	index        string
	repo         string
	configPath   string
	pre          bool
	dryRun       bool
	jsonOut      bool
	verbose      bool
	version      bool
	extendedHelp bool
}

// jsonResult is the --json document.
type jsonResult struct {
	check.Result
	Error string `json:"error,omitempty"`
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	code := cli.ExitOK

	cmd := &cobra.Command{
		Use:   "reqbound PACKAGE",
		Short: "Raise a package's upper version bound when a new major release is out",
		Long: "reqbound looks up the latest release of PACKAGE, finds its requirement in the\n" +
			"dependency file, and rewrites the upper bound to <(major+1) when the current\n" +
			"bound no longer admits that release.",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.version || opts.extendedHelp {
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one PACKAGE argument, got %d", len(args))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.version:
				fmt.Fprintln(stdout, "reqbound", version)
				return nil
			case opts.extendedHelp:
				fmt.Fprintln(stdout, strings.TrimSpace(quickstartDoc))
				return nil
			}
			code = execute(cmd, args[0], &opts, stdout, stderr)
			return nil
		},
	}
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.requirements, "requirements", "r", "requirements.txt", "dependency file (requirements.txt or pyproject.toml)")
	flags.StringVar(&opts.statusFile, "status", "", "append key=value outcome lines to this file (e.g. $GITHUB_OUTPUT)")
	flags.StringVar(&opts.index, "index", index.KindPyPI, "version index: pypi or github")
	flags.StringVar(&opts.repo, "repo", "", "GitHub repo owner/repo (with --index github)")
	flags.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	flags.BoolVar(&opts.pre, "pre", false, "consider pre-release and dev versions")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "report the change without writing the dependency file")
	flags.BoolVar(&opts.jsonOut, "json", false, "JSON output for CI")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")
	flags.BoolVar(&opts.version, "version", false, "print version")
	flags.BoolVar(&opts.extendedHelp, "helpextended", false, "print quickstart & examples")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fmt.Fprintln(stderr, "run 'reqbound --help' for usage")
		return cli.ExitUsage
	}
	return code
}

// execute resolves configuration, runs the check, and reports the outcome on
// stdout/stderr and in the status file.
func execute(cmd *cobra.Command, pkg string, opts *options, stdout, stderr io.Writer) int {
	logger := logging.New(stderr, opts.verbose)
	defer func() { _ = logger.Sync() }()

	progress := stdout
	if opts.jsonOut {
		progress = stderr
	}

	cfg, err := resolveConfig(cmd, opts)
	res := check.Result{Package: pkg, Decision: update.DecisionFailure, DryRun: opts.dryRun}
	if err == nil {
		res.Index = cfg.Index
		res.DepsFile = cfg.Requirements
		logger.Debug("configuration resolved",
			zap.String("index", cfg.Index),
			zap.String("requirements", cfg.Requirements),
			zap.Bool("prereleases", cfg.Prereleases),
			zap.Duration("timeout", cfg.TimeoutDuration()))

		checker := &check.Checker{Source: newSource(cfg), Out: progress, Logger: logger}
		res, err = checker.Run(context.Background(), check.Request{
			Package:     pkg,
			DepsFile:    cfg.Requirements,
			Prereleases: cfg.Prereleases,
			DryRun:      opts.dryRun,
		})
	}

	if serr := status.Write(opts.statusFile, res.Outcome()); serr != nil {
		logger.Error("recording status failed", zap.String("path", opts.statusFile), zap.Error(serr))
		if err == nil {
			err = serr
			res.Decision = update.DecisionFailure
		}
	}

	if opts.jsonOut {
		out := jsonResult{Result: res}
		if err != nil {
			out.Error = err.Error()
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if jerr := enc.Encode(out); jerr != nil {
			logger.Error("encoding result failed", zap.Error(jerr))
		}
	}

	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return cli.ExitFailure
	}
	return cli.ExitOK
}

// resolveConfig layers defaults, the config file, environment, and flags.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	path, required := config.DefaultPath, false
	if opts.configPath != "" {
		path, required = opts.configPath, true
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("requirements") {
		cfg.Requirements = opts.requirements
	}
	if flags.Changed("index") {
		cfg.Index = opts.index
	}
	if flags.Changed("repo") {
		cfg.GitHub.Repo = opts.repo
	}
	if flags.Changed("pre") {
		cfg.Prereleases = opts.pre
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSource(cfg *config.Config) index.Source {
	ua := github.UserAgent(version)
	timeout := cfg.TimeoutDuration()
	if cfg.Index == index.KindGitHub {
		newClient := github.NewClient
		if cfg.GitHub.APIBaseFromEnv {
			newClient = github.NewTrustedClient
		}
		return &index.GitHub{
			Client: newClient(cfg.GitHub.APIBase, ua, github.TokenFromEnv(), timeout),
			Repo:   cfg.GitHub.Repo,
		}
	}
	return &index.PyPI{Client: pypi.NewClient(cfg.PyPI.BaseURL, ua, timeout)}
}
