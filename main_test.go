package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/reqbound/internal/cli"
	"github.com/3leaps/reqbound/internal/config"
	"github.com/3leaps/reqbound/internal/model"
)

type fakePyPI struct {
	projects map[string]map[string][]model.DistFile
	status   int
	agent    string
}

func (f *fakePyPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.agent = r.Header.Get("User-Agent")
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
	releases, ok := f.projects[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(model.Project{Info: model.ProjectInfo{Name: name}, Releases: releases})
}

func wheels(versions ...string) map[string][]model.DistFile {
	out := map[string][]model.DistFile{}
	for _, v := range versions {
		out[v] = []model.DistFile{{Filename: "pkg-" + v + "-py3-none-any.whl", PackageType: "bdist_wheel"}}
	}
	return out
}

type harness struct {
	t      *testing.T
	pypi   *fakePyPI
	deps   string
	status string
}

func newHarness(t *testing.T, deps string, releases map[string][]model.DistFile) *harness {
	t.Helper()
	fake := &fakePyPI{projects: map[string]map[string][]model.DistFile{"requests": releases}}
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	t.Setenv(config.EnvPyPIBase, ts.URL)
	t.Setenv(config.EnvAPIBase, "")
	t.Setenv(config.EnvIndex, "")

	dir := t.TempDir()
	h := &harness{
		t:      t,
		pypi:   fake,
		deps:   filepath.Join(dir, "requirements.txt"),
		status: filepath.Join(dir, "github_output"),
	}
	require.NoError(t, os.WriteFile(h.deps, []byte(deps), 0o644))
	return h
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"-r", h.deps, "--status", h.status}
	code := cli.Run(append(base, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *harness) read(path string) string {
	h.t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(h.t, err)
	return string(data)
}

func TestRunUpToDate(t *testing.T) {
	h := newHarness(t, "flask<4\nrequests>=2.28,<3\n", wheels("2.30.0", "2.31.0", "3.0.0rc1"))

	code, stdout, stderr := h.run("requests")
	require.Equal(t, cli.ExitOK, code, stderr)

	assert.Contains(t, stdout, "Updating requirement for requests...")
	assert.Contains(t, stdout, "Latest PyPI version is within upper bound, nothing to do")
	assert.Equal(t, "flask<4\nrequests>=2.28,<3\n", h.read(h.deps))
	assert.Equal(t, "status=up-to-date\nlatest-version=2.31.0\n", h.read(h.status))
	assert.Equal(t, "reqbound/dev", h.pypi.agent)
}

func TestRunStaleThenUpToDate(t *testing.T) {
	h := newHarness(t, "# pinned\nrequests>=2.28,<3  # http\nflask<4\n", wheels("2.31.0", "3.1.0"))

	code, stdout, stderr := h.run("requests")
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Contains(t, stdout, "  New requirement for requests is requests>=2.28,<4")
	assert.Contains(t, stdout, "Updated requirement to include latest PyPI version")
	assert.Equal(t, "# pinned\nrequests>=2.28,<4  # http\nflask<4\n", h.read(h.deps))

	code, _, stderr = h.run("requests")
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Equal(t, "status=stale\nold-requirement=<3\nnew-requirement=<4\nlatest-version=3.1.0\n"+
		"status=up-to-date\nlatest-version=3.1.0\n", h.read(h.status))
}

func TestRunSkipsYankedAndPrereleases(t *testing.T) {
	releases := wheels("2.31.0", "4.0.0b1")
	releases["3.0.0"] = []model.DistFile{{Filename: "requests-3.0.0.tar.gz", Yanked: true}}
	h := newHarness(t, "requests<3\n", releases)

	code, _, stderr := h.run("requests")
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Equal(t, "requests<3\n", h.read(h.deps))

	code, _, stderr = h.run("requests", "--pre")
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Equal(t, "requests<5\n", h.read(h.deps))
}

func TestRunDryRun(t *testing.T) {
	h := newHarness(t, "requests<3\n", wheels("3.1.0"))

	code, stdout, stderr := h.run("requests", "--dry-run")
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Contains(t, stdout, "Dry run:")
	assert.Equal(t, "requests<3\n", h.read(h.deps))
	assert.Contains(t, h.read(h.status), "status=stale\n")
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name       string
		deps       string
		releases   map[string][]model.DistFile
		pkg        string
		httpStatus int
		wantErr    string
		wantStatus string
	}{
		{
			name:       "requirement missing",
			deps:       "flask<3\n",
			releases:   wheels("3.1.0"),
			pkg:        "requests",
			wantErr:    "error: could not find requirement for requests",
			wantStatus: "status=failure\nlatest-version=3.1.0\n",
		},
		{
			name:       "no upper bound",
			deps:       "requests>=2\n",
			releases:   wheels("3.1.0"),
			pkg:        "requests",
			wantErr:    "error: could not find upper version bound for requests",
			wantStatus: "status=failure\nlatest-version=3.1.0\n",
		},
		{
			name:       "self-check",
			deps:       "requests<2\n",
			releases:   wheels("1!2.0"),
			pkg:        "requests",
			wantErr:    "does not contain 1!2.0",
			wantStatus: "status=failure\nlatest-version=1!2.0\n",
		},
		{
			name:       "unknown package",
			deps:       "requests<2\n",
			releases:   wheels("2.0"),
			pkg:        "nosuchpkg",
			wantErr:    "unknown project",
			wantStatus: "status=failure\n",
		},
		{
			name:       "index error",
			deps:       "requests<2\n",
			releases:   wheels("2.0"),
			pkg:        "requests",
			httpStatus: http.StatusServiceUnavailable,
			wantErr:    "index request failed 503",
			wantStatus: "status=failure\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.deps, tt.releases)
			h.pypi.status = tt.httpStatus

			code, _, stderr := h.run(tt.pkg)
			assert.Equal(t, cli.ExitFailure, code)
			assert.Contains(t, stderr, tt.wantErr)
			assert.Equal(t, tt.wantStatus, h.read(h.status))
			assert.Equal(t, tt.deps, h.read(h.deps))
		})
	}
}

func TestRunJSON(t *testing.T) {
	h := newHarness(t, "requests<3\n", wheels("3.1.0"))

	code, stdout, stderr := h.run("requests", "--json")
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Contains(t, stderr, "Updating requirement for requests...")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "requests", got["package"])
	assert.Equal(t, "pypi", got["index"])
	assert.Equal(t, "stale", got["status"])
	assert.Equal(t, "3.1.0", got["latest_version"])
	assert.Equal(t, "<4", got["new_bound"])
	assert.Equal(t, true, got["written"])
	assert.NotContains(t, got, "error")
}

func TestRunJSONFailure(t *testing.T) {
	h := newHarness(t, "requests>=2\n", wheels("3.1.0"))

	code, stdout, _ := h.run("requests", "--json")
	require.Equal(t, cli.ExitFailure, code)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "failure", got["status"])
	assert.Contains(t, got["error"], "no upper version bound")
}

func TestRunGitHubIndex(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/tool/releases" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]model.Release{
			{TagName: "v2.5.0", Prerelease: true},
			{TagName: "v2.4.0"},
			{TagName: "v3.0.0", Draft: true},
			{TagName: "nightly"},
		})
	}))
	t.Cleanup(ts.Close)

	h := newHarness(t, "tool>=2,<2.3\n", nil)
	t.Setenv(config.EnvAPIBase, ts.URL)
	t.Setenv("REQBOUND_GITHUB_TOKEN", "s3cret")

	code, stdout, stderr := h.run("tool", "--index", "github", "--repo", "acme/tool")
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Contains(t, stdout, "Latest GitHub version is 2.4.0")
	assert.Equal(t, "tool>=2,<3\n", h.read(h.deps))
	assert.Equal(t, "Bearer s3cret", auth)
}

func TestRunGitHubConfigBaseGetsNoToken(t *testing.T) {
	var auth []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]model.Release{{TagName: "v2.4.0"}})
	}))
	t.Cleanup(ts.Close)

	h := newHarness(t, "tool>=2,<3\n", nil)
	t.Setenv("REQBOUND_GITHUB_TOKEN", "s3cret")
	cfgPath := filepath.Join(t.TempDir(), "reqbound.yaml")
	cfg := "index: github\ngithub:\n  api_base: " + ts.URL + "\n  repo: acme/tool\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	code, _, stderr := h.run("tool", "--config", cfgPath)
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Equal(t, []string{""}, auth)
}

func TestRunConfigFile(t *testing.T) {
	h := newHarness(t, "requests<3\n", wheels("3.1.0"))
	cfgPath := filepath.Join(t.TempDir(), "reqbound.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("prereleases: true\ntimeout: 10s\n"), 0o644))

	code, _, stderr := h.run("requests", "--config", cfgPath)
	require.Equal(t, cli.ExitOK, code, stderr)
	assert.Equal(t, "requests<4\n", h.read(h.deps))
}

func TestRunInvalidConfig(t *testing.T) {
	h := newHarness(t, "requests<3\n", wheels("3.1.0"))
	cfgPath := filepath.Join(t.TempDir(), "reqbound.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("index: conda\n"), 0o644))

	code, _, stderr := h.run("requests", "--config", cfgPath)
	assert.Equal(t, cli.ExitFailure, code)
	assert.Contains(t, stderr, "error: load config")
	assert.Equal(t, "status=failure\n", h.read(h.status))
}

func TestRunGitHubRequiresRepo(t *testing.T) {
	h := newHarness(t, "requests<3\n", wheels("3.1.0"))

	code, _, stderr := h.run("requests", "--index", "github")
	assert.Equal(t, cli.ExitFailure, code)
	assert.Contains(t, stderr, "github.repo: missing")
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, cli.ExitUsage, cli.Run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "expected exactly one PACKAGE argument")

	stderr.Reset()
	assert.Equal(t, cli.ExitUsage, cli.Run([]string{"requests", "--bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown flag: --bogus")
}

func TestVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, cli.ExitOK, cli.Run([]string{"--version"}, &stdout, &stderr))
	assert.Equal(t, "reqbound dev\n", stdout.String())
}

func TestHelpExtended(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, cli.ExitOK, cli.Run([]string{"--helpextended"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "--status \"$GITHUB_OUTPUT\"")
}
