package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/3leaps/reqbound/internal/model"
)

const DefaultAPIBase = "https://api.github.com"

const releasesPerPage = 100

func TokenFromEnv() string {
	if tok := strings.TrimSpace(os.Getenv("REQBOUND_GITHUB_TOKEN")); tok != "" {
		return tok
	}
	return strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
}

func UserAgent(version string) string {
	return fmt.Sprintf("reqbound/%s", version)
}

// Client reads release metadata from the GitHub REST API.
type Client struct {
	http *resty.Client
}

// NewClient returns a client for apiBase (DefaultAPIBase when empty). The token,
// if any, is only sent when apiBase is a github.com host.
func NewClient(apiBase, userAgent, token string, timeout time.Duration) *Client {
	return newClient(apiBase, userAgent, token, false, timeout)
}

// NewTrustedClient is NewClient for a base URL the operator chose outside the
// repository, such as an environment override. The token is sent to any host.
func NewTrustedClient(apiBase, userAgent, token string, timeout time.Duration) *Client {
	return newClient(apiBase, userAgent, token, true, timeout)
}

func newClient(apiBase, userAgent, token string, trusted bool, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if base == "" {
		base = DefaultAPIBase
	}
	c := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/vnd.github+json")
	if token != "" && (trusted || IsGitHubHost(base)) {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// IsGitHubHost reports whether rawURL is an https URL on github.com or one of
// its subdomains.
func IsGitHubHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "github.com" || strings.HasSuffix(host, ".github.com")
}

// ListReleases returns the most recent page of releases for repo ("owner/name").
func (c *Client) ListReleases(ctx context.Context, repo string) ([]model.Release, error) {
	if strings.Count(repo, "/") != 1 || strings.HasPrefix(repo, "/") || strings.HasSuffix(repo, "/") {
		return nil, fmt.Errorf("invalid repo %q: want owner/name", repo)
	}

	var releases []model.Release
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("per_page", fmt.Sprint(releasesPerPage)).
		SetResult(&releases).
		Get("/repos/" + repo + "/releases")
	if err != nil {
		return nil, fmt.Errorf("fetching releases for %s: %w", repo, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("repo %s not found", repo)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("API request failed %d: %s", res.StatusCode(), strings.TrimSpace(res.String()))
	}
	return releases, nil
}
