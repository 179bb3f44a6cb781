package pypi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/3leaps/reqbound/internal/model"
)

const DefaultBaseURL = "https://pypi.org"

// ErrUnknownProject is returned when the index has no project by that name.
var ErrUnknownProject = errors.New("unknown project")

// Client reads project metadata from the PyPI JSON API.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json"),
	}
}

// Project fetches /pypi/{name}/json.
func (c *Client) Project(ctx context.Context, name string) (*model.Project, error) {
	var project model.Project
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&project).
		Get("/pypi/" + url.PathEscape(name) + "/json")
	if err != nil {
		return nil, fmt.Errorf("fetching %s metadata: %w", name, err)
	}
	if res.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProject, name)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("index request failed %d: %s", res.StatusCode(), strings.TrimSpace(res.String()))
	}
	if project.Releases == nil {
		return nil, fmt.Errorf("index response for %s has no releases map", name)
	}
	return &project, nil
}
