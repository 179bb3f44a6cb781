package pypi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requestsPayload = `{
  "info": {"name": "requests", "version": "2.32.3"},
  "releases": {
    "2.31.0": [{"filename": "requests-2.31.0.tar.gz", "packagetype": "sdist", "yanked": false}],
    "2.32.0": [{"filename": "requests-2.32.0.tar.gz", "packagetype": "sdist", "yanked": true, "yanked_reason": "bad"}],
    "2.32.3": [{"filename": "requests-2.32.3-py3-none-any.whl", "packagetype": "bdist_wheel", "yanked": false}]
  }
}`

func TestClientProject(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/requests/json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(requestsPayload))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/", "reqbound/test", 5*time.Second)
	project, err := c.Project(context.Background(), "requests")
	require.NoError(t, err)

	assert.Equal(t, "reqbound/test", gotUA)
	assert.Equal(t, "2.32.3", project.Info.Version)
	require.Len(t, project.Releases, 3)
	assert.True(t, project.Releases["2.32.0"][0].Yanked)
	assert.Equal(t, "bad", project.Releases["2.32.0"][0].YankedReason)
	assert.False(t, project.Releases["2.31.0"][0].Yanked)
}

func TestClientProjectNotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	c := NewClient(ts.URL, "reqbound/test", 5*time.Second)
	_, err := c.Project(context.Background(), "no-such-package")
	require.ErrorIs(t, err, ErrUnknownProject)
}

func TestClientProjectServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "reqbound/test", 5*time.Second)
	_, err := c.Project(context.Background(), "requests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestClientProjectMissingReleases(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"info": {"name": "x", "version": "1.0"}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "reqbound/test", 5*time.Second)
	_, err := c.Project(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no releases")
}
