// Package config loads the optional .reqbound.yaml file and applies
// environment overrides on top of the built-in defaults.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/reqbound/internal/host/github"
	"github.com/3leaps/reqbound/internal/host/pypi"
	"github.com/3leaps/reqbound/internal/index"
)

// DefaultPath is read when no --config flag is given. A missing default file
// is not an error.
const DefaultPath = ".reqbound.yaml"

const (
	EnvPyPIBase = "REQBOUND_PYPI_BASE"
	EnvAPIBase  = "REQBOUND_API_BASE"
	EnvIndex    = "REQBOUND_INDEX"
)

const defaultTimeout = 30 * time.Second

// ErrInvalidConfig wraps every schema and semantic validation failure.
var ErrInvalidConfig = errors.New("invalid config")

//go:embed schema.json
var schemaJSON []byte

type PyPIConfig struct {
	BaseURL string `yaml:"base_url"`
}

type GitHubConfig struct {
	APIBase string `yaml:"api_base"`
	Repo    string `yaml:"repo"`

	// APIBaseFromEnv is set when APIBase came from REQBOUND_API_BASE. Only
	// then may a token be sent to a host other than github.com.
	APIBaseFromEnv bool `yaml:"-"`
}

type Config struct {
	Index        string       `yaml:"index"`
	PyPI         PyPIConfig   `yaml:"pypi"`
	GitHub       GitHubConfig `yaml:"github"`
	Prereleases  bool         `yaml:"prereleases"`
	Timeout      string       `yaml:"timeout"`
	Requirements string       `yaml:"requirements"`
}

func Default() *Config {
	return &Config{
		Index:        index.KindPyPI,
		PyPI:         PyPIConfig{BaseURL: pypi.DefaultBaseURL},
		GitHub:       GitHubConfig{APIBase: github.DefaultAPIBase},
		Timeout:      defaultTimeout.String(),
		Requirements: "requirements.txt",
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. When required is false a missing file yields the
// defaults.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	// #nosec G304 -- path is the user-selected config file
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil
	}
	if err := validateSchema(doc); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from REQBOUND_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvPyPIBase); v != "" {
		c.PyPI.BaseURL = v
	}
	if v := os.Getenv(EnvAPIBase); v != "" {
		c.GitHub.APIBase = v
		c.GitHub.APIBaseFromEnv = true
	}
	if v := os.Getenv(EnvIndex); v != "" {
		c.Index = v
	}
}

// TimeoutDuration returns the HTTP timeout, falling back to the default when
// Timeout does not parse.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// Validate checks the merged configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Index {
	case index.KindPyPI:
		problems = append(problems, checkBaseURL("pypi.base_url", c.PyPI.BaseURL)...)
	case index.KindGitHub:
		problems = append(problems, checkBaseURL("github.api_base", c.GitHub.APIBase)...)
		if strings.TrimSpace(c.GitHub.Repo) == "" {
			problems = append(problems, "github.repo: missing (required with index github)")
		} else if parts := strings.Split(c.GitHub.Repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			problems = append(problems, fmt.Sprintf("github.repo: expected owner/repo (got %q)", c.GitHub.Repo))
		}
	default:
		problems = append(problems, fmt.Sprintf("index: unsupported %q (supported: %s, %s)", c.Index, index.KindPyPI, index.KindGitHub))
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		problems = append(problems, fmt.Sprintf("timeout: must be a positive duration (got %q)", c.Timeout))
	}
	if strings.TrimSpace(c.Requirements) == "" {
		problems = append(problems, "requirements: missing")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidConfig, strings.Join(problems, "\n- "))
	}
	return nil
}

func checkBaseURL(field, raw string) []string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []string{fmt.Sprintf("%s: expected http(s) URL (got %q)", field, raw)}
	}
	return nil
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse embedded config schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("reqbound.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("add embedded config schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("reqbound.schema.json")
	})
	return schema, schemaErr
}

// validateSchema checks a decoded YAML document against the embedded schema.
// The document goes through JSON so numbers and maps take the shapes the
// validator expects.
func validateSchema(doc any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
