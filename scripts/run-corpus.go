package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// corpusEntry is one live check: a requirement line and the status reqbound
// should report for it against the real index.
type corpusEntry struct {
	Package      string `json:"package"`
	Requirement  string `json:"requirement"`
	Index        string `json:"index"`
	Repo         string `json:"repo"`
	ExpectStatus string `json:"expectStatus"`
	Tier         string `json:"tier"`
	Note         string `json:"note"`
}

type result struct {
	Package     string `json:"package"`
	Requirement string `json:"requirement"`
	Tier        string `json:"tier"`
	Expected    string `json:"expectedStatus"`
	Got         string `json:"gotStatus"`
	NewBound    string `json:"newBound,omitempty"`
	Status      string `json:"status"`
	Note        string `json:"note,omitempty"`
	Output      string `json:"output,omitempty"`
}

// reqboundResult mirrors the fields of `reqbound --json` the runner checks.
type reqboundResult struct {
	Status   string `json:"status"`
	Latest   string `json:"latest_version"`
	NewBound string `json:"new_bound"`
	Error    string `json:"error"`
}

func main() {
	manifestPath := flag.String("manifest", "testdata/corpus.json", "path to corpus manifest")
	binFlag := flag.String("reqbound-bin", "", "path to reqbound binary to run")
	includeSlow := flag.Bool("include-slow", false, "include slow entries")
	flag.Parse()

	manifest := firstSet(*manifestPath, os.Getenv("CORPUS_MANIFEST"))
	bin := firstSet(*binFlag, os.Getenv("CORPUS_REQBOUND_BIN"), "reqbound")

	entries, err := loadManifest(manifest)
	if err != nil {
		fatalf("load manifest: %v", err)
	}
	if err := validateEntries(entries); err != nil {
		fatalf("manifest validation failed: %v", err)
	}

	workDir, err := os.MkdirTemp("", "reqbound-corpus-")
	if err != nil {
		fatalf("create work dir: %v", err)
	}
	defer os.RemoveAll(workDir) //nolint:errcheck // scratch space

	var results []result
	var failures int

	for i, e := range entries {
		if strings.EqualFold(e.Tier, "slow") && !*includeSlow {
			continue
		}

		res := runEntry(e, filepath.Join(workDir, fmt.Sprintf("requirements-%d.txt", i)), bin)
		results = append(results, res)
		if res.Status != "pass" {
			failures++
		}
	}

	for _, r := range results {
		fmt.Printf("[%s] %s %q tier=%s expected=%s got=%s", strings.ToUpper(r.Status), r.Package, r.Requirement, r.Tier, r.Expected, r.Got)
		if r.NewBound != "" {
			fmt.Printf(" newBound=%s", r.NewBound)
		}
		if r.Note != "" {
			fmt.Printf(" note=%s", r.Note)
		}
		fmt.Println()
		if r.Status != "pass" && strings.TrimSpace(r.Output) != "" {
			fmt.Printf("  output:\n%s\n", r.Output)
		}
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func runEntry(e corpusEntry, depsPath, bin string) result {
	res := result{
		Package:     e.Package,
		Requirement: e.Requirement,
		Tier:        e.Tier,
		Expected:    e.ExpectStatus,
		Status:      "fail",
		Note:        e.Note,
	}
	if err := os.WriteFile(depsPath, []byte(e.Requirement+"\n"), 0o600); err != nil {
		res.Output = err.Error()
		return res
	}

	args := []string{e.Package, "-r", depsPath, "--dry-run", "--json"}
	if e.Index != "" {
		args = append(args, "--index", e.Index)
	}
	if e.Repo != "" {
		args = append(args, "--repo", e.Repo)
	}
	_, stdout, stderr := runCmd(bin, args...)
	res.Output = stderr

	var got reqboundResult
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		res.Output = fmt.Sprintf("%s\ndecode --json output: %v", stderr, err)
		return res
	}
	res.Got = got.Status
	res.NewBound = got.NewBound
	if got.Status == e.ExpectStatus {
		res.Status = "pass"
	}
	return res
}

func runCmd(bin string, args ...string) (int, string, string) {
	cmd := exec.Command(bin, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), stdout.String(), stderr.String()
		}
		return 1, stdout.String(), stderr.String() + err.Error()
	}
	return 0, stdout.String(), stderr.String()
}

func loadManifest(path string) ([]corpusEntry, error) {
	f, err := os.Open(path) // #nosec G304 -- test harness manifest path
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file, close error non-critical

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var entries []corpusEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func validateEntries(entries []corpusEntry) error {
	for i, e := range entries {
		if strings.TrimSpace(e.Package) == "" {
			return fmt.Errorf("entry %d: package is required", i)
		}
		if strings.TrimSpace(e.Requirement) == "" {
			return fmt.Errorf("entry %d: requirement is required", i)
		}
		switch e.ExpectStatus {
		case "up-to-date", "stale", "failure":
		default:
			return fmt.Errorf("entry %d: expectStatus must be up-to-date, stale, or failure", i)
		}
		if e.Index == "github" && strings.TrimSpace(e.Repo) == "" {
			return fmt.Errorf("entry %d: repo is required with index github", i)
		}
		if e.Tier != "fast" && e.Tier != "slow" {
			return fmt.Errorf("entry %d: tier must be fast or slow", i)
		}
	}
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
