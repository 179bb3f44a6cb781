package model

// Release is the subset of the GitHub release payload that reqbound uses.
type Release struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// Project is the subset of the PyPI JSON API project payload that reqbound uses.
// Schema: https://docs.pypi.org/api/json/
type Project struct {
	Info     ProjectInfo           `json:"info"`
	Releases map[string][]DistFile `json:"releases"`
}

// ProjectInfo describes the project's most recent release as PyPI reports it.
type ProjectInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DistFile is one uploaded distribution of a release.
type DistFile struct {
	Filename     string `json:"filename"`
	PackageType  string `json:"packagetype"`
	Yanked       bool   `json:"yanked"`
	YankedReason string `json:"yanked_reason,omitempty"`
}

// Candidate is a published version as reported by an index, before parsing.
type Candidate struct {
	Version string
	Yanked  bool
	// Prerelease is set when the index flags the release as a pre-release
	// regardless of what its version string says.
	Prerelease bool
}
