package requirements

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/3leaps/reqbound/pkg/pep440"
)

// ErrNotFound is returned by Find when no requirement names the package.
var ErrNotFound = errors.New("requirement not found")

// Format identifies the dependency file layout.
type Format string

const (
	FormatRequirementsTxt Format = "requirements.txt"
	FormatPyProject       Format = "pyproject.toml"
)

// DetectFormat picks the format from the file name.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatPyProject
	}
	return FormatRequirementsTxt
}

// Entry is a requirement together with its location in the file.
type Entry struct {
	Requirement Requirement
	// Line is the 1-based line the requirement starts on.
	Line int
	// Group is the pyproject optional-dependencies group; empty otherwise.
	Group string

	offset int // byte offset of Requirement.Text() in the file; -1 if unknown
}

// File is a dependency file held in memory. Rewrites touch only the
// specifier text of the rewritten requirement.
type File struct {
	Path   string
	Format Format

	data    []byte
	entries []*Entry
	mode    os.FileMode
}

// Load reads and parses the dependency file at path.
func Load(path string) (*File, error) {
	// #nosec G304 -- path is the user-selected dependency file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dependency file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat dependency file: %w", err)
	}
	f, err := Parse(data, DetectFormat(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	f.Path = path
	f.mode = info.Mode().Perm()
	return f, nil
}

// Parse parses data in the given format.
func Parse(data []byte, format Format) (*File, error) {
	f := &File{Format: format, data: append([]byte(nil), data...), mode: 0o644}
	var err error
	switch format {
	case FormatRequirementsTxt:
		f.entries = parseRequirementsTxt(f.data)
	case FormatPyProject:
		f.entries, err = parsePyProject(f.data)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Entries returns the parsed requirements in file order.
func (f *File) Entries() []*Entry { return f.entries }

// Bytes returns the current file contents.
func (f *File) Bytes() []byte { return f.data }

// Find returns the first requirement for the named project. Names are compared
// in PEP 503 canonical form.
func (f *File) Find(name string) (*Entry, error) {
	want := CanonicalName(name)
	for _, e := range f.entries {
		if e.Requirement.CanonicalName() == want {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// SetSpecifiers replaces the specifiers of e, leaving every other byte of the
// file untouched.
func (f *File) SetSpecifiers(e *Entry, set pep440.SpecifierSet) error {
	if e.offset < 0 {
		return fmt.Errorf("cannot rewrite %q: requirement not located in %s", e.Requirement.Text(), f.Format)
	}
	old := e.Requirement.Text()
	updated := e.Requirement.withSpecifiers(set)
	req, err := ParseRequirement(updated)
	if err != nil {
		return fmt.Errorf("rewritten requirement: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(f.data) - len(old) + len(updated))
	buf.Write(f.data[:e.offset])
	buf.WriteString(updated)
	buf.Write(f.data[e.offset+len(old):])
	f.data = buf.Bytes()

	delta := len(updated) - len(old)
	for _, other := range f.entries {
		if other != e && other.offset > e.offset {
			other.offset += delta
		}
	}
	e.Requirement = req
	return nil
}

// Save writes the file back to Path, keeping its permissions.
func (f *File) Save() error {
	if f.Path == "" {
		return errors.New("save dependency file: no path")
	}
	if err := os.WriteFile(f.Path, f.data, f.mode); err != nil {
		return fmt.Errorf("write dependency file: %w", err)
	}
	return nil
}
