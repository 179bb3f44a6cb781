package requirements

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
)

type pyProject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// parsePyProject collects PEP 621 requirements: [project].dependencies first,
// then each [project.optional-dependencies] group in name order.
func parsePyProject(data []byte) ([]*Entry, error) {
	var doc pyProject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode pyproject: %w", err)
	}

	type item struct {
		text  string
		group string
	}
	var items []item
	for _, s := range doc.Project.Dependencies {
		items = append(items, item{text: s})
	}
	groups := make([]string, 0, len(doc.Project.OptionalDependencies))
	for g := range doc.Project.OptionalDependencies {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		for _, s := range doc.Project.OptionalDependencies[g] {
			items = append(items, item{text: s, group: g})
		}
	}

	claimed := map[int]bool{}
	var entries []*Entry
	for _, it := range items {
		req, err := ParseRequirement(it.text)
		if err != nil {
			return nil, err
		}
		start, end := arrayRegion(data, it.group)
		offset := locateString(data, start, end, it.text, claimed)
		line := 0
		if offset >= 0 {
			claimed[offset] = true
			line = bytes.Count(data[:offset], []byte("\n")) + 1
		}
		entries = append(entries, &Entry{Requirement: req, Line: line, Group: it.group, offset: offset})
	}
	return entries, nil
}

var (
	projectHeader  = regexp.MustCompile(`(?m)^[ \t]*\[[ \t]*project[ \t]*\][ \t]*(?:#.*)?\r?$`)
	optionalHeader = regexp.MustCompile(`(?m)^[ \t]*\[[ \t]*project[ \t]*\.[ \t]*(?:optional-dependencies|"optional-dependencies")[ \t]*\][ \t]*(?:#.*)?\r?$`)
	anyHeader      = regexp.MustCompile(`(?m)^[ \t]*\[`)
)

// tableBody returns the byte range of the table introduced by header, from
// the end of the header line to the next header. ok is false if the table
// is absent.
func tableBody(data []byte, header *regexp.Regexp) (start, end int, ok bool) {
	loc := header.FindIndex(data)
	if loc == nil {
		return 0, 0, false
	}
	start = loc[1]
	end = len(data)
	if next := anyHeader.FindIndex(data[start:]); next != nil {
		end = start + next[0]
	}
	return start, end, true
}

// keyAt returns the offset just past "key =" inside data[start:end], or -1.
func keyAt(data []byte, start, end int, key string) int {
	q := regexp.QuoteMeta(key)
	re := regexp.MustCompile(`(?m)^[ \t]*(?:` + q + `|"` + q + `"|'` + q + `')[ \t]*=`)
	loc := re.FindIndex(data[start:end])
	if loc == nil {
		return -1
	}
	return start + loc[1]
}

// arrayRegion narrows the search for a requirement string to the array that
// declared it, so identical strings in other tables such as
// [build-system].requires are never matched. A start of -1 means the array
// could not be located.
func arrayRegion(data []byte, group string) (start, end int) {
	if group == "" {
		ps, pe, ok := tableBody(data, projectHeader)
		if !ok {
			return -1, -1
		}
		return keyAt(data, ps, pe, "dependencies"), pe
	}
	if gs, ge, ok := tableBody(data, optionalHeader); ok {
		if k := keyAt(data, gs, ge, group); k >= 0 {
			return k, ge
		}
	}
	// Inline form: optional-dependencies = { group = [...] } under [project].
	ps, pe, ok := tableBody(data, projectHeader)
	if !ok {
		return -1, -1
	}
	return keyAt(data, ps, pe, "optional-dependencies"), pe
}

// locateString finds the first unclaimed quoted occurrence of s within
// data[start:end] and returns the offset of its first character, or -1.
// Strings that needed escaping in the TOML source are not found.
func locateString(data []byte, start, end int, s string, claimed map[int]bool) int {
	if start < 0 || start > end {
		return -1
	}
	best := -1
	for _, quote := range []string{`"`, `'`} {
		needle := []byte(quote + s + quote)
		from := start
		for from < end {
			i := bytes.Index(data[from:end], needle)
			if i < 0 {
				break
			}
			pos := from + i + 1
			if !claimed[pos] {
				if best < 0 || pos < best {
					best = pos
				}
				break
			}
			from = pos
		}
	}
	return best
}
