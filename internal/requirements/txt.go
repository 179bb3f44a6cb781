package requirements

import (
	"bytes"
	"strings"
)

// parseRequirementsTxt collects the requirement lines of a pip requirements
// file. Blank lines, comments, option lines (-r, -e, --index-url), and lines
// that are not PEP 508 requirements (paths, bare URLs) are left as they are.
func parseRequirementsTxt(data []byte) []*Entry {
	var entries []*Entry
	offset := 0
	for n := 1; offset < len(data); n++ {
		end := bytes.IndexByte(data[offset:], '\n')
		if end < 0 {
			end = len(data) - offset
		}
		line := strings.TrimSuffix(string(data[offset:offset+end]), "\r")

		if text := requirementText(line); text != "" {
			if req, err := ParseRequirement(text); err == nil {
				entries = append(entries, &Entry{Requirement: req, Line: n, offset: offset})
			}
		}
		offset += end + 1
	}
	return entries
}

// requirementText strips comments and per-requirement options from line.
// It returns "" for lines that cannot hold a requirement.
func requirementText(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "-") {
		return ""
	}
	if i := indexAfterSpace(line, "#"); i >= 0 {
		line = line[:i]
	}
	if i := indexAfterSpace(line, "--"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, " \t")
}

// indexAfterSpace finds the first occurrence of tok that is preceded by a
// space or tab.
func indexAfterSpace(s, tok string) int {
	for i := 1; i < len(s); i++ {
		if isSpace(s[i-1]) && strings.HasPrefix(s[i:], tok) {
			return i
		}
	}
	return -1
}
