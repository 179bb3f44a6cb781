// Package pep440 parses and orders Python package versions and evaluates the
// comparison specifiers that appear in dependency files.
//
// Version model
//   - Parsing, normalization and ordering come from go-pep440-version, a port
//     of Python's packaging: epochs, pre/post/dev releases and local labels.
//   - A leading "v" and surrounding whitespace are accepted.
//   - Major and IsPrerelease expose what the bound decision needs.
//
// Specifiers
//   - ParseSpecifier splits an operator from its version text and keeps the
//     text as written, so a rewritten line changes only what was replaced.
//   - Ordered and equality operators (<, <=, >, >=, ==, !=) can be evaluated.
//   - ~=, === and wildcard equality are parsed and round-tripped, but Contains
//     reports ErrUnsupportedOperator for them.
package pep440
