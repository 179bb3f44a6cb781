// Package update decides whether a dependency's upper version bound still admits
// the latest published release, and computes the replacement bound when it does not.
//
// It is useful for CI jobs that keep pinned dependency files current: the caller
// supplies the requirement's specifiers and the latest version, and receives a Plan
// with a Decision and a human message.
//
// This package does not fetch versions or touch files. It focuses on the
// version-range arithmetic.
//
// Decision model
//   - Upper bounds are the "<" and "<=" clauses of a requirement. All other
//     clauses are carried over unchanged and in order.
//   - The requirement is up to date when every upper bound contains the latest
//     version.
//   - Otherwise the upper bounds are replaced by "<N+1", where N is the latest
//     version's major release segment. This is the tightest bound that still
//     admits every release of the latest major line.
//   - The replacement is self-checked against the latest version. An epoch on the
//     latest version makes the check fail ("<3" excludes "1!2.0").
package update
