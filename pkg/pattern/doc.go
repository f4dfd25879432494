// Package pattern compiles gitignore-style path patterns (without negation)
// into matchers over normalized relative paths.
//
// The supported grammar is a subset of gitignore syntax:
//
//   - "*", "**" and "/**" match every path unconditionally
//   - a bare "/" names the tree root itself
//   - a leading "/" anchors the match at the start of the relative path;
//     without it the match may also start right after any "/"
//   - leading "**/" segments are stripped and make the pattern anchorless
//   - "/**/" matches zero or more whole path components
//   - a trailing "/**" matches a "/" followed by one or more characters
//   - "*" matches any run of non-slash characters, a run of N "?" matches
//     exactly N non-slash characters, and "[...]" passes through as a
//     character class
//
// Compiled matchers are anchored at both ends: they cover the entire
// relative path, never a substring. Directory paths carry a trailing "/",
// and directory-only patterns only match such paths.
package pattern
