package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/permtree/permtree/pkg/errors"
)

// Matcher reports whether a normalized relative path is covered by one
// compiled pattern. Relative paths use "/" separators, carry no leading
// slash (the tree root itself is "/"), and end in "/" iff the entry is a
// directory.
type Matcher interface {
	Matches(rel string) bool
}

// matchAll covers the whole-pattern shortcuts "*", "**" and "/**".
type matchAll struct{}

func (matchAll) Matches(string) bool { return true }

// rootOnly covers the bare "/" pattern, which names the tree root itself.
type rootOnly struct{}

func (rootOnly) Matches(rel string) bool { return rel == "/" }

type regexpMatcher struct {
	re *regexp.Regexp
}

func (m regexpMatcher) Matches(rel string) bool { return m.re.MatchString(rel) }

// Compile turns one gitignore-style pattern into a Matcher. The caller has
// already stripped a trailing "/" and passes it as dirOnly; pattern syntax
// has already been validated, so a stray "**" inside a component is an
// internal error here, not user input.
func Compile(pat string, dirOnly bool) (Matcher, error) {
	switch pat {
	case "*", "**", "/**":
		return matchAll{}, nil
	case "":
		// A bare "/" rule: only the root directory itself.
		if dirOnly {
			return rootOnly{}, nil
		}
		return nil, errors.New(errors.ErrInternal, "empty pattern without directory marker")
	}

	anchored := false
	p := pat
	if strings.HasPrefix(p, "/") {
		anchored = true
		p = p[1:]
	}
	// Leading "**/" segments make the pattern anchorless.
	for strings.HasPrefix(p, "**/") {
		anchored = false
		p = strings.TrimPrefix(p, "**/")
	}
	if p == "" || p == "**" {
		return matchAll{}, nil
	}

	comps := collapseGlobstars(strings.Split(p, "/"))

	var b strings.Builder
	endsOpen := false // body ends in a trailing "/**"
	afterGlobstar := false
	for i, comp := range comps {
		last := i == len(comps)-1
		if comp == "**" {
			if last {
				// Trailing "/**": a slash followed by one or more characters.
				b.WriteString(`/.+`)
				endsOpen = true
			} else {
				// "/**/" matches zero or more whole path components.
				b.WriteString(`/(?:[^/]+/)*`)
				afterGlobstar = true
			}
			continue
		}
		if i > 0 && !afterGlobstar {
			b.WriteByte('/')
		}
		afterGlobstar = false
		if err := writeComponent(&b, comp); err != nil {
			return nil, err
		}
	}

	if dirOnly && !endsOpen {
		// Directory-only rules match the directory path itself, which
		// carries a trailing slash.
		b.WriteByte('/')
	}

	prefix := `^`
	if !anchored {
		prefix = `^(?:.*/)?`
	}
	re, err := regexp.Compile(prefix + b.String() + `$`)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "compile pattern %q", pat)
	}
	return regexpMatcher{re: re}, nil
}

// collapseGlobstars collapses runs of consecutive "**" components into one.
func collapseGlobstars(comps []string) []string {
	out := comps[:0]
	for _, c := range comps {
		if c == "**" && len(out) > 0 && out[len(out)-1] == "**" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// writeComponent translates one path component into regexp source.
func writeComponent(b *strings.Builder, comp string) error {
	for i := 0; i < len(comp); i++ {
		c := comp[i]
		switch c {
		case '*':
			if i+1 < len(comp) && comp[i+1] == '*' {
				return errors.Newf(errors.ErrInternal, "stray ** in pattern component %q", comp)
			}
			b.WriteString(`[^/]*`)
		case '?':
			// A run of N question marks matches exactly N non-slash characters.
			n := 1
			for i+1 < len(comp) && comp[i+1] == '?' {
				n++
				i++
			}
			if n == 1 {
				b.WriteString(`[^/]`)
			} else {
				fmt.Fprintf(b, `[^/]{%d}`, n)
			}
		case '[':
			if end := charClassEnd(comp, i); end >= 0 {
				// Bracket expressions pass through as literal character classes.
				b.WriteString(comp[i : end+1])
				i = end
			} else {
				b.WriteString(`\[`)
			}
		default:
			b.WriteString(escapeByte(c))
		}
	}
	return nil
}

// charClassEnd locates the closing bracket of a "[...]" class, or -1.
func charClassEnd(pat string, start int) int {
	idx := start + 1
	if idx < len(pat) && (pat[idx] == '!' || pat[idx] == '^') {
		idx++
	}
	if idx < len(pat) && pat[idx] == ']' {
		idx++
	}
	for ; idx < len(pat); idx++ {
		if pat[idx] == ']' {
			return idx
		}
	}
	return -1
}

// escapeByte escapes one byte for regexp source.
func escapeByte(c byte) string {
	switch c {
	case '.', '+', '(', ')', '|', '{', '}', '[', ']', '^', '$', '\\', '?', '*':
		return `\` + string(c)
	default:
		return string(c)
	}
}
