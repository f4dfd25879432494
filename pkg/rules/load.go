package rules

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/permtree/permtree/pkg/errors"
	"github.com/permtree/permtree/pkg/logging"
	"github.com/permtree/permtree/pkg/pattern"
	"github.com/permtree/permtree/pkg/roles"
)

// NoOpRole is the role field value that marks a rule as an explicit no-op.
const NoOpRole = "-"

// Problem is one invalid rule line.
type Problem struct {
	Line int
	Err  error
}

// LoadError aggregates every invalid line found in a rule file. The whole
// file is scanned before failing so all problems are reported together.
type LoadError struct {
	Problems []Problem
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rule file has %d invalid line(s)", len(e.Problems))
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "\n  line %d: %v", p.Line, p.Err)
	}
	return b.String()
}

// Load reads rule lines from r and builds a validated table. Lines that are
// empty or start with "#" are skipped. Each remaining line is
//
//	<pattern> [<role-name>|-]
//
// A trailing "/" on the pattern marks a directory-only rule. Validation
// errors are collected across the whole source; if any line was invalid no
// table is returned.
func Load(r io.Reader, reg *roles.Registry) (*Table, error) {
	logger := logging.GetLogger("rules.load")

	var (
		table Table
		probs []Problem
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := parseLine(line, lineNo, reg)
		if err != nil {
			probs = append(probs, Problem{Line: lineNo, Err: err})
			continue
		}
		table.rules = append(table.rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrRulesRead, "read rule source")
	}

	if len(probs) > 0 {
		for _, p := range probs {
			logger.Error().Int("line", p.Line).Err(p.Err).Msg("Invalid rule line")
		}
		return nil, &LoadError{Problems: probs}
	}

	logger.Info().Int("rules", table.Len()).Msg("Rule table loaded")
	return &table, nil
}

func parseLine(line string, lineNo int, reg *roles.Registry) (Rule, error) {
	fields := strings.Fields(line)
	if len(fields) > 2 {
		return Rule{}, errors.Newf(errors.ErrRuleFields,
			"expected \"<pattern> [<role>|-]\", got %d fields", len(fields))
	}

	rawPattern := fields[0]
	if err := CheckPatternSyntax(rawPattern); err != nil {
		return Rule{}, err
	}

	dirOnly := strings.HasSuffix(rawPattern, "/")
	body := strings.TrimSuffix(rawPattern, "/")

	var role *roles.Role
	if len(fields) == 2 && fields[1] != NoOpRole {
		name := fields[1]
		found, ok := reg.Lookup(name)
		if !ok {
			return Rule{}, errors.Newf(errors.ErrRuleRole, "unknown role %q", name)
		}
		if !found.HasFileMode && !dirOnly {
			return Rule{}, errors.Newf(errors.ErrRuleFileMode,
				"role %q has no file mode and cannot apply to files", name)
		}
		role = found
	}

	matcher, err := pattern.Compile(body, dirOnly)
	if err != nil {
		return Rule{}, err
	}

	return Rule{
		Pattern: body,
		Matcher: matcher,
		DirOnly: dirOnly,
		Role:    role,
		Line:    lineNo,
	}, nil
}

// CheckPatternSyntax validates the shape of a rule pattern independently of
// the compiler: after an optional leading "/", the pattern must be a
// sequence of non-empty "/"-separated components, each either exactly "**"
// or free of adjacent "*" characters. An optional trailing "/" is allowed.
func CheckPatternSyntax(pat string) error {
	if pat == "" {
		return errors.New(errors.ErrRuleSyntax, "empty pattern")
	}
	body := strings.TrimPrefix(pat, "/")
	body = strings.TrimSuffix(body, "/")
	if body == "" {
		// "/" alone names the root directory; anything else that reduces
		// to nothing ("//") has an empty component.
		if pat == "/" {
			return nil
		}
		return errors.Newf(errors.ErrRuleSyntax, "pattern %q has an empty path component", pat)
	}

	for _, comp := range strings.Split(body, "/") {
		if comp == "" {
			return errors.Newf(errors.ErrRuleSyntax, "pattern %q has an empty path component", pat)
		}
		if comp == "**" {
			continue
		}
		for i := 0; i+1 < len(comp); i++ {
			if comp[i] == '*' && comp[i+1] == '*' {
				return errors.Newf(errors.ErrRuleSyntax,
					"pattern %q: \"**\" is only valid as a whole path component", pat)
			}
		}
	}
	return nil
}
