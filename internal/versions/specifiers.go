// Package versions translates pip-style requirement specifiers into semver
// constraints and resolves them to concrete, pinned versions.
package versions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrUnresolvable is the sentinel you can check with errors.Is.
var ErrUnresolvable = errors.New("unresolvable version specifier")

// ResolveError indicates that a requirement's specifier admits no version.
type ResolveError struct {
	Name      string
	Specifier string
	Reason    string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v: %s %q: %s", ErrUnresolvable, e.Name, e.Specifier, e.Reason)
}

func (e *ResolveError) Unwrap() error { return ErrUnresolvable }

// TranslateSpecifier converts a pip specifier set (e.g. ">=2.0,<3.0,!=2.4.1")
// into a semver constraint expression. Supported operators: ==, !=, >=, <=,
// >, <, ~= (compatible release). Wildcards in == / != clauses ("2.0.*") are
// mapped onto tilde ranges.
func TranslateSpecifier(spec string) (*semver.Constraints, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		// no specifier: anything goes
		return semver.NewConstraint(">=0.0.0")
	}

	parts := strings.Split(spec, ",")
	clauses := make([]string, 0, len(parts))
	for _, part := range parts {
		clause, err := translateClause(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	c, err := semver.NewConstraint(strings.Join(clauses, ", "))
	if err != nil {
		return nil, fmt.Errorf("invalid specifier %q: %w", spec, err)
	}
	return c, nil
}

func translateClause(clause string) (string, error) {
	switch {
	case strings.HasPrefix(clause, "==="):
		// arbitrary equality pins the literal text
		return "=" + strings.TrimSpace(clause[3:]), nil

	case strings.HasPrefix(clause, "=="):
		v := strings.TrimSpace(clause[2:])
		if strings.HasSuffix(v, ".*") {
			return "~" + strings.TrimSuffix(v, ".*"), nil
		}
		return "=" + v, nil

	case strings.HasPrefix(clause, "~="):
		return compatibleRelease(strings.TrimSpace(clause[2:]))

	case strings.HasPrefix(clause, "!="),
		strings.HasPrefix(clause, ">="),
		strings.HasPrefix(clause, "<="):
		return clause[:2] + strings.TrimSpace(clause[2:]), nil

	case strings.HasPrefix(clause, ">"), strings.HasPrefix(clause, "<"):
		return clause[:1] + strings.TrimSpace(clause[1:]), nil
	}

	return "", fmt.Errorf("unsupported specifier clause %q", clause)
}

// compatibleRelease maps PEP 440 "~=" onto the matching semver range:
// "~=1.4.2" allows >=1.4.2 <1.5.0 and "~=1.4" allows >=1.4 <2.0.
func compatibleRelease(v string) (string, error) {
	segments := strings.Split(v, ".")
	switch len(segments) {
	case 2:
		return "^" + v, nil
	case 3:
		return "~" + v, nil
	}
	return "", fmt.Errorf("compatible-release specifier needs two or three segments, got %q", v)
}
