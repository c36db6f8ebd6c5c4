package versions

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var versionLiteralRe = regexp.MustCompile(`\d+(?:\.\d+){0,2}(?:[.-]?(?:a|b|c|rc|dev|post|alpha|beta)\.?\d*)?`)

// Pin resolves a requirement specifier to the largest concrete version that
// satisfies it, choosing only from versions mentioned inside the specifier
// itself (the manifest is the single source of truth; no index is consulted,
// so resolution stays deterministic across builds).
//
// Returns "" when the specifier carries no positive bound to pin against
// (bare requirement or pure exclusions): the installer is then free to pick.
// A specifier whose own literals cannot satisfy it is reported as
// unresolvable, wrapped around ErrUnresolvable.
func Pin(name, spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", nil
	}

	constraint, err := TranslateSpecifier(spec)
	if err != nil {
		return "", &ResolveError{Name: name, Specifier: spec, Reason: err.Error()}
	}

	candidates := collectCandidates(spec)
	if len(candidates) == 0 {
		// nothing pinnable mentioned (e.g. "!=1.5" alone)
		return "", nil
	}

	filtered := make([]*semver.Version, 0, len(candidates))
	for _, v := range candidates {
		if constraint.Check(v) {
			filtered = append(filtered, v)
		}
	}

	if len(filtered) == 0 {
		return "", &ResolveError{
			Name:      name,
			Specifier: spec,
			Reason:    "no candidate version satisfies all clauses",
		}
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].LessThan(filtered[j]) })
	return filtered[len(filtered)-1].String(), nil
}

// collectCandidates scans the specifier text for version-like literals in
// positive clauses (==, ===, ~=, >=, >). Partials are normalized
// (2 -> 2.0.0, 2.1 -> 2.1.0); upper-bound and exclusion literals are not
// candidates since they usually name the first version outside the range.
func collectCandidates(spec string) []*semver.Version {
	var out []*semver.Version
	seen := map[string]struct{}{}

	for _, clause := range strings.Split(spec, ",") {
		clause = strings.TrimSpace(clause)
		positive := strings.HasPrefix(clause, "==") ||
			strings.HasPrefix(clause, "~=") ||
			strings.HasPrefix(clause, ">=") ||
			(strings.HasPrefix(clause, ">") && !strings.HasPrefix(clause, ">="))
		if !positive {
			continue
		}

		for _, lit := range versionLiteralRe.FindAllString(clause, -1) {
			lit = strings.TrimSuffix(lit, ".")
			v, err := semver.NewVersion(lit)
			if err != nil {
				continue
			}
			if _, dup := seen[v.String()]; dup {
				continue
			}
			seen[v.String()] = struct{}{}
			out = append(out, v)
		}
	}

	return out
}
