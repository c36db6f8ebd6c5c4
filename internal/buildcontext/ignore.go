package buildcontext

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"strings"

	"github.com/moby/patternmatcher"
)

type ignoreMatcher struct {
	pm *patternmatcher.PatternMatcher
}

// loadIgnoreMatcher reads the exclusion policy from .pyshipignore, falling
// back to .dockerignore when present. Missing files simply mean "exclude
// nothing".
func (c *Context) loadIgnoreMatcher() (*ignoreMatcher, error) {
	var patterns []string

	for _, name := range []string{ignoreFileName, fallbackIgnoreFileName} {
		data, err := c.ops.OS.ReadFile(c.ops.Path.Join(c.root, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		patterns = parseIgnorePatterns(data)
		break
	}

	if len(patterns) == 0 {
		return &ignoreMatcher{}, nil
	}

	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, err
	}
	return &ignoreMatcher{pm: pm}, nil
}

func (m *ignoreMatcher) excluded(relSlash string) (bool, error) {
	if m.pm == nil {
		return false, nil
	}
	return m.pm.MatchesOrParentMatches(relSlash)
}

func parseIgnorePatterns(data []byte) []string {
	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
