// Package manifest parses pip requirement manifests (requirements.txt) into
// an ordered list of name/specifier pairs and verifies that every entry is
// resolvable before any build step runs.
package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pyship/pyship/internal/versions"
)

// ErrMalformedRequirement is the sentinel for syntactically invalid entries.
var ErrMalformedRequirement = errors.New("malformed requirement")

var (
	nameRe = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	opRe   = regexp.MustCompile(`===|==|~=|!=|>=|<=|>|<`)
)

// Requirement is one manifest entry: a package name plus the raw pip
// specifier set that constrains its version.
type Requirement struct {
	Name      string
	Extras    []string
	Specifier string

	// Pinned is the concrete version chosen for this entry, empty when the
	// specifier carries no positive bound. Populated by Resolve.
	Pinned string
}

func (r Requirement) String() string {
	s := r.Name
	if len(r.Extras) > 0 {
		s += "[" + strings.Join(r.Extras, ",") + "]"
	}
	return s + r.Specifier
}

// Manifest is the ordered dependency manifest. Order is preserved from the
// source file; installers may be order-sensitive.
type Manifest struct {
	Requirements []Requirement
}

// Parse reads a requirements.txt style manifest. Comments, blank lines and
// environment markers are dropped; pip option lines (-r, --index-url, ...)
// are rejected because they break build reproducibility.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	scanner := bufio.NewScanner(r)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		// environment markers constrain the target interpreter, not the
		// package version; the image pins the interpreter already
		if i := strings.Index(line, ";"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "-") {
			return nil, fmt.Errorf("line %d: %w: pip option %q is not allowed in a build manifest", lineNo, ErrMalformedRequirement, line)
		}

		req, err := parseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		m.Requirements = append(m.Requirements, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return m, nil
}

// ParseBytes is a convenience wrapper over Parse.
func ParseBytes(data []byte) (*Manifest, error) {
	return Parse(bytes.NewReader(data))
}

func parseRequirement(line string) (Requirement, error) {
	line = strings.ReplaceAll(line, " ", "")

	spec := ""
	name := line
	if loc := opRe.FindStringIndex(line); loc != nil {
		name = line[:loc[0]]
		spec = line[loc[0]:]
	}

	var extras []string
	if i := strings.Index(name, "["); i >= 0 {
		if !strings.HasSuffix(name, "]") {
			return Requirement{}, fmt.Errorf("%w: unterminated extras in %q", ErrMalformedRequirement, line)
		}
		extras = strings.Split(name[i+1:len(name)-1], ",")
		name = name[:i]
	}

	if !nameRe.MatchString(name) {
		return Requirement{}, fmt.Errorf("%w: bad package name %q", ErrMalformedRequirement, line)
	}

	return Requirement{Name: name, Extras: extras, Specifier: spec}, nil
}

// Resolve checks every requirement against its own specifier and fills in
// the pinned version where one can be chosen. Any unresolvable entry fails
// the whole manifest; there is no partial result.
func (m *Manifest) Resolve() error {
	for i := range m.Requirements {
		pinned, err := versions.Pin(m.Requirements[i].Name, m.Requirements[i].Specifier)
		if err != nil {
			return err
		}
		m.Requirements[i].Pinned = pinned
	}
	return nil
}
