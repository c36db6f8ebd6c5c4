// Package guardrails rejects build context paths that should never be
// shipped into an image: system directories, credential stores, and
// pyship's own state.
package guardrails

import (
	"os/user"
	"path/filepath"
	"strings"

	hostappconfig "github.com/pyship/pyship/internal/apps/pyship/config"
	"github.com/pyship/pyship/internal/logs"
	"github.com/pyship/pyship/internal/utils"
)

// A forbidden rule: either exact path or prefix path.
type forbiddenRule struct {
	Path   string // normalized absolute path
	Exact  bool   // forbid ONLY this exact path
	Prefix bool   // forbid this path AND any child paths
}

var forbiddenRules []forbiddenRule

func init() {
	home := mustHome()

	expand := func(p string) string {
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}

	raw := []forbiddenRule{
		// --- SYSTEM DIRECTORIES ---
		{Path: "/bin", Prefix: true},
		{Path: "/sbin", Prefix: true},
		{Path: "/lib", Prefix: true},
		{Path: "/lib64", Prefix: true},
		{Path: "/usr", Prefix: true},
		{Path: "/etc", Prefix: true},
		{Path: "/dev", Prefix: true},
		{Path: "/proc", Prefix: true},
		{Path: "/sys", Prefix: true},
		{Path: "/run", Prefix: true},
		{Path: "/var", Prefix: true},
		{Path: "/boot", Prefix: true},
		{Path: "/root", Prefix: true},

		// --- CONTAINER SOCKETS ---
		{Path: "/var/run/docker.sock", Exact: true},
		{Path: "/run/docker.sock", Exact: true},

		// --- MACOS SYSTEM DIRECTORIES ---
		{Path: "/System", Prefix: true},
		{Path: "/Library", Prefix: true},
		{Path: "/private", Prefix: true},

		// --- USER-SENSITIVE PATHS ---
		{Path: expand("~/.ssh"), Prefix: true},
		{Path: expand("~/.gnupg"), Prefix: true},
		{Path: expand("~/.aws"), Prefix: true},
		{Path: expand("~/.azure"), Prefix: true},
		{Path: expand("~/.docker"), Prefix: true},
		{Path: expand("~/.kube"), Prefix: true},
		{Path: expand("~/.git-credentials"), Exact: true},
		{Path: expand("~/.config/gh"), Prefix: true},
		{Path: expand("~/.config/gcloud"), Prefix: true},

		// --- PYSHIP INTERNALS ---
		{Path: expand(hostappconfig.ConfigBasePath()), Prefix: true},
	}

	for _, r := range raw {
		r.Path = filepath.Clean(r.Path)
		forbiddenRules = append(forbiddenRules, r)
	}
}

func mustHome() string {
	usr, err := user.Current()
	if err != nil {
		panic(err)
	}
	return usr.HomeDir
}

// IsForbiddenContextPath reports whether the given path must never be used
// as a build context root.
func IsForbiddenContextPath(rawPath string) bool {
	if rawPath == "" {
		rawPath = "."
	}

	p, err := utils.ResolveFolderStrict(rawPath)
	if err != nil {
		logs.Errorf("[guardrails] can't resolve path %s. error:%v", rawPath, err)
		return true
	}

	for _, rule := range forbiddenRules {
		if rule.Exact && p == rule.Path {
			logs.Warnf("path %s is forbidden as a build context", p)
			return true
		}
		if rule.Prefix && isUnderPrefix(rule.Path, p) {
			logs.Warnf("path %s is under forbidden path %s", p, rule.Path)
			return true
		}
	}

	return false
}

func isUnderPrefix(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}
