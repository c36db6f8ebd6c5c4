package guardrails

import "testing"

func TestForbiddenSystemPaths(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"/etc", "/usr/lib", "/proc"} {
		if !IsForbiddenContextPath(p) {
			t.Errorf("IsForbiddenContextPath(%q) = false, want true", p)
		}
	}
}

func TestTempDirAllowed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if IsForbiddenContextPath(dir) {
		t.Errorf("IsForbiddenContextPath(%q) = true, want false", dir)
	}
}

func TestNonexistentPathForbidden(t *testing.T) {
	t.Parallel()

	if !IsForbiddenContextPath("/definitely/not/a/real/path") {
		t.Error("unresolvable path should be rejected")
	}
}

func TestPrefixMatchingIsPathAware(t *testing.T) {
	t.Parallel()

	// "/etcetera" is not under "/etc"
	if isUnderPrefix("/etc", "/etcetera") {
		t.Error("sibling path misclassified as child")
	}
	if !isUnderPrefix("/etc", "/etc/ssh") {
		t.Error("child path not recognized")
	}
	if !isUnderPrefix("/etc", "/etc") {
		t.Error("exact path not recognized as under itself")
	}
}
