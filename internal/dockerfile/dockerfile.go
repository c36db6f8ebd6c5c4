package dockerfile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pyship/pyship/internal/version"
)

type Dockerfile []string

func (df Dockerfile) String() string {
	out := ""
	for _, line := range df {
		out += line + "\n"
	}
	return out
}

// GenerateDockerfile renders the plan into Dockerfile lines. Layer order is
// a contract, not a convenience: base -> dependencies -> sources, so a
// source-only change leaves the dependency layer cacheable.
func (plan *BuildPlan) GenerateDockerfile() Dockerfile {
	lines := Dockerfile{}

	lines = append(lines, "# ───────────────────────────────────────────")
	lines = append(lines, "# BASE RUNTIME (PINNED)")
	lines = append(lines, fmt.Sprintf("FROM %s", plan.BaseImage()))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# WORKDIR")
	lines = append(lines, fmt.Sprintf("WORKDIR %s", Workdir))

	// Dependency layer: only the manifest is copied in, so edits to the
	// source tree never invalidate this layer. --no-cache-dir keeps the
	// install independent of any previous build's downloads.
	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# DEPENDENCY LAYER (exec form)")
	lines = append(lines, "COPY "+jsonExec([]string{plan.ManifestName, "./" + plan.ManifestName}))
	lines = append(lines, "RUN "+jsonExec([]string{"pip", "install", "--no-cache-dir", "-r", plan.ManifestName}))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# SOURCE LAYER (strictly after dependencies)")
	lines = append(lines, fmt.Sprintf("COPY . %s", Workdir))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# ANNOUNCED PORT (metadata only; the process must bind it itself)")
	lines = append(lines, fmt.Sprintf("EXPOSE %d", plan.Port))

	lines = append(lines, "", "# ───────────────────────────────────────────")
	lines = append(lines, "# AUDIT LABELS")
	lines = append(lines, fmt.Sprintf("LABEL pyship.port=%q", fmt.Sprintf("%d", plan.Port)))
	lines = append(lines, fmt.Sprintf("LABEL pyship.manifest=%q", plan.ManifestName))
	lines = append(lines, fmt.Sprintf("LABEL pyship.entrypoint=%q", plan.EntrypointName))
	if pins := plan.pinnedSummary(); pins != "" {
		lines = append(lines, fmt.Sprintf("LABEL pyship.requirements=%q", pins))
	}
	lines = append(lines, fmt.Sprintf("LABEL %s=%d", version.ImageSchemaVersionLabel, version.ImageSchemaVersion))
	lines = append(lines, "LABEL pyship=true")

	lines = append(lines, "", "# CMD (exec form)")
	lines = append(lines, "CMD "+jsonExec(plan.LaunchCommand()))

	return lines
}

// pinnedSummary flattens the resolved manifest into "name=version" pairs for
// the audit label; unpinned entries record just the name.
func (plan *BuildPlan) pinnedSummary() string {
	if len(plan.Requirements) == 0 {
		return ""
	}
	parts := make([]string, 0, len(plan.Requirements))
	for _, req := range plan.Requirements {
		if req.Pinned != "" {
			parts = append(parts, req.Name+"="+req.Pinned)
		} else {
			parts = append(parts, req.Name)
		}
	}
	return strings.Join(parts, ",")
}

func jsonExec(argv []string) string {
	b, _ := json.Marshal(argv)
	return string(b)
}
