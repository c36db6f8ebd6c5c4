// Package dockerfile turns a validated build context into a deterministic
// Dockerfile: base runtime, dependency layer, source layer, port metadata,
// and the single launch command, in that fixed order.
package dockerfile

import (
	"fmt"

	"github.com/pyship/pyship/internal/buildcontext"
	"github.com/pyship/pyship/internal/manifest"
)

const (
	// DefaultPythonVersion selects the base runtime tag when the caller
	// doesn't pin one.
	DefaultPythonVersion = "3.9"

	// DefaultPort is the conventional announced port for the packaged
	// service.
	DefaultPort = 5000

	// Workdir is the fixed directory sources are materialized into.
	Workdir = "/app"

	// InjectedDockerfileName is the tar entry name used for the generated
	// Dockerfile, chosen so it can never shadow a file from the user tree.
	InjectedDockerfileName = ".pyship.dockerfile"
)

// BuildPlan captures everything the generator needs. It is a pure value:
// the same plan always yields the same Dockerfile lines.
type BuildPlan struct {
	PythonVersion  string
	Port           int
	ManifestName   string
	EntrypointName string

	// Requirements is the resolved manifest, kept for audit labels.
	Requirements []manifest.Requirement
}

// PlanOption tweaks plan defaults.
type PlanOption func(*BuildPlan)

func WithPythonVersion(v string) PlanOption {
	return func(p *BuildPlan) {
		if v != "" {
			p.PythonVersion = v
		}
	}
}

func WithPort(port int) PlanOption {
	return func(p *BuildPlan) {
		if port > 0 {
			p.Port = port
		}
	}
}

// NewPlan builds a plan from an already validated context: it parses and
// resolves the dependency manifest, failing the plan (and with it the build)
// on the first unresolvable entry.
func NewPlan(ctx *buildcontext.Context, opts ...PlanOption) (*BuildPlan, error) {
	data, err := ctx.ReadManifest()
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", ctx.ManifestName, err)
	}

	m, err := manifest.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", ctx.ManifestName, err)
	}
	if err := m.Resolve(); err != nil {
		return nil, err
	}

	plan := &BuildPlan{
		PythonVersion:  DefaultPythonVersion,
		Port:           DefaultPort,
		ManifestName:   ctx.ManifestName,
		EntrypointName: ctx.EntrypointName,
		Requirements:   m.Requirements,
	}
	for _, opt := range opts {
		opt(plan)
	}

	return plan, nil
}

// BaseImage is the pinned runtime image for this plan.
func (plan *BuildPlan) BaseImage() string {
	return "python:" + plan.PythonVersion + "-slim"
}

// LaunchCommand is the exact foreground command a container will run.
func (plan *BuildPlan) LaunchCommand() []string {
	return []string{"python", plan.EntrypointName}
}
