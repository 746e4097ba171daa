package controllers

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xinchaobeta/semantic-release/internal/branch"
	"github.com/xinchaobeta/semantic-release/internal/ci"
	"github.com/xinchaobeta/semantic-release/internal/domain"
	"github.com/xinchaobeta/semantic-release/internal/gate"
	"github.com/xinchaobeta/semantic-release/internal/pipeline"
	"github.com/xinchaobeta/semantic-release/internal/plan"
	"github.com/xinchaobeta/semantic-release/internal/pluginregistry"
	"github.com/xinchaobeta/semantic-release/internal/tagindex"
)

// PlanController handles the "plan" subcommand: a read-only preview of what
// a real invocation would do, without driving the plugin pipeline.
type PlanController struct{}

// NewPlanController creates a new PlanController.
func NewPlanController() *PlanController {
	return &PlanController{}
}

// GetBind returns the cobra command metadata for the plan command.
func (it *PlanController) GetBind() ControllerBind {
	return ControllerBind{
		Use:   "plan",
		Short: "Preview the release plan without tagging or publishing",
		Long: `Classifies branches, computes the releases-to-add (back-ports) and the
next release for the current branch, and prints the result as YAML.

Runs GateController, TagIndex, BranchClassifier and ReleasePlanner, plus
the configured analyzeCommits plugins read-only to resolve the next
release's bump type. It never creates tags, pushes, or invokes any other
pipeline step, so it is safe to run outside CI.`,
	}
}

// planOutput is the YAML shape printed to stdout.
type planOutput struct {
	Branch       string               `yaml:"branch"`
	ReleasesToAdd []domain.ReleaseToAdd `yaml:"releasesToAdd,omitempty"`
	NextRelease  *domain.Release      `yaml:"nextRelease,omitempty"`
}

// Execute prints the release plan for the repository rooted at the current
// directory.
func (it *PlanController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, log, git, err := bootstrap(cfgPath)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	if err = git.Fetch(ctx); err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	format, err := tagindex.NewFormat(cfg.TagFormat)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	specs := cfg.BranchSpecs()
	tips := make([]tagindex.BranchTip, len(specs))
	for i, s := range specs {
		tips[i] = tagindex.BranchTip{Name: s.Name, Ref: s.Name}
	}
	rawTags, err := tagindex.Build(ctx, git, format, tips)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}
	domainTags := make(map[string][]domain.Tag, len(rawTags))
	for name, tags := range rawTags {
		converted := make([]domain.Tag, len(tags))
		for i, t := range tags {
			converted[i] = domain.Tag{RawName: t.RawName, Version: t.Version, Channel: t.Channel, GitHead: t.GitHead}
		}
		domainTags[name] = converted
	}

	branches, err := branch.Classify(specs, domainTags)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	env := ci.EnvDetector{}.Detect()
	decision, err := gate.Admit(ctx, log, env, gate.Flags{NoCI: true}, branches, git, cfg.RepositoryURL)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}
	if !decision.Proceed {
		fmt.Println("no active branch for this invocation")
		return
	}

	activeIndex := -1
	for i, b := range branches {
		if b.Name == decision.Branch.Name {
			activeIndex = i
			break
		}
	}
	var higher []domain.Branch
	if activeIndex >= 0 {
		higher = branches[activeIndex+1:]
	}

	backPorts, err := plan.BackPorts(decision.Branch, higher, format)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	head, err := git.Head()
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	bump, err := pipeline.ResolveBump(ctx, git, log, decision.Branch, branches, head, pluginregistry.Resolve(cfg.Plugins.AnalyzeCommits))
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	_, nextRelease, ok, err := plan.NextRelease(decision.Branch, bump, head, format)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}

	out := planOutput{Branch: decision.Branch.Name, ReleasesToAdd: backPorts}
	if ok {
		out.NextRelease = &nextRelease
	}

	encoded, err := yaml.Marshal(out)
	if err != nil {
		logger.Errorf("semrelease plan: %v", err)
		return
	}
	fmt.Print(string(encoded))
}
