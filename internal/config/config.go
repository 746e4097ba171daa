// Package config loads the release-orchestration configuration file: branch
// definitions, the tag format template, and the plugin step table, as
// env-var-expanding YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/xinchaobeta/semantic-release/internal/domain"
	releaseerrors "github.com/xinchaobeta/semantic-release/internal/errors"
)

// Config is the top-level release-orchestration configuration.
type Config struct {
	Branches  []BranchConfig       `yaml:"branches"`
	TagFormat string               `yaml:"tagFormat"`
	Plugins   PluginConfig         `yaml:"plugins"`
	CI        CIConfig             `yaml:"ci"`
	RepositoryURL string           `yaml:"repositoryUrl"`
}

// BranchConfig is one entry of the branches list, mirroring domain.BranchSpec
// field-for-field so YAML unmarshals straight into it.
type BranchConfig struct {
	Name       string `yaml:"name"`
	Channel    string `yaml:"channel"`
	Range      string `yaml:"range"`
	Prerelease string `yaml:"prerelease"`
	MergeRange string `yaml:"mergeRange"`
}

// ToSpec converts a BranchConfig into the normalised domain.BranchSpec
// input BranchClassifier expects, resolving the "prerelease: true"
// sentinel to the branch's own name.
func (b BranchConfig) ToSpec() domain.BranchSpec {
	prerelease := b.Prerelease
	if prerelease == "true" {
		prerelease = b.Name
	}
	return domain.BranchSpec{
		Name:       b.Name,
		Channel:    b.Channel,
		Range:      b.Range,
		Prerelease: prerelease,
		MergeRange: b.MergeRange,
	}
}

// PluginStep is a single plugin reference: a module/path name plus
// whatever inline parameters it needs.
type PluginStep struct {
	Path   string            `yaml:"path"`
	Params map[string]string `yaml:"params"`
}

// PluginConfig is the resolved plugin step table, one ordered list per
// lifecycle step name.
type PluginConfig struct {
	VerifyConditions []PluginStep `yaml:"verifyConditions"`
	AnalyzeCommits   []PluginStep `yaml:"analyzeCommits"`
	VerifyRelease    []PluginStep `yaml:"verifyRelease"`
	GenerateNotes    []PluginStep `yaml:"generateNotes"`
	Prepare          []PluginStep `yaml:"prepare"`
	AddChannel       []PluginStep `yaml:"addChannel"`
	Publish          []PluginStep `yaml:"publish"`
	Success          []PluginStep `yaml:"success"`
	Fail             []PluginStep `yaml:"fail"`
}

// CIConfig carries user overrides for GateController's CI-detection step.
type CIConfig struct {
	DryRun bool `yaml:"dryRun"`
	NoCI   bool `yaml:"noCi"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load reads and parses path, expanding ${ENV_VAR} references in
// repositoryUrl and any plugin param, then eagerly validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg Config
	if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	cfg.RepositoryURL = expandEnv(cfg.RepositoryURL)
	for _, steps := range cfg.Plugins.all() {
		for i := range steps {
			for k, v := range steps[i].Params {
				steps[i].Params[k] = expandEnv(v)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfigFile searches standard locations for a release-orchestration
// config file: the current directory, ".config", and the equivalent pair
// under the user's home directory.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{".", ".config"}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{".semrelease.yaml", ".semrelease.yml", "semrelease.yaml", "semrelease.yml"}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("config file not found in default locations")
}

func expandEnv(raw string) string {
	if raw == "" {
		return raw
	}
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("environment variable %q is not set", varName)
		return ""
	})
}

// Validate checks structural requirements the YAML schema itself can't
// express, eagerly and before any git operation runs: at least one branch
// and a non-empty tagFormat.
func (c *Config) Validate() error {
	agg := releaseerrors.NewAggregate()
	if len(c.Branches) == 0 {
		agg.Add(fmt.Errorf("at least one branch must be configured"))
	}
	if c.TagFormat == "" {
		agg.Add(fmt.Errorf("tagFormat is required"))
	}
	if agg.Empty() {
		return nil
	}
	return agg
}

// BranchSpecs converts every configured branch into the domain.BranchSpec
// shape BranchClassifier consumes.
func (c *Config) BranchSpecs() []domain.BranchSpec {
	specs := make([]domain.BranchSpec, len(c.Branches))
	for i, b := range c.Branches {
		specs[i] = b.ToSpec()
	}
	return specs
}

func (p PluginConfig) all() [][]PluginStep {
	return [][]PluginStep{
		p.VerifyConditions, p.AnalyzeCommits, p.VerifyRelease, p.GenerateNotes,
		p.Prepare, p.AddChannel, p.Publish, p.Success, p.Fail,
	}
}
