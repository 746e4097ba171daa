package controllers

import (
	"context"
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xinchaobeta/semantic-release/internal/app"
	"github.com/xinchaobeta/semantic-release/internal/ci"
	"github.com/xinchaobeta/semantic-release/internal/config"
	"github.com/xinchaobeta/semantic-release/internal/gitfacade"
	"github.com/xinchaobeta/semantic-release/internal/scrub"
)

// RunController handles the root command: a full release invocation against
// the repository rooted at the current directory.
type RunController struct{}

// NewRunController creates a new RunController.
func NewRunController() *RunController {
	return &RunController{}
}

// GetBind returns the cobra command metadata for the root command.
func (it *RunController) GetBind() ControllerBind {
	return ControllerBind{
		Use:   "semrelease",
		Short: "Automated semantic-version release orchestration",
		Long: `Computes the next release version from commit history, tags it, and
publishes it on every configured distribution channel.

Classifies the repository's branches into release, maintenance and
prerelease lines, back-ports releases across channels, and drives a
fixed plugin pipeline (verifyConditions, analyzeCommits, verifyRelease,
generateNotes, prepare, publish, addChannel, success, fail) for the
branch the current invocation runs on.`,
	}
}

// Execute runs a single release invocation using the flags bound to cmd.
func (it *RunController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	cfgPath, _ := cmd.Flags().GetString("config")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noCI, _ := cmd.Flags().GetBool("no-ci")
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	cfg, log, git, runErr := bootstrap(cfgPath)
	if runErr != nil {
		logger.Errorf("semrelease: %v", runErr)
		return
	}

	if runErr = git.Fetch(ctx); runErr != nil {
		logger.Errorf("semrelease: %v", runErr)
		return
	}

	// The scrubbing filter wraps logrus's output (stderr) for the duration
	// of the run and is removed on completion. Only log output passes
	// through it; text printed directly to stdout, such as dry-run release
	// notes, is not filtered.
	secrets := scrub.SecretsFromEnviron()
	logger.SetOutput(scrub.NewWriter(os.Stderr, secrets))
	defer logger.SetOutput(os.Stderr)

	application := app.New(cfg, git, ci.EnvDetector{}, log)
	released, runErr := application.Run(ctx, app.Flags{DryRun: dryRun, NoCI: noCI})
	if runErr != nil {
		logger.Errorf("release failed: %v", runErr)
		return
	}
	if !released {
		logger.Info("no release published")
	}
}

// AddFlags adds the root-level flags shared by every subcommand.
func (it *RunController) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "", "Path to the release config file (default: auto-detect)")
	cmd.PersistentFlags().Bool("dry-run", false, "Compute and print the release plan without tagging or publishing")
	cmd.PersistentFlags().Bool("no-ci", false, "Allow running outside a detected CI environment (forces dry-run)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
}

// bootstrap loads the config file and opens the local git repository,
// shared by every controller.
func bootstrap(cfgPath string) (*config.Config, *logger.Entry, *gitfacade.Facade, error) {
	log := logger.NewEntry(logger.StandardLogger())

	if cfgPath == "" {
		var err error
		cfgPath, err = config.FindConfigFile()
		if err != nil {
			return nil, nil, nil, err
		}
	}
	logger.Infof("using config file: %s", cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, err
	}

	git, err := gitfacade.Open(".")
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, log, git, nil
}
