package main

import (
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xinchaobeta/semantic-release/internal/controllers"
)

func buildRootCommand(runController *controllers.RunController, planController *controllers.PlanController) *cobra.Command {
	bind := runController.GetBind()
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	rootCmd := &cobra.Command{
		Use:   bind.Use,
		Short: bind.Short,
		Long:  bind.Long,
		Run: func(cmd *cobra.Command, args []string) {
			runController.Execute(cmd, args)
		},
	}
	runController.AddFlags(rootCmd)

	planBind := planController.GetBind()
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	planCmd := &cobra.Command{
		Use:   planBind.Use,
		Short: planBind.Short,
		Long:  planBind.Long,
		Run: func(cmd *cobra.Command, args []string) {
			planController.Execute(cmd, args)
		},
	}
	planCmd.Flags().StringP("config", "c", "", "Path to the release config file (default: auto-detect)")
	rootCmd.AddCommand(planCmd)

	return rootCmd
}

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	if os.Getenv("DEBUG") == "true" {
		logger.SetLevel(logger.DebugLevel)
	}

	container := buildContainer()
	rootCmd := buildRootCommand(injectRunController(container), injectPlanController(container))

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("error executing 'semrelease': %s", err)
	}
}
