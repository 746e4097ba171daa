// Package controllers binds cobra commands to the release-orchestration
// use cases, one controller per command.
package controllers

import (
	"github.com/spf13/cobra"
	"go.uber.org/dig"
)

// ControllerBind is the cobra metadata a Controller contributes to the CLI.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
}

// Controller is one CLI subcommand's use case.
type Controller interface {
	GetBind() ControllerBind
	Execute(cmd *cobra.Command, args []string)
}

// RegisterProviders registers every controller constructor with the DIG
// container, bottom-up.
func RegisterProviders(container *dig.Container) error {
	if err := container.Provide(NewRunController); err != nil {
		return err
	}
	if err := container.Provide(NewPlanController); err != nil {
		return err
	}
	if err := container.Provide(NewControllers); err != nil {
		return err
	}
	return nil
}

// NewControllers aggregates every controller for subcommand registration.
func NewControllers(plan *PlanController) []Controller {
	return []Controller{plan}
}
