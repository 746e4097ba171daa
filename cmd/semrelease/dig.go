package main

import (
	"go.uber.org/dig"

	"github.com/xinchaobeta/semantic-release/internal/controllers"
)

// buildContainer wires every controller constructor into a DIG container.
func buildContainer() *dig.Container {
	container := dig.New()

	if err := controllers.RegisterProviders(container); err != nil {
		panic(err)
	}

	return container
}

// injectRunController resolves the root command's controller.
func injectRunController(container *dig.Container) *controllers.RunController {
	var runController *controllers.RunController
	if err := container.Invoke(func(rc *controllers.RunController) {
		runController = rc
	}); err != nil {
		panic(err)
	}
	return runController
}

// injectPlanController resolves the "plan" subcommand's controller.
func injectPlanController(container *dig.Container) *controllers.PlanController {
	var planController *controllers.PlanController
	if err := container.Invoke(func(pc *controllers.PlanController) {
		planController = pc
	}); err != nil {
		panic(err)
	}
	return planController
}
