package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/topdeck-io/topdeck/internal/core/codegen"
	"github.com/topdeck-io/topdeck/internal/core/deployment"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/environment"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
	"github.com/topdeck-io/topdeck/internal/shell/provider"
)

// plannedOutput is the YAML document printed by `topdeck plan`.
type plannedOutput struct {
	ID        string                                    `yaml:"id"`
	Name      string                                    `yaml:"name,omitempty"`
	Status    string                                    `yaml:"status"`
	Resources map[domain.ResourceIndex]*domain.Resource `yaml:"resources"`
}

// runPlan plans a single deployment document and prints the planned
// resources, or the rendered compose manifest with -manifest.
func runPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	manifest := fs.Bool("manifest", false, "Print the compose manifest instead of planned resources")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: topdeck plan [-manifest] <file>")
		return ExitConfigError
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}
	logger := SetupLogger(cfg)

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open document: %v\n", err)
		return ExitConfigError
	}
	defer f.Close()

	file, err := topology.Parse(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid document: %v\n", err)
		return ExitPlanError
	}
	dep, err := deployment.New(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid document: %v\n", err)
		return ExitPlanError
	}

	env, err := environment.New(dep.Environment, provider.New, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		return ExitPlanError
	}
	planner, err := plan.NewPlanner(dep, env, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid document: %v\n", err)
		return ExitPlanError
	}

	ctx := context.Background()
	if err := env.Prime(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "provider catalog error: %v\n", err)
		return ExitPlanError
	}
	resources, err := planner.Plan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "planning failed: %v\n", err)
		return ExitPlanError
	}

	if *manifest {
		generator, err := codegen.NewGenerator(env, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "manifest generation failed: %v\n", err)
			return ExitPlanError
		}
		rendered, err := generator.Generate(ctx, dep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "manifest generation failed: %v\n", err)
			return ExitPlanError
		}
		os.Stdout.Write(rendered)
		return ExitSuccess
	}

	out := plannedOutput{
		ID:        dep.ID,
		Name:      dep.Name,
		Status:    string(dep.Status),
		Resources: resources,
	}
	encoded, err := yaml.Marshal(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot encode plan: %v\n", err)
		return ExitPlanError
	}
	os.Stdout.Write(encoded)
	return ExitSuccess
}
