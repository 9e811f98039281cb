package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/design-coach/internal/coach"
	"github.com/jonathan/design-coach/internal/observability"
	"github.com/jonathan/design-coach/internal/stages"
)

var validateInput string

var validateCmd = &cobra.Command{
	Use:   "validate <stage>",
	Short: "Run one wizard stage locally",
	Long: "Reads a stage request body (the same JSON the HTTP endpoint accepts), runs the stage " +
		"and prints the result as JSON. With --verbose a boxed summary also goes to stderr.\n\n" +
		"Stages: " + strings.Join(stages.Order(), ", "),
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateInput, "input", "i", "", "Path to the request JSON file (required)")
	if err := validateCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}
	rootCmd.AddCommand(validateCmd)
}

// stageRunner decodes a request body and runs it on the service.
type stageRunner func(ctx context.Context, svc *coach.Service, body []byte) (any, error)

type validatable[T any] interface {
	*T
	Validate() error
}

func runner[Req any, PReq validatable[Req], Resp any](run func(*coach.Service, context.Context, PReq) (*Resp, error)) stageRunner {
	return func(ctx context.Context, svc *coach.Service, body []byte) (any, error) {
		req := PReq(new(Req))
		if err := json.Unmarshal(body, req); err != nil {
			return nil, fmt.Errorf("failed to parse request JSON: %w", err)
		}
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		return run(svc, ctx, req)
	}
}

var runners = map[string]stageRunner{
	stages.Requirements:     runner((*coach.Service).Requirements),
	stages.APIDesign:        runner((*coach.Service).APIs),
	stages.HighLevelDiagram: runner((*coach.Service).Diagram),
	stages.BackOfEnvelope:   runner((*coach.Service).Estimation),
	stages.DataModel:        runner((*coach.Service).DataModel),
	stages.EndToEndFlow:     runner((*coach.Service).Flow),
	stages.DeepDives:        runner((*coach.Service).DeepDives),
	stages.DetailedDiagram:  runner((*coach.Service).DetailedDiagram),
}

func runValidate(cmd *cobra.Command, args []string) error {
	stage := args[0]
	run, ok := runners[stage]
	if !ok {
		return fmt.Errorf("unknown stage %q (expected one of %s)", stage, strings.Join(stages.Order(), ", "))
	}

	body, err := os.ReadFile(validateInput)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", validateInput, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	svc, client, err := buildService(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	result, err := run(cmd.Context(), svc, body)
	if err != nil {
		return fmt.Errorf("stage %s failed: %w", stage, err)
	}

	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).Print(result)
	}
	return writeJSON(cmd, result)
}
