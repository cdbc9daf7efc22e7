package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"travelhub/internal/gateway/app"
	"travelhub/internal/gateway/config"
	"travelhub/internal/generation"
	"travelhub/internal/llm"
	llmclient "travelhub/internal/llmClient"
	"travelhub/internal/trip"
)

func newRootCmd() *cobra.Command {
	var offline, verbose bool
	root := &cobra.Command{
		Use:           "planner",
		Short:         "Plan a trip with the itinerary generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&offline, "offline", false, "Use the built-in offline model instead of a provider")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log provider calls to stderr")

	env := func(cmd *cobra.Command) (*runtime, error) {
		return newRuntime(cmd.Context(), offline, verbose, cmd.ErrOrStderr())
	}
	root.AddCommand(questionsCmd(), validateCmd(env), generateCmd(env))
	return root
}

// runtime holds what one command invocation needs.
type runtime struct {
	orch      *generation.Orchestrator
	corrector *generation.Corrector
	client    llmclient.ChatClient
}

func newRuntime(ctx context.Context, offline, verbose bool, stderr io.Writer) (*runtime, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	var client llmclient.ChatClient
	if offline {
		client = llm.Wrap(llmclient.OfflineClient{}, llm.WithLogging(logger))
	} else {
		client, err = app.NewClient(ctx, cfg, logger, llm.NewUsageLedger(cfg.UsageLedgerPath))
		if err != nil {
			return nil, err
		}
	}
	orch, corrector, err := app.NewGeneration(cfg, client, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &runtime{orch: orch, corrector: corrector, client: client}, nil
}

func questionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the planning questions in answer order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			for i, q := range trip.Questions {
				fmt.Fprintf(out, "%d. %s\n", i, q)
			}
		},
	}
}

func validateCmd(env func(*cobra.Command) (*runtime, error)) *cobra.Command {
	var suggest bool
	cmd := &cobra.Command{
		Use:   "validate <index> <answer>",
		Short: "Check one answer against its question's rules",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil || idx < 0 || idx >= trip.QuestionCount {
				return fmt.Errorf("index must be between 0 and %d", trip.QuestionCount-1)
			}
			out := cmd.OutOrStdout()
			v := trip.Validate(idx, args[1])
			if v.Valid {
				fmt.Fprintln(out, "valid")
				return nil
			}
			fmt.Fprintf(out, "invalid: %s\n", v.Message)
			if !suggest {
				return nil
			}
			rt, err := env(cmd)
			if err != nil {
				return err
			}
			defer rt.client.Close()
			if s, ok := rt.corrector.Suggest(cmd.Context(), idx, args[1], v.Message); ok {
				fmt.Fprintf(out, "suggestion: %s\n", s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&suggest, "suggest", false, "Ask the model for a corrected answer")
	return cmd
}

// answersFile is the YAML shape accepted by generate --answers-file.
type answersFile struct {
	Answers []string `yaml:"answers"`
}

func readAnswers(path string) (trip.AnswerSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return trip.AnswerSet{}, err
	}
	var f answersFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return trip.AnswerSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return trip.ParseAnswers(f.Answers)
}

func generateCmd(env func(*cobra.Command) (*runtime, error)) *cobra.Command {
	var (
		answersPath string
		stream      bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an itinerary from a YAML answers file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if answersPath == "" {
				return errors.New("--answers-file is required")
			}
			answers, err := readAnswers(answersPath)
			if err != nil {
				return err
			}
			rt, err := env(cmd)
			if err != nil {
				return err
			}
			defer rt.client.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := cmd.OutOrStdout()
			var (
				res   *generation.GenerationResult
				trace generation.Trace
			)
			if stream {
				res, trace, err = rt.orch.GenerateStream(ctx, answers, func(c generation.StreamChunk) {
					switch {
					case c.IsFinal:
					case c.Reset:
						fmt.Fprintln(out, "\n--- attempt failed, starting over ---")
					default:
						fmt.Fprint(out, c.Text)
					}
				}, nil)
			} else {
				res, trace, err = rt.orch.Generate(ctx, answers)
			}
			if err != nil {
				return errors.New(generation.UserMessage(generation.KindOf(err)))
			}
			if !stream {
				fmt.Fprint(out, res.Content)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "\nmodel %s (%s tier), %d attempt(s), %d day(s)\n", res.Tier.Model, res.Tier.Name, len(trace), res.Params.DurationDays)
			return nil
		},
	}
	cmd.Flags().StringVarP(&answersPath, "answers-file", "f", "", "YAML file with an answers list")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print the itinerary as it is generated")
	return cmd
}
