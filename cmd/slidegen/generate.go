package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"slidegraph/internal/config"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	llmSvc "slidegraph/internal/domain/services/llm"
	"slidegraph/internal/handler/sse"
	"slidegraph/internal/service/generation"
	serviceLLM "slidegraph/internal/service/llm"
	"slidegraph/internal/service/llm/tools"
	"slidegraph/internal/service/llm/tools/external"
)

type generateOptions struct {
	*rootOptions
	Model       string
	Interactive bool
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opt := &generateOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a slide in-process using the configured model",
		Long: `Generate a slide in-process. Without an API key the offline lorem
provider is used. With --interactive each further line is sent as a
follow-up prompt on the same conversation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opt.Run(cmd.Context(), strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&opt.Model, "model", "", "Model to use (default SLIDE_MODEL)")
	cmd.Flags().BoolVarP(&opt.Interactive, "interactive", "i", false, "Keep prompting for follow-ups")
	return cmd
}

func (o *generateOptions) Run(ctx context.Context, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg := config.Load()
	if o.Model != "" {
		cfg.SlideModel = o.Model
	}
	logger := o.logger()

	prompts, err := config.LoadPrompts(cfg.PromptFile)
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}
	client, err := serviceLLM.NewModelClient(cfg, cfg.SlideModel, logger)
	if err != nil {
		return err
	}
	modelID, err := serviceLLM.RequestModel(cfg.SlideModel, cfg.ModelBaseURL)
	if err != nil {
		return err
	}
	registry := tools.NewToolRegistryBuilder(prompts).
		WithRenderSlide().
		WithWebSearch(external.NewSearcherFromConfig(cfg, logger)).
		Build()
	engine := generation.NewEngine(client, registry, prompts, generation.EngineConfig{
		Model:           modelID,
		MaxTokens:       cfg.MaxTokens,
		MaxTurns:        cfg.MaxTurns,
		PartialInterval: cfg.PartialInterval,
		RenderAck:       prompts.RenderAck,
	}, logger)

	out := newPrinter(os.Stdout, o.Raw)
	scanner := bufio.NewScanner(os.Stdin)
	var history llm.History

	for {
		if strings.TrimSpace(prompt) == "" {
			fmt.Printf("%sPrompt (empty to quit): %s", colorCyan, colorReset)
			if !scanner.Scan() {
				return scanner.Err()
			}
			prompt = strings.TrimSpace(scanner.Text())
			if prompt == "" {
				fmt.Printf("%s✓ Goodbye!%s\n", colorGreen, colorReset)
				return nil
			}
		}

		done, err := generateOnce(ctx, engine, prompt, history, out, logger)
		if err != nil {
			return err
		}
		if done.Type == slide.EventDone {
			history = done.ConversationHistory
		}
		if !o.Interactive {
			return nil
		}
		prompt = ""
	}
}

// generateOnce streams one generation to out and returns its terminal event
func generateOnce(ctx context.Context, gen llmSvc.Generator, prompt string, history llm.History, out *printer, logger *slog.Logger) (slide.Event, error) {
	routine := func(ctx context.Context, emit llmSvc.EmitFunc) (slide.Event, error) {
		result, err := gen.Generate(ctx, prompt, history, emit)
		if err != nil {
			return slide.Event{}, err
		}
		if result == nil {
			return slide.Error("Failed to generate slide"), nil
		}
		return slide.Done("", nil, result.History), nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var terminal slide.Event
	events := sse.Stream(ctx, sse.DefaultConfig(), logger, routine)
	err := sse.Drain(events, func(ev slide.Event) error {
		terminal = ev
		return out.print(ev)
	})
	if err != nil {
		cancel()
		for range events {
		}
	}
	return terminal, err
}
