// Command autoassist is the CLI for the automotive assistant. It spawns the
// MCP server as a child process and either lists its tools, runs a canned
// scenario, or drives an LLM tool-calling session for a prompt.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/motormind/autoassist/pkg/client"
	"github.com/motormind/autoassist/pkg/config"
	"github.com/motormind/autoassist/pkg/llm"
	"github.com/motormind/autoassist/pkg/logging"
	"github.com/motormind/autoassist/pkg/observability"
	"github.com/motormind/autoassist/pkg/orchestrator"
	"github.com/motormind/autoassist/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	listTools := flag.Bool("list-tools", false, "list the server's tools and exit")
	prompt := flag.String("prompt", "", "user prompt for the assistant")
	model := flag.String("model", "", "chat model override")
	serverCmd := flag.String("server-cmd", "", "server command override, e.g. \"./bin/autoassist-server -log-level debug\"")
	scenario := flag.String("scenario", "", "run a canned scenario: check_engine, route_risk, pre_trip, safe_drive")
	flag.Parse()

	// A local .env is a convenience for OPENAI_API_KEY; its absence is fine.
	_ = godotenv.Load()

	if err := run(*configPath, *logLevel, *listTools, *prompt, *model, *serverCmd, *scenario); err != nil {
		fmt.Fprintf(os.Stderr, "autoassist: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string, listTools bool, prompt, model, serverCmd, scenario string) error {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if model != "" {
		cfg.OpenAI.Model = model
	}
	if serverCmd != "" {
		cfg.Server.Command = strings.Fields(serverCmd)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(logLevel)).
		WithFields(logging.String("component", "cli"))
	ctx := context.Background()

	if scenario != "" {
		return runScenario(scenario, logger)
	}
	if !listTools && prompt == "" {
		return fmt.Errorf("nothing to do: pass -prompt, -list-tools or -scenario")
	}

	// The model client and tracer are built before the server child is
	// spawned: a bad credential must fail here, before any wire I/O.
	var chat llm.Client
	var tracer *observability.TracingProvider
	if prompt != "" {
		chat, err = newChatClient(cfg, logger)
		if err != nil {
			return err
		}
		if cfg.Tracing.Endpoint != "" {
			tracer, err = observability.NewTracingProvider(ctx, observability.TracingConfig{
				ServiceName: "autoassist",
				Environment: cfg.Tracing.Environment,
				Endpoint:    cfg.Tracing.Endpoint,
				Insecure:    cfg.Tracing.Insecure,
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := tracer.Shutdown(context.Background()); err != nil {
					logger.Warn("trace export shutdown", logging.ErrorField(err))
				}
			}()
		}
	}

	clientOpts := []client.Option{
		client.WithLogger(logger),
		client.WithCloseTimeout(cfg.CloseTimeout()),
	}
	if tracer != nil {
		clientOpts = append(clientOpts, client.WithTracing(tracer))
	}
	cl, err := client.Spawn(cfg.Server.Command[0], cfg.Server.Command[1:], clientOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := cl.Close(); err != nil {
			logger.Warn("server shutdown", logging.ErrorField(err))
		}
	}()

	if _, err := cl.Initialize(ctx); err != nil {
		return err
	}
	tools, err := cl.ListTools(ctx)
	if err != nil {
		return err
	}

	if listTools {
		for _, tool := range tools {
			fmt.Printf("%s\t%s\n", tool.Name, tool.Description)
		}
		return nil
	}

	return runPrompt(ctx, cfg, chat, cl, tracer, tools, prompt, logger)
}

func runScenario(name string, logger logging.Logger) error {
	o := orchestrator.New(orchestrator.WithLogger(logger))
	result, err := o.Run(name)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func newChatClient(cfg *config.Config, logger logging.Logger) (llm.Client, error) {
	opts := []llm.OpenAIOption{llm.WithClientLogger(logger)}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	return llm.NewOpenAIClient(cfg.OpenAI.APIKey, opts...)
}

func runPrompt(ctx context.Context, cfg *config.Config, chat llm.Client, cl *client.Client, tracer *observability.TracingProvider, tools []protocol.Tool, prompt string, logger logging.Logger) error {
	loopOpts := []llm.LoopOption{llm.WithLoopLogger(logger)}
	if tracer != nil {
		loopOpts = append(loopOpts, llm.WithLoopTracer(tracer))
	}

	loop := llm.NewLoop(chat, cl, cfg.OpenAI.Model, loopOpts...)
	answer, err := loop.Run(ctx, prompt, tools)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}
