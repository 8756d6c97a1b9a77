package runcmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tavolo/internal/config"
	"tavolo/internal/llm"
	"tavolo/internal/protocol"
	"tavolo/internal/run"
	"tavolo/internal/tasks"
)

var (
	feedback  string
	statePath string
)

// Cmd runs one request end to end from the CLI, printing each protocol event
// as a JSON line. With --feedback (and optionally --state pointing at a saved
// snapshot) it performs a feedback continuation instead of a fresh search.
var Cmd = &cobra.Command{
	Use:   "run <location>",
	Short: "Run a single request and print its event stream",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		llmCfg, ok := cfg.LLMs[cfg.DefaultLLM]
		if !ok {
			return fmt.Errorf("default LLM %q not found in config", cfg.DefaultLLM)
		}
		provider := llm.NewOpenAI(llmCfg.BaseURL, llmCfg.APIKey, llmCfg.Model)
		registry := tasks.DefaultRegistry(provider, cfg.Services.Brave.APIKey)

		enc := json.NewEncoder(os.Stdout)
		ctrl := run.New(registry, func(ev protocol.Event) {
			enc.Encode(ev)
		}, run.WithSettle(
			time.Duration(cfg.Timing.PhaseSettleMS)*time.Millisecond,
			time.Duration(cfg.Timing.DeltaSettleMS)*time.Millisecond,
		))

		in := run.Input{
			ThreadID: uuid.NewString(),
			RunID:    uuid.NewString(),
			Feedback: feedback,
		}
		if len(args) > 0 {
			in.Location = args[0]
		}

		if feedback != "" {
			if statePath != "" {
				data, err := os.ReadFile(statePath)
				if err != nil {
					return fmt.Errorf("reading state snapshot: %w", err)
				}
				var prior map[string]any
				if err := json.Unmarshal(data, &prior); err != nil {
					return fmt.Errorf("decoding state snapshot: %w", err)
				}
				in.PriorState = prior
			}
			in.OriginalLocation = in.Location
			return ctrl.RunFeedback(cmd.Context(), in)
		}

		if in.Location == "" {
			return fmt.Errorf("a location argument is required for an initial run")
		}
		return ctrl.Run(cmd.Context(), in)
	},
}

func init() {
	Cmd.Flags().StringVar(&feedback, "feedback", "", "feedback text for a continuation run")
	Cmd.Flags().StringVar(&statePath, "state", "", "path to a saved state snapshot for a continuation run")
}
