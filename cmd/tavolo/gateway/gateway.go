package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tavolo/internal/config"
	"tavolo/internal/gateway"
	"tavolo/internal/llm"
	"tavolo/internal/runlog"
	"tavolo/internal/tasks"
	"tavolo/internal/trace"
)

var addr string

var Cmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr != "" {
			cfg.Gateway.Addr = addr
		}

		if cfg.Trace.Enabled {
			shutdown, err := trace.Init(ctx, trace.Config{
				Endpoint: cfg.Trace.Endpoint,
				URLPath:  cfg.Trace.URLPath,
				APIKey:   cfg.Trace.APIKey,
			})
			if err != nil {
				return fmt.Errorf("initializing tracing: %w", err)
			}
			defer shutdown(context.Background())
		}

		llmCfg, ok := cfg.LLMs[cfg.DefaultLLM]
		if !ok {
			return fmt.Errorf("default LLM %q not found in config", cfg.DefaultLLM)
		}
		provider := llm.NewOpenAI(llmCfg.BaseURL, llmCfg.APIKey, llmCfg.Model)
		registry := tasks.DefaultRegistry(provider, cfg.Services.Brave.APIKey)

		opts := []gateway.ServerOption{
			gateway.WithSettle(
				time.Duration(cfg.Timing.PhaseSettleMS)*time.Millisecond,
				time.Duration(cfg.Timing.DeltaSettleMS)*time.Millisecond,
			),
		}
		if cfg.RunLog.Enabled {
			log, err := runlog.Open(cfg.RunLog.Path)
			if err != nil {
				return fmt.Errorf("opening run log: %w", err)
			}
			defer log.Close()
			if err := log.Migrate(); err != nil {
				return fmt.Errorf("migrating run log: %w", err)
			}
			opts = append(opts, gateway.WithRunLog(log))
			slog.Info("run log enabled", "path", cfg.RunLog.Path)
		}

		srv := gateway.NewServer(registry, opts...)
		slog.Info("starting gateway", "addr", cfg.Gateway.Addr)
		return srv.ListenAndServe(ctx, cfg.Gateway.Addr)
	},
}

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "override gateway listen address")
}
