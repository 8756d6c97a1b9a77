package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DefaultLLM string                `toml:"default_llm"`
	LLMs       map[string]*LLMConfig `toml:"llm"`
	Gateway    GatewayConfig         `toml:"gateway"`
	Services   ServicesConfig        `toml:"services"`
	Timing     TimingConfig          `toml:"timing"`
	RunLog     RunLogConfig          `toml:"runlog"`
	Trace      TraceConfig           `toml:"trace"`
}

type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type GatewayConfig struct {
	Addr string `toml:"addr"`
}

type ServicesConfig struct {
	Brave BraveConfig `toml:"brave"`
}

type BraveConfig struct {
	APIKey string `toml:"api_key"`
}

// TimingConfig sets the settle pauses after state deltas. They exist so an
// observer polling snapshots sees every intermediate phase; zero disables
// them without changing event order.
type TimingConfig struct {
	PhaseSettleMS int `toml:"phase_settle_ms"`
	DeltaSettleMS int `toml:"delta_settle_ms"`
}

type RunLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type TraceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

func Load() (*Config, error) {
	cfg := &Config{
		DefaultLLM: "openai",
		LLMs: map[string]*LLMConfig{
			"openai": {
				Model: "gpt-4o-mini",
			},
		},
		Gateway: GatewayConfig{
			Addr: ":8420",
		},
		Timing: TimingConfig{
			PhaseSettleMS: 1500,
			DeltaSettleMS: 500,
		},
		RunLog: RunLogConfig{
			Path: defaultRunLogPath(),
		},
	}

	path := configPath()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func configPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "tavolo", "config.toml")
}

func defaultRunLogPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "tavolo", "tavolo.db")
}
