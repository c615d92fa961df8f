// Package config loads teamd/teamctl runtime configuration: provider base
// URLs, default models, and scheduler timing overrides. It layers a
// teamkit.yaml file under viper with TEAMKIT_-prefixed environment
// variables, the way the rest of the pack favors viper+yaml for ambient
// configuration over a hand-rolled loader.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderConfig describes one LLM provider's connection details.
type ProviderConfig struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url"`
	DefaultModel string `mapstructure:"default_model" yaml:"default_model"`
	APIKeyEnv    string `mapstructure:"api_key_env" yaml:"api_key_env"`
}

// SchedulerConfig overrides the session scheduler's timing constants.
type SchedulerConfig struct {
	IdleSleep           time.Duration `mapstructure:"idle_sleep" yaml:"idle_sleep"`
	RoundSleep          time.Duration `mapstructure:"round_sleep" yaml:"round_sleep"`
	LeaderNudgeInterval time.Duration `mapstructure:"leader_nudge_interval" yaml:"leader_nudge_interval"`
	IdleTimeout         time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Config is the top-level teamd/teamctl configuration document.
type Config struct {
	BaseDir      string                    `mapstructure:"base_dir" yaml:"base_dir"`
	ListenAddr   string                    `mapstructure:"listen_addr" yaml:"listen_addr"`
	LLMCacheSize int                       `mapstructure:"llm_cache_size" yaml:"llm_cache_size"`
	Providers    map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Scheduler    SchedulerConfig           `mapstructure:"scheduler" yaml:"scheduler"`
}

func defaults() Config {
	return Config{
		BaseDir:      "./teamkit-data",
		ListenAddr:   ":8088",
		LLMCacheSize: 32,
		Providers:    map[string]ProviderConfig{},
		Scheduler: SchedulerConfig{
			IdleSleep:           1 * time.Second,
			RoundSleep:          500 * time.Millisecond,
			LeaderNudgeInterval: 60 * time.Second,
			IdleTimeout:         300 * time.Second,
		},
	}
}

// Load reads configFile if non-empty, otherwise the first teamkit.yaml
// found in . or $HOME (a missing file leaves the defaults), then applies TEAMKIT_-prefixed environment variable overrides, e.g.
// TEAMKIT_LISTEN_ADDR or TEAMKIT_BASE_DIR.
func Load(configFile string) (Config, error) {
	v := viper.New()
	cfg := defaults()

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("teamkit")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("TEAMKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_dir", cfg.BaseDir)
	v.SetDefault("listen_addr", cfg.ListenAddr)
	v.SetDefault("llm_cache_size", cfg.LLMCacheSize)
	v.SetDefault("scheduler.idle_sleep", cfg.Scheduler.IdleSleep)
	v.SetDefault("scheduler.round_sleep", cfg.Scheduler.RoundSleep)
	v.SetDefault("scheduler.leader_nudge_interval", cfg.Scheduler.LeaderNudgeInterval)
	v.SetDefault("scheduler.idle_timeout", cfg.Scheduler.IdleTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// APIKeyEnv returns the environment variable name holding provider's API
// key, defaulting to "<PROVIDER>_API_KEY" when unconfigured.
func (c Config) APIKeyEnv(provider string) string {
	if p, ok := c.Providers[provider]; ok && p.APIKeyEnv != "" {
		return p.APIKeyEnv
	}
	return strings.ToUpper(provider) + "_API_KEY"
}
