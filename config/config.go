// config 负责加载运行配置：模型接入参数与生成流程参数。
// 凭据可以放在配置文件里，也可以通过环境变量兜底。
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LLM holds the model transport settings handed to the chat client.
type LLM struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_seconds"`
	Seed        *int64  `yaml:"seed,omitempty"`
	CacheReply  bool    `yaml:"cache_reply"`
}

// Generation holds the pipeline knobs.
type Generation struct {
	NumStories      int    `yaml:"num_stories"`
	OutputDir       string `yaml:"output_dir"`
	OutlineRounds   int    `yaml:"outline_rounds"`
	StoryRounds     int    `yaml:"story_rounds"`
	RetryRounds     int    `yaml:"retry_rounds"`
	StoryDelaySec   int    `yaml:"story_delay_seconds"`
	MinContentChars int    `yaml:"min_content_chars"`
	MemoryWindow    int    `yaml:"memory_window"`
	MemoryBudget    int    `yaml:"memory_char_budget"`
	Premise         string `yaml:"premise,omitempty"`
}

// Config models the whole YAML file.
type Config struct {
	LLM        LLM        `yaml:"llm"`
	Generation Generation `yaml:"generation"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			TimeoutSec:  600,
		},
		Generation: Generation{
			NumStories:      10,
			OutputDir:       "story_output",
			OutlineRounds:   4,
			StoryRounds:     5,
			RetryRounds:     3,
			StoryDelaySec:   5,
			MinContentChars: 100,
		},
	}
}

// Load reads the YAML file at path, layered over Default. A missing file is
// not an error: defaults plus environment credentials still make a runnable
// config in mock mode.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv 用环境变量补齐缺失的凭据（.env 已由入口加载）。
func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
}

// Validate rejects configs the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Generation.NumStories < 1 {
		return fmt.Errorf("config: num_stories must be >= 1, got %d", c.Generation.NumStories)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config: temperature must be in [0, 2], got %v", c.LLM.Temperature)
	}
	if c.Generation.OutputDir == "" {
		return errors.New("config: output_dir is required")
	}
	if c.Generation.OutlineRounds < 1 || c.Generation.StoryRounds < 1 || c.Generation.RetryRounds < 1 {
		return errors.New("config: round limits must be >= 1")
	}
	return nil
}
