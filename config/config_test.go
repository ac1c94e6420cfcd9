package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Generation.NumStories != 10 {
		t.Fatalf("num_stories = %d, want default 10", cfg.Generation.NumStories)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Fatalf("temperature = %v, want default 0.7", cfg.LLM.Temperature)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `llm:
  provider: openai
  model: gpt-4o
  temperature: 1.2
generation:
  num_stories: 3
  output_dir: out
  memory_window: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Generation.NumStories != 3 {
		t.Fatalf("num_stories = %d, want 3", cfg.Generation.NumStories)
	}
	if cfg.Generation.MemoryWindow != 2 {
		t.Fatalf("memory_window = %d, want 2", cfg.Generation.MemoryWindow)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("model = %q, want gpt-4o", cfg.LLM.Model)
	}
	// untouched keys keep their defaults
	if cfg.Generation.StoryRounds != 5 {
		t.Fatalf("story_rounds = %d, want default 5", cfg.Generation.StoryRounds)
	}
}

func TestValidateRejectsBadTemperature(t *testing.T) {
	cfg := Default()
	cfg.LLM.Temperature = 2.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for temperature out of range")
	}
}

func TestValidateRejectsZeroStories(t *testing.T) {
	cfg := Default()
	cfg.Generation.NumStories = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for num_stories = 0")
	}
}

func TestEnvFallbackFillsAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("api_key = %q, want env value", cfg.LLM.APIKey)
	}
}
