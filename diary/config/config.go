// Package config loads the diary generator's YAML configuration and example input.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/logging"
)

type Config struct {
	LLM           LLM           `yaml:"llm"`
	DiarySettings DiarySettings `yaml:"diary_settings"`
	Output        Output        `yaml:"output"`
	Logging       Logging       `yaml:"logging"`
	AnnualResume  Eras          `yaml:"_annual_resume"`
}

type LLM struct {
	Provider        string   `yaml:"provider"`
	API             string   `yaml:"api"`
	Model           string   `yaml:"model"`
	BaseURL         string   `yaml:"base_url"`
	APIKey          string   `yaml:"api_key"`
	Temperature     *float64 `yaml:"temperature"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
}

type DiarySettings struct {
	MinConversationLength int    `yaml:"min_conversation_length"`
	ContextWindow         int    `yaml:"context_window"`
	Language              string `yaml:"language"`
	MaxMessageChars       int    `yaml:"max_message_chars"`
}

type Output struct {
	BaseDir      string `yaml:"base_dir"`
	ProgressFile string `yaml:"progress_file"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used for any key the file leaves out.
func Default() Config {
	return Config{
		LLM: LLM{
			Provider:        "openai",
			API:             "responses",
			Model:           "gpt-5-mini",
			MaxOutputTokens: 4000,
		},
		DiarySettings: DiarySettings{
			MinConversationLength: 10,
			ContextWindow:         50,
			Language:              "English",
			MaxMessageChars:       500,
		},
		Output: Output{
			BaseDir: filepath.Join("output", "diaries"),
		},
		Logging: Logging{
			Level: "INFO",
			File:  filepath.Join("log", "diary.log"),
		},
	}
}

// Load reads path over Default(). It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %s: %w", path, err)
	}
	return cfg, nil
}

// ProgressPath is output.progress_file, or progress.json under output.base_dir.
func (c Config) ProgressPath() string {
	if strings.TrimSpace(c.Output.ProgressFile) != "" {
		return c.Output.ProgressFile
	}
	return filepath.Join(c.Output.BaseDir, "progress.json")
}

func isPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "YOUR_") && strings.HasSuffix(s, "_HERE")
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "openai":
		switch strings.ToLower(strings.TrimSpace(c.LLM.API)) {
		case "", "responses", "chat":
		default:
			return fmt.Errorf("llm.api must be responses or chat, got %q", c.LLM.API)
		}
	case "anthropic":
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model is required")
	}
	if isPlaceholder(c.LLM.BaseURL) {
		return errors.New("llm.base_url still holds the placeholder; set it or leave it empty")
	}
	if isPlaceholder(c.LLM.APIKey) {
		return errors.New("llm.api_key still holds the placeholder; set it or leave it empty to use the environment")
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", *t)
	}
	if c.LLM.MaxOutputTokens < 0 {
		return errors.New("llm.max_output_tokens must be >= 0")
	}
	if c.DiarySettings.MinConversationLength < 0 {
		return errors.New("diary_settings.min_conversation_length must be >= 0")
	}
	if c.DiarySettings.ContextWindow <= 0 {
		return errors.New("diary_settings.context_window must be > 0")
	}
	if c.DiarySettings.MaxMessageChars <= 0 {
		return errors.New("diary_settings.max_message_chars must be > 0")
	}
	if strings.TrimSpace(c.Output.BaseDir) == "" {
		return errors.New("output.base_dir is required")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
