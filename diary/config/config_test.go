package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLoad_AppliesDefaultsAndNormalizesEras(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `llm:
  model: gpt-5-mini
  temperature: 0.3
output:
  base_dir: out
_annual_resume:
  2021_and_before: studied
  2022: first job
  "2023": moved cities
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.DiarySettings.ContextWindow != 50 || cfg.DiarySettings.MinConversationLength != 10 {
		t.Fatalf("defaults not applied: %+v", cfg.DiarySettings)
	}
	if cfg.LLM.Temperature == nil || *cfg.LLM.Temperature != 0.3 {
		t.Fatalf("temperature=%v", cfg.LLM.Temperature)
	}
	if got := cfg.AnnualResume[EraPre2022]; got != "studied" {
		t.Fatalf("pre-2022=%q, want studied", got)
	}
	if got := cfg.AnnualResume["2022"]; got != "first job" {
		t.Fatalf("2022=%q, want first job", got)
	}
	if got := cfg.AnnualResume["2023"]; got != "moved cities" {
		t.Fatalf("2023=%q", got)
	}
	if got, want := cfg.ProgressPath(), filepath.Join("out", "progress.json"); got != want {
		t.Fatalf("ProgressPath=%q, want %q", got, want)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	bad := func(mut func(*Config)) Config {
		c := Default()
		mut(&c)
		return c
	}
	hot := 3.0
	cases := map[string]Config{
		"placeholder base url": bad(func(c *Config) { c.LLM.BaseURL = "YOUR_BASE_URL_HERE" }),
		"placeholder api key":  bad(func(c *Config) { c.LLM.APIKey = "YOUR_API_KEY_HERE" }),
		"unknown provider":     bad(func(c *Config) { c.LLM.Provider = "llama" }),
		"unknown api":          bad(func(c *Config) { c.LLM.API = "grpc" }),
		"empty model":          bad(func(c *Config) { c.LLM.Model = "" }),
		"temperature":          bad(func(c *Config) { c.LLM.Temperature = &hot }),
		"window":               bad(func(c *Config) { c.DiarySettings.ContextWindow = 0 }),
		"base dir":             bad(func(c *Config) { c.Output.BaseDir = " " }),
		"log level":            bad(func(c *Config) { c.Logging.Level = "LOUD" }),
	}
	for name, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate: %v", err)
	}
}

func TestSaveAnnualResume_ReplacesOnlyThatSection(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	orig := `# model settings
llm:
  model: gpt-5-mini # cheap
_annual_resume:
  2022: stale
logging:
  level: DEBUG
`
	p := writeFile(t, dir, "config.yaml", orig)

	eras := Eras{"2023": "c", EraPre2022: "a", "2022": "b", "2024": "d", "2025": "e"}
	if err := SaveAnnualResume(p, eras); err != nil {
		t.Fatalf("SaveAnnualResume: %v", err)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(b)
	for _, want := range []string{"# model settings", "# cheap", "level: DEBUG", `"pre-2022": a`, `"2022": b`} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "stale") {
		t.Fatalf("old section survived:\n%s", got)
	}
	if strings.Index(got, "llm:") > strings.Index(got, "_annual_resume:") ||
		strings.Index(got, "_annual_resume:") > strings.Index(got, "logging:") {
		t.Fatalf("key order changed:\n%s", got)
	}
	if strings.Index(got, `"pre-2022"`) > strings.Index(got, `"2022"`) {
		t.Fatalf("pre-2022 should come first:\n%s", got)
	}

	bak, err := os.ReadFile(p + ".bak")
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if string(bak) != orig {
		t.Fatalf("backup=%q, want original", string(bak))
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	if len(cfg.AnnualResume) != 5 || cfg.AnnualResume["2025"] != "e" {
		t.Fatalf("round trip=%v", cfg.AnnualResume)
	}
}

func TestSaveAnnualResume_AppendsWhenMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", "llm:\n  model: m\n")
	if err := SaveAnnualResume(p, Eras{EraPre2022: "x"}); err != nil {
		t.Fatalf("SaveAnnualResume: %v", err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "m" || cfg.AnnualResume[EraPre2022] != "x" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadExample(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "example.json", `{"example_diary":"Dear diary","requirements":["short","warm"],"resume_plain_text":"bio"}`)
	ex, err := LoadExample(p)
	if err != nil {
		t.Fatalf("LoadExample: %v", err)
	}
	if ex.ExampleDiary != "Dear diary" || ex.ResumePlainText != "bio" {
		t.Fatalf("ex=%+v", ex)
	}
	if string(ex.Requirements) != "short\nwarm" {
		t.Fatalf("requirements=%q", ex.Requirements)
	}

	p = writeFile(t, dir, "example2.json", `{"requirements":"be kind"}`)
	ex, err = LoadExample(p)
	if err != nil || string(ex.Requirements) != "be kind" {
		t.Fatalf("ex=%+v err=%v", ex, err)
	}

	if ex, err := LoadExample(""); err != nil || ex != (Example{}) {
		t.Fatalf("empty path: ex=%+v err=%v", ex, err)
	}
}
