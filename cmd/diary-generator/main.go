package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/theimaginaryfoundation/diary-o-bot/diary"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/config"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/logging"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/provider"
)

// errUsage marks configuration problems that exit with status 2.
var errUsage = errors.New("usage")

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progress io.Writer = os.Stderr
	if cfg.NoProgress {
		progress = nil
	}
	stats, err := run(ctx, cfg, provider.New, progress)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		printStats(os.Stdout, stats)
		os.Exit(1)
	}
	printStats(os.Stdout, stats)
}

func printStats(w io.Writer, s diary.RunStats) {
	fmt.Fprintf(w, "days=%d generated=%d no_conversation=%d resumed=%d failed=%d fallbacks=%d years_summarized=%d years_skipped=%d years_failed=%d calls=%d\n",
		s.Days, s.Generated, s.NoConversation, s.Resumed, s.Failed, s.Fallbacks, s.YearsSummarized, s.YearsSkipped, s.YearsFailed, s.Calls)
}

func run(ctx context.Context, cfg Config, newClient func(provider.Settings) (provider.Client, error), progress io.Writer) (diary.RunStats, error) {
	fileCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return diary.RunStats{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	if cfg.APIKey != "" {
		fileCfg.LLM.APIKey = cfg.APIKey
	}
	if cfg.LogLevel != "" {
		fileCfg.Logging.Level = cfg.LogLevel
	}
	if err := fileCfg.Validate(); err != nil {
		return diary.RunStats{}, fmt.Errorf("%w: %s: %w", errUsage, cfg.ConfigPath, err)
	}

	level, _ := logging.ParseLevel(fileCfg.Logging.Level)
	logger, err := logging.Open(level, fileCfg.Logging.File)
	if err != nil {
		return diary.RunStats{}, err
	}
	defer logger.Close()

	example := config.Example{}
	if fileutils.FileExists(cfg.ExamplePath) {
		example, err = config.LoadExample(cfg.ExamplePath)
		if err != nil {
			return diary.RunStats{}, fmt.Errorf("%w: %w", errUsage, err)
		}
	} else {
		logger.Warn("example file %s not found; writing without an example diary", cfg.ExamplePath)
	}

	client, err := newClient(provider.Settings{
		Provider:        fileCfg.LLM.Provider,
		API:             fileCfg.LLM.API,
		Model:           fileCfg.LLM.Model,
		BaseURL:         fileCfg.LLM.BaseURL,
		APIKey:          fileCfg.LLM.APIKey,
		Temperature:     fileCfg.LLM.Temperature,
		MaxOutputTokens: fileCfg.LLM.MaxOutputTokens,
	})
	if err != nil {
		return diary.RunStats{}, fmt.Errorf("%w: %w", errUsage, err)
	}

	composer := diary.Composer{
		ExampleDiary: example.ExampleDiary,
		Requirements: string(example.Requirements),
		Language:     fileCfg.DiarySettings.Language,
		MaxRecent:    fileCfg.DiarySettings.ContextWindow,
	}

	knowledgeStore := diary.NewKnowledgeStore(client, composer, diary.BackgroundKnowledge(fileCfg.AnnualResume), func(k diary.BackgroundKnowledge) error {
		return config.SaveAnnualResume(cfg.ConfigPath, config.Eras(k))
	}, logger)
	knowledge, err := knowledgeStore.Ensure(ctx, example.ResumePlainText)
	switch {
	case errors.Is(err, diary.ErrNoBiography):
		logger.Warn("_annual_resume is incomplete and resume_plain_text is empty; continuing without full background")
	case err != nil:
		logger.Warn("failed to generate annual resume: %v", err)
	}

	loc, _ := cfg.Location()
	corpus, err := diary.ReadInput(ctx, cfg.InputPath, loc)
	if err != nil {
		return diary.RunStats{}, err
	}
	switch {
	case cfg.MaxDays > 0:
		corpus = diary.SelectFirstDays(corpus, cfg.MaxDays)
		logger.Info("test mode: processing first %d days", len(corpus))
	case cfg.Quick:
		corpus = diary.SelectPerYear(corpus, cfg.QuickPerYear)
		logger.Info("quick mode: processing up to %d days per year (%d days)", cfg.QuickPerYear, len(corpus))
	}

	ledger, err := diary.LoadLedger(fileCfg.ProgressPath())
	if err != nil {
		return diary.RunStats{}, err
	}

	p := &diary.Pipeline{
		Client:    client,
		Store:     diary.NewStore(fileCfg.Output.BaseDir),
		Ledger:    ledger,
		Knowledge: knowledge,
		Composer:  composer,
		Settings: diary.Settings{
			Digest: diary.DigestOptions{
				MinMessageLength: fileCfg.DiarySettings.MinConversationLength,
				MaxMessageChars:  fileCfg.DiarySettings.MaxMessageChars,
			},
			ContextWindow: fileCfg.DiarySettings.ContextWindow,
		},
		Logger:   logger,
		Progress: progress,
	}
	stats, err := p.Run(ctx, corpus, diary.RunOptions{Overwrite: cfg.Overwrite})
	if err != nil {
		return stats, fmt.Errorf("run: %w", err)
	}
	logger.Info("diaries written to %s", fileCfg.Output.BaseDir)
	return stats, nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	// Avoid mutating the global FlagSet if called from tests.
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to config.yaml")
	fs.StringVar(&cfg.ExamplePath, "example", cfg.ExamplePath, "Path to example_diary.json (example_diary, requirements, resume_plain_text)")
	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Date-keyed corpus JSON, raw conversations.json export, or export ZIP")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Regenerate every diary and summary, ignoring and resetting progress")
	fs.IntVar(&cfg.MaxDays, "max-days", 0, "Test mode: only process the first N days (0 = all)")
	fs.BoolVar(&cfg.Quick, "quick", false, "Quick mode: only process the first -quick-per-year days of each year")
	fs.IntVar(&cfg.QuickPerYear, "quick-per-year", cfg.QuickPerYear, "Days per year in quick mode")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides llm.api_key and the environment)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Override logging.level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&cfg.TimeZone, "tz", "", "IANA time zone for dating raw export conversations (default: local)")
	fs.BoolVar(&cfg.NoProgress, "no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/diary-generator -max-days 5")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/diary-generator -quick")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/diary-generator -in export.zip -tz Asia/Shanghai -overwrite")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ConfigPath = filepath.Clean(cfg.ConfigPath)
	cfg.InputPath = filepath.Clean(cfg.InputPath)
	if cfg.ExamplePath != "" {
		cfg.ExamplePath = filepath.Clean(cfg.ExamplePath)
	}
	return cfg, nil
}
