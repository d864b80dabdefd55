package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/theimaginaryfoundation/diary-o-bot/diary"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
)

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

	stats, err := run(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	printStats(os.Stdout, stats, cfg.OutputPath)
}

func printStats(w io.Writer, s diary.ExportStats, out string) {
	fmt.Fprintf(w, "conversations=%d kept=%d dropped=%d days=%d out=%s\n", s.Conversations, s.Kept, s.Dropped, s.Days, out)
}

func run(ctx context.Context, cfg Config) (diary.ExportStats, error) {
	if !cfg.Overwrite {
		for _, p := range []string{cfg.OutputPath, cfg.MarkdownPath} {
			if p != "" && fileutils.FileExists(p) {
				return diary.ExportStats{}, fmt.Errorf("%s exists; pass -overwrite to replace it", p)
			}
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return diary.ExportStats{}, err
	}

	var (
		corpus diary.Corpus
		stats  diary.ExportStats
	)
	if strings.EqualFold(filepath.Ext(cfg.InputPath), ".zip") {
		corpus, stats, err = diary.ReadExportZip(ctx, cfg.InputPath, loc)
	} else {
		var f *os.File
		f, err = os.Open(cfg.InputPath)
		if err != nil {
			return diary.ExportStats{}, err
		}
		corpus, stats, err = diary.BuildCorpusFromExport(ctx, f, loc)
		_ = f.Close()
	}
	if err != nil {
		return diary.ExportStats{}, err
	}

	if err := diary.WriteCorpus(cfg.OutputPath, corpus); err != nil {
		return stats, err
	}
	if cfg.MarkdownPath != "" {
		var buf bytes.Buffer
		if err := diary.WriteCorpusMarkdown(&buf, corpus, loc); err != nil {
			return stats, err
		}
		if err := fileutils.WriteFileAtomic(cfg.MarkdownPath, buf.Bytes(), 0o644); err != nil {
			return stats, fmt.Errorf("write markdown: %w", err)
		}
	}
	return stats, nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	// Avoid mutating the global FlagSet if called from tests.
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Path to conversations.json or the export ZIP")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Where to write the date-keyed corpus JSON")
	fs.StringVar(&cfg.MarkdownPath, "md", "", "Optional path for a Markdown transcript of the corpus")
	fs.StringVar(&cfg.TimeZone, "tz", "", "IANA time zone used to assign conversations to dates (default: local)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/corpus-builder -in export.zip -overwrite")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/corpus-builder -in data/conversations.json -md data/conversations.md -tz Asia/Shanghai")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.InputPath = filepath.Clean(cfg.InputPath)
	cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	if cfg.MarkdownPath != "" {
		cfg.MarkdownPath = filepath.Clean(cfg.MarkdownPath)
	}
	return cfg, nil
}
