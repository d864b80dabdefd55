package diary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/logging"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/provider"
)

const (
	noConversationTitleSuffix = " - No conversations"
	noConversationContent     = "I didn't have any conversations today."
)

// Settings tunes per-day processing.
type Settings struct {
	Digest        DigestOptions
	ContextWindow int
}

// Pipeline generates one entry per corpus date, then one summary per year. It is not safe
// for concurrent use.
type Pipeline struct {
	Client    provider.Client
	Store     *Store
	Ledger    *Ledger
	Knowledge BackgroundKnowledge
	Composer  Composer
	Settings  Settings
	Logger    *logging.Logger
	// Progress receives a progress bar, one tick per date. Nil disables it.
	Progress io.Writer
}

type RunOptions struct {
	// Overwrite regenerates every date and year, ignoring and resetting the ledger.
	Overwrite bool
}

type RunStats struct {
	Days            int
	Generated       int
	Fallbacks       int
	NoConversation  int
	Resumed         int
	Failed          int
	YearsSummarized int
	YearsSkipped    int
	YearsFailed     int
	Calls           int
}

type runState struct {
	opts      RunOptions
	acc       *Accumulator
	window    *Window
	generated map[string]bool // years with at least one day written this run
	stats     RunStats
}

// Run processes corpus in date order. Per-day and per-year failures are logged and counted;
// the returned error is reserved for setup failures and cancellation.
func (p *Pipeline) Run(ctx context.Context, corpus Corpus, opts RunOptions) (RunStats, error) {
	if p.Client == nil || p.Store == nil || p.Ledger == nil {
		return RunStats{}, errors.New("Pipeline.Run: client, store and ledger are required")
	}
	if p.Logger == nil {
		p.Logger = logging.Discard()
	}
	if p.Composer.MaxRecent <= 0 {
		p.Composer.MaxRecent = p.Settings.ContextWindow
	}

	if opts.Overwrite {
		p.Logger.Info("overwrite mode: ignoring and resetting %s", p.Ledger.Path())
		if err := p.Ledger.Reset(); err != nil {
			return RunStats{}, fmt.Errorf("Pipeline.Run: %w", err)
		}
	}

	st := &runState{
		opts:      opts,
		acc:       &Accumulator{},
		window:    NewWindow(p.Settings.ContextWindow),
		generated: make(map[string]bool),
	}

	dates := corpus.Dates()
	st.stats.Days = len(dates)
	p.Logger.Info("found %d days with conversations", len(dates))

	var bar *progressbar.ProgressBar
	if p.Progress != nil && len(dates) > 0 {
		bar = progressbar.NewOptions(len(dates),
			progressbar.OptionSetDescription("  Generating diaries"),
			progressbar.OptionSetWriter(p.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return st.stats, err
		}
		if !opts.Overwrite && p.Ledger.Has(date) && p.resume(date, st) {
			st.stats.Resumed++
		} else {
			p.processDay(ctx, date, corpus[date], st)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	p.Logger.Info("diary generation complete: generated=%d resumed=%d failed=%d", st.stats.Generated+st.stats.NoConversation, st.stats.Resumed, st.stats.Failed)

	if err := p.summarizeYears(ctx, dates, st); err != nil {
		return st.stats, err
	}
	return st.stats, nil
}

// resume loads a previously processed day into context. It reports false when the artifact
// is missing, in which case the day is regenerated.
func (p *Pipeline) resume(date string, st *runState) bool {
	a, err := p.Store.LoadDay(date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			p.Logger.Warn("%s is in the ledger but has no artifact; regenerating", date)
		} else {
			p.Logger.Warn("%s: cannot load artifact (%v); regenerating", date, err)
		}
		return false
	}
	p.Logger.Debug("skipping %s - already processed", date)
	if a.Title == noConversationTitle(date) {
		return true
	}
	e := NarrativeEntry{Date: date, Title: a.Title, Content: a.Content}
	st.acc.Append(e)
	st.window.Push(e)
	return true
}

func noConversationTitle(date string) string { return date + noConversationTitleSuffix }

func (p *Pipeline) processDay(ctx context.Context, date string, convs []Conversation, st *runState) {
	digest := Digest(convs, p.Settings.Digest)
	if digest == "" {
		p.Logger.Warn("no valid conversations for %s", date)
		if _, err := p.Store.Save(date, noConversationTitle(date), noConversationContent); err != nil {
			p.Logger.Error("error processing %s: %v", date, err)
			st.stats.Failed++
			return
		}
		st.stats.NoConversation++
		st.generated[yearOf(date)] = true
		p.record(date)
		return
	}

	req := p.Composer.ComposeDay(date, digest, p.Knowledge, st.window.Recent())
	st.stats.Calls++
	resp, err := p.Client.Generate(ctx, req)
	if err != nil {
		p.Logger.Error("error processing %s: %v", date, err)
		st.stats.Failed++
		return
	}

	model := resp.Model
	if model == "" {
		model = p.Client.Model()
	}
	outcome := ParseResult(resp.Text, DayFallback(model))
	if fb, ok := outcome.(Fallback); ok {
		p.Logger.Warn("%s: using fallback entry: %v", date, fb.Cause)
		st.stats.Fallbacks++
	}
	title, content := outcome.Pair()

	a, err := p.Store.Save(date, title, content)
	if err != nil {
		p.Logger.Error("error processing %s: %v", date, err)
		st.stats.Failed++
		return
	}
	e := NarrativeEntry{Date: date, Title: a.Title, Content: a.Content}
	st.acc.Append(e)
	st.window.Push(e)
	st.generated[yearOf(date)] = true
	st.stats.Generated++
	p.record(date)
	p.Logger.Info("generated diary for %s: %s", date, a.Title)
}

func (p *Pipeline) record(date string) {
	if err := p.Ledger.Record(date); err != nil {
		p.Logger.Error("%s: artifact written but ledger not updated: %v", date, err)
	}
}

// summarizeYears writes one summary per corpus year with stored diaries. Without overwrite,
// an existing summary is kept unless its year, or the year before it, changed in this run.
func (p *Pipeline) summarizeYears(ctx context.Context, dates []string, st *runState) error {
	var years []string
	seen := make(map[string]bool)
	for _, d := range dates {
		if y := yearOf(d); !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}

	synth := NewSynthesizer(p.Client, p.Store, p.Composer, p.Logger)
	prevChanged := false
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return err
		}
		stale := st.opts.Overwrite || st.generated[year] || prevChanged || !p.Store.HasYearSummary(year)
		if !stale {
			p.Logger.Debug("annual summary for %s is up to date", year)
			st.stats.YearsSkipped++
			prevChanged = false
			continue
		}

		diaries, err := p.Store.LoadYear(year)
		if err != nil {
			p.Logger.Error("error generating summary for %s: %v", year, err)
			st.stats.YearsFailed++
			prevChanged = false
			continue
		}
		if len(diaries) == 0 {
			p.Logger.Warn("no diaries found for %s", year)
			prevChanged = false
			continue
		}

		p.Logger.Info("generating annual summary for %s", year)
		st.stats.Calls++
		a, _, err := synth.SynthesizeYear(ctx, year, p.Knowledge)
		if err != nil {
			p.Logger.Error("error generating summary for %s: %v", year, err)
			st.stats.YearsFailed++
			prevChanged = false
			continue
		}
		p.Logger.Info("annual summary for %s saved to %s", year, a.Path)
		st.stats.YearsSummarized++
		prevChanged = true
	}
	return nil
}
