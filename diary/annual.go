package diary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/logging"
	"github.com/theimaginaryfoundation/diary-o-bot/diary/provider"
)

var yearToken = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

var (
	spaceRun     = regexp.MustCompile(`[ \t]{2,}`)
	spaceBeforeP = regexp.MustCompile(`[ \t]+([,.;:!?])`)
)

// ScrubFutureYears removes every four-digit year token later than year from s.
func ScrubFutureYears(s string, year int) string {
	changed := false
	out := yearToken.ReplaceAllStringFunc(s, func(tok string) string {
		if y, err := strconv.Atoi(tok); err == nil && y > year {
			changed = true
			return ""
		}
		return tok
	})
	if !changed {
		return s
	}
	out = spaceRun.ReplaceAllString(out, " ")
	out = spaceBeforeP.ReplaceAllString(out, "$1")
	return strings.TrimSpace(out)
}

// FutureYears lists the year tokens in s that are later than year.
func FutureYears(s string, year int) []string {
	var out []string
	for _, tok := range yearToken.FindAllString(s, -1) {
		if y, err := strconv.Atoi(tok); err == nil && y > year {
			out = append(out, tok)
		}
	}
	return out
}

// Synthesizer writes one reflective summary per year from the stored day artifacts.
type Synthesizer struct {
	client   provider.Client
	store    *Store
	composer Composer
	logger   *logging.Logger
}

func NewSynthesizer(client provider.Client, store *Store, composer Composer, logger *logging.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Synthesizer{client: client, store: store, composer: composer, logger: logger}
}

// SynthesizeYear summarizes year from its stored diaries and persists the result. It chains
// on the previous year's stored summary when one exists.
func (s *Synthesizer) SynthesizeYear(ctx context.Context, year string, knowledge BackgroundKnowledge) (YearArtifact, Outcome, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return YearArtifact{}, nil, fmt.Errorf("SynthesizeYear: invalid year %q", year)
	}
	diaries, err := s.store.LoadYear(year)
	if err != nil {
		return YearArtifact{}, nil, fmt.Errorf("SynthesizeYear: %w", err)
	}
	if len(diaries) == 0 {
		return YearArtifact{}, nil, fmt.Errorf("SynthesizeYear: %s: %w", year, ErrNotFound)
	}

	var previous string
	prevYear := strconv.Itoa(y - 1)
	if prev, err := s.store.LoadYearSummary(prevYear); err == nil {
		previous = "# " + prev.Title + "\n\n" + prev.Content
	} else if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("year %s: cannot read %s summary: %v", year, prevYear, err)
	}

	resp, err := s.client.Generate(ctx, s.composer.ComposeYear(year, diaries, knowledge, previous))
	if err != nil {
		return YearArtifact{}, nil, fmt.Errorf("SynthesizeYear: %s: %w", year, err)
	}

	outcome := ParseResult(resp.Text, YearFallback(year))
	if fb, ok := outcome.(Fallback); ok {
		s.logger.Warn("year %s: using fallback summary: %v", year, fb.Cause)
	}
	title, content := outcome.Pair()
	if scrubbed := ScrubFutureYears(title, y); scrubbed != "" {
		title = scrubbed
	} else {
		title = year + " Annual Summary"
	}
	content = ScrubFutureYears(content, y)
	if content == "" {
		content = emptyResponse
	}

	a, err := s.store.SaveYearSummary(year, title, content)
	if err != nil {
		return YearArtifact{}, outcome, fmt.Errorf("SynthesizeYear: %w", err)
	}
	return a, outcome, nil
}
