package diary

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
)

const (
	dayFallbackRunes  = 500
	yearFallbackRunes = 1500
	emptyResponse     = "(empty response)"
)

// Outcome is the result of parsing a raw response: either Parsed or Fallback.
type Outcome interface {
	Pair() (title, content string)
	isOutcome()
}

// Parsed is a response that decoded into a non-blank title and content.
type Parsed struct {
	Title   string
	Content string
}

// Fallback is a placeholder built from the raw text when decoding failed.
type Fallback struct {
	Title   string
	Content string
	Cause   error
}

func (p Parsed) Pair() (string, string)   { return p.Title, p.Content }
func (f Fallback) Pair() (string, string) { return f.Title, f.Content }
func (Parsed) isOutcome()                 {}
func (Fallback) isOutcome()               {}

// FallbackSpec says how to build a Fallback.
type FallbackSpec struct {
	Title    string
	MaxRunes int
}

func DayFallback(model string) FallbackSpec {
	if strings.TrimSpace(model) == "" {
		model = "unknown model"
	}
	return FallbackSpec{Title: "Diary - " + model, MaxRunes: dayFallbackRunes}
}

func YearFallback(year string) FallbackSpec {
	return FallbackSpec{Title: year + " Annual Summary", MaxRunes: yearFallbackRunes}
}

var errBlankField = errors.New("title or content is blank")

// ParseResult never fails: a response that is not a JSON object with non-blank title and
// content becomes a Fallback carrying a prefix of the raw text.
func ParseResult(raw string, fb FallbackSpec) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fallback(raw, fb, fmt.Errorf("panic while parsing: %v", r))
		}
	}()

	var v struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := fileutils.DecodeModelJSON(raw, &v); err != nil {
		return fallback(raw, fb, err)
	}
	title, content := strings.TrimSpace(v.Title), strings.TrimSpace(v.Content)
	if title == "" || content == "" {
		return fallback(raw, fb, errBlankField)
	}
	return Parsed{Title: title, Content: content}
}

func fallback(raw string, fb FallbackSpec, cause error) Fallback {
	title := strings.TrimSpace(fb.Title)
	if title == "" {
		title = "Untitled"
	}
	content := strings.TrimSpace(raw)
	if fb.MaxRunes > 0 {
		content = fileutils.PrefixRunes(content, fb.MaxRunes)
	}
	if strings.TrimSpace(content) == "" {
		content = emptyResponse
	}
	return Fallback{Title: title, Content: content, Cause: cause}
}
