package diary

import (
	"strings"
	"testing"
)

func TestParseResult_Parsed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{"title":" A good day ","content":"I walked."}`,
		"Sure! Here it is:\n```json\n{\"title\":\"A good day\",\"content\":\"I walked.\"}\n```",
	} {
		out := ParseResult(raw, DayFallback("m"))
		p, ok := out.(Parsed)
		if !ok {
			t.Fatalf("ParseResult(%q)=%T, want Parsed", raw, out)
		}
		if p.Title != "A good day" || p.Content != "I walked." {
			t.Fatalf("p=%+v", p)
		}
	}
}

func TestParseResult_FallbackIsTotal(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"not json at all",
		`{"title":"only a title"}`,
		`{"title":"","content":"x"}`,
		`{"title":1,"content":2}`,
		`[1,2,3]`,
		`null`,
		"{{{{",
		"}{",
		strings.Repeat("{", 1000),
		"\xff\xfe\xfd",
	}
	for _, raw := range inputs {
		out := ParseResult(raw, DayFallback("gpt-test"))
		fb, ok := out.(Fallback)
		if !ok {
			t.Fatalf("ParseResult(%q)=%T, want Fallback", raw, out)
		}
		title, content := fb.Pair()
		if title != "Diary - gpt-test" {
			t.Fatalf("title=%q", title)
		}
		if strings.TrimSpace(content) == "" {
			t.Fatalf("ParseResult(%q): blank content", raw)
		}
		if fb.Cause == nil {
			t.Fatalf("ParseResult(%q): nil cause", raw)
		}
	}
}

func TestParseResult_FallbackContent(t *testing.T) {
	t.Parallel()

	if _, c := ParseResult("", DayFallback("m")).Pair(); c != "(empty response)" {
		t.Fatalf("content=%q", c)
	}

	raw := strings.Repeat("é", 2000)
	_, c := ParseResult(raw, DayFallback("m")).Pair()
	if c != strings.Repeat("é", 500) {
		t.Fatalf("day fallback len=%d runes", len([]rune(c)))
	}
	title, c := ParseResult(raw, YearFallback("2023")).Pair()
	if title != "2023 Annual Summary" || c != strings.Repeat("é", 1500) {
		t.Fatalf("year fallback title=%q runes=%d", title, len([]rune(c)))
	}
}

func TestDayFallback_UnknownModel(t *testing.T) {
	t.Parallel()

	if got := DayFallback("").Title; got != "Diary - unknown model" {
		t.Fatalf("title=%q", got)
	}
}
