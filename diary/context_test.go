package diary

import (
	"fmt"
	"testing"
)

func TestWindow_KeepsMostRecent(t *testing.T) {
	t.Parallel()

	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Push(NarrativeEntry{Date: fmt.Sprintf("2024-01-0%d", i)})
	}
	got := w.Recent()
	if len(got) != 3 || got[0].Date != "2024-01-03" || got[2].Date != "2024-01-05" {
		t.Fatalf("Recent=%+v", got)
	}

	got[0].Date = "mutated"
	if w.Recent()[0].Date != "2024-01-03" {
		t.Fatalf("Recent returned internal storage")
	}
}

func TestNewWindow_DefaultSize(t *testing.T) {
	t.Parallel()

	w := NewWindow(0)
	for i := 0; i < DefaultWindowSize+10; i++ {
		w.Push(NarrativeEntry{})
	}
	if w.Len() != DefaultWindowSize {
		t.Fatalf("Len=%d, want %d", w.Len(), DefaultWindowSize)
	}
}

func TestAccumulator(t *testing.T) {
	t.Parallel()

	var a Accumulator
	a.Append(NarrativeEntry{Date: "2024-01-01", Title: "One", Content: "first"})
	a.Append(NarrativeEntry{Date: "2024-01-02", Title: "Two", Content: "second"})
	if a.Len() != 2 || len(a.Entries()) != 2 {
		t.Fatalf("Len=%d", a.Len())
	}
	want := "[2024-01-01] One\nfirst\n\n[2024-01-02] Two\nsecond"
	if got := a.Text(); got != want {
		t.Fatalf("Text=%q, want %q", got, want)
	}
}
