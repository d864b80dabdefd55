package diary

import (
	"strings"
)

// NarrativeEntry is one generated (or resumed) diary entry.
type NarrativeEntry struct {
	Date    string
	Title   string
	Content string
}

// Accumulator is the unbounded log of every entry of the run, in date order.
type Accumulator struct {
	entries []NarrativeEntry
}

func (a *Accumulator) Append(e NarrativeEntry) { a.entries = append(a.entries, e) }

func (a *Accumulator) Len() int { return len(a.entries) }

func (a *Accumulator) Entries() []NarrativeEntry {
	out := make([]NarrativeEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Text renders the whole log as "[date] title\ncontent" blocks separated by blank lines.
func (a *Accumulator) Text() string {
	var b strings.Builder
	for i, e := range a.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + e.Date + "] " + e.Title + "\n" + e.Content)
	}
	return b.String()
}

// Window keeps only the most recent entries, oldest first.
type Window struct {
	size    int
	entries []NarrativeEntry
}

// NewWindow returns a window holding at most size entries (DefaultWindowSize when size <= 0).
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{size: size, entries: make([]NarrativeEntry, 0, size)}
}

func (w *Window) Push(e NarrativeEntry) {
	if len(w.entries) < w.size {
		w.entries = append(w.entries, e)
		return
	}
	copy(w.entries, w.entries[1:])
	w.entries[len(w.entries)-1] = e
}

// Recent returns a copy of the window, oldest first.
func (w *Window) Recent() []NarrativeEntry {
	out := make([]NarrativeEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

func (w *Window) Len() int { return len(w.entries) }
