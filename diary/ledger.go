package diary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
)

// Ledger is the durable record of processed dates. Every change is persisted before the
// call returns.
type Ledger struct {
	path  string
	state ledgerState
	seen  map[string]struct{}
	now   func() time.Time
}

type ledgerState struct {
	ProcessedDates []string `json:"processed_dates"`
	LastProcessed  string   `json:"last_processed,omitempty"`
	LastUpdated    string   `json:"last_updated,omitempty"`
}

// LoadLedger reads the ledger at path. A missing file is an empty ledger.
func LoadLedger(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("LoadLedger: path is empty")
	}
	l := &Ledger{path: path, seen: make(map[string]struct{}), now: time.Now}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("LoadLedger: %w", err)
	}
	if err := json.Unmarshal(b, &l.state); err != nil {
		return nil, fmt.Errorf("LoadLedger: %s: %w", path, err)
	}

	dates := l.state.ProcessedDates[:0]
	for _, d := range l.state.ProcessedDates {
		if _, ok := l.seen[d]; ok {
			continue
		}
		l.seen[d] = struct{}{}
		dates = append(dates, d)
	}
	l.state.ProcessedDates = dates
	return l, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Has(date string) bool {
	_, ok := l.seen[date]
	return ok
}

// Record marks date processed and persists the ledger.
func (l *Ledger) Record(date string) error {
	if _, ok := l.seen[date]; !ok {
		l.seen[date] = struct{}{}
		l.state.ProcessedDates = append(l.state.ProcessedDates, date)
	}
	l.state.LastProcessed = date
	l.state.LastUpdated = l.now().Format(time.RFC3339)
	if err := l.persist(); err != nil {
		return fmt.Errorf("Ledger.Record: %w", err)
	}
	return nil
}

// Reset empties the ledger and persists the empty state.
func (l *Ledger) Reset() error {
	l.seen = make(map[string]struct{})
	l.state = ledgerState{ProcessedDates: []string{}, LastUpdated: l.now().Format(time.RFC3339)}
	if err := l.persist(); err != nil {
		return fmt.Errorf("Ledger.Reset: %w", err)
	}
	return nil
}

// Dates returns the processed dates in ascending order.
func (l *Ledger) Dates() []string {
	out := make([]string, 0, len(l.seen))
	for d := range l.seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) LastProcessed() string { return l.state.LastProcessed }

func (l *Ledger) persist() error {
	if l.state.ProcessedDates == nil {
		l.state.ProcessedDates = []string{}
	}
	return fileutils.WriteJSONFileAtomic(l.path, l.state, true)
}
