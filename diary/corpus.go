// Package diary turns a date-partitioned corpus of conversations into first-person diary
// entries and one reflective summary per year.
package diary

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
)

// DateLayout is the corpus key format.
const DateLayout = "2006-01-02"

// Message is one turn of a conversation.
type Message struct {
	Author     string   `json:"author"`
	Text       string   `json:"text"`
	CreateTime *float64 `json:"create_time,omitempty"`
}

// Conversation is one conversation thread as stored in the corpus.
type Conversation struct {
	Title      string    `json:"title"`
	CreateTime *float64  `json:"create_time,omitempty"`
	UpdateTime *float64  `json:"update_time,omitempty"`
	Messages   []Message `json:"messages"`
}

// Corpus maps YYYY-MM-DD to that day's conversations.
type Corpus map[string][]Conversation

// Dates returns the corpus dates in ascending order.
func (c Corpus) Dates() []string {
	dates := make([]string, 0, len(c))
	for d := range c {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Conversations counts conversations across all dates.
func (c Corpus) Conversations() int {
	n := 0
	for _, convs := range c {
		n += len(convs)
	}
	return n
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func yearOf(date string) string {
	if len(date) < 4 {
		return date
	}
	return date[:4]
}

// LoadCorpus reads a date-keyed corpus file.
func LoadCorpus(path string) (Corpus, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCorpus: %w", err)
	}
	c, err := decodeCorpus(b)
	if err != nil {
		return nil, fmt.Errorf("LoadCorpus: %s: %w", path, err)
	}
	return c, nil
}

func decodeCorpus(b []byte) (Corpus, error) {
	var c Corpus
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	for d := range c {
		if !validDate(d) {
			return nil, fmt.Errorf("invalid date key %q (want YYYY-MM-DD)", d)
		}
	}
	return c, nil
}

// WriteCorpus writes c as indented JSON, atomically.
func WriteCorpus(path string, c Corpus) error {
	if err := fileutils.WriteJSONFileAtomic(path, c, true); err != nil {
		return fmt.Errorf("WriteCorpus: %w", err)
	}
	return nil
}

// ReadInput loads any accepted input form: a date-keyed corpus, a raw conversations.json
// export (top-level array or object-wrapped array), or the export ZIP.
func ReadInput(ctx context.Context, path string, loc *time.Location) (Corpus, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		c, _, err := ReadExportZip(ctx, path, loc)
		return c, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadInput: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)
	magic, _ := br.Peek(4)
	if bytes.Equal(magic, []byte("PK\x03\x04")) {
		_ = f.Close()
		c, _, err := ReadExportZip(ctx, path, loc)
		return c, err
	}

	first, err := firstNonSpace(br)
	if err != nil {
		return nil, fmt.Errorf("ReadInput: %s: %w", path, err)
	}
	switch first {
	case '[':
		c, _, err := BuildCorpusFromExport(ctx, br, loc)
		return c, err
	case '{':
		b, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("ReadInput: %w", err)
		}
		if c, err := decodeCorpus(b); err == nil {
			return c, nil
		}
		c, _, err := BuildCorpusFromExport(ctx, bytes.NewReader(b), loc)
		return c, err
	default:
		return nil, fmt.Errorf("ReadInput: %s: expected a JSON object or array", path)
	}
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, errors.New("empty input")
			}
			return 0, err
		}
		switch c := b[i-1]; c {
		case ' ', '\t', '\r', '\n':
		case 0xEF, 0xBB, 0xBF:
			// UTF-8 BOM
		default:
			return c, nil
		}
		if i >= br.Size() {
			return 0, errors.New("no JSON value in first buffer")
		}
	}
}

// SelectFirstDays keeps the n earliest dates. n <= 0 keeps everything.
func SelectFirstDays(c Corpus, n int) Corpus {
	if n <= 0 || n >= len(c) {
		return c
	}
	out := make(Corpus, n)
	for _, d := range c.Dates()[:n] {
		out[d] = c[d]
	}
	return out
}

// SelectPerYear keeps the n earliest dates of every year. n <= 0 keeps everything.
func SelectPerYear(c Corpus, n int) Corpus {
	if n <= 0 {
		return c
	}
	out := make(Corpus)
	perYear := make(map[string]int)
	for _, d := range c.Dates() {
		y := yearOf(d)
		if perYear[y] >= n {
			continue
		}
		perYear[y]++
		out[d] = c[d]
	}
	return out
}

// WriteCorpusMarkdown renders c as a human-readable Markdown transcript, newest day first.
func WriteCorpusMarkdown(w io.Writer, c Corpus, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	bw := bufio.NewWriter(w)
	dates := c.Dates()
	for i := len(dates) - 1; i >= 0; i-- {
		d := dates[i]
		fmt.Fprintf(bw, "# %s\n\n", d)
		for _, conv := range c[d] {
			title := conv.Title
			if strings.TrimSpace(title) == "" {
				title = "Untitled"
			}
			fmt.Fprintf(bw, "## %s\n\n", title)
			if conv.CreateTime != nil {
				fmt.Fprintf(bw, "*Time: %s*\n\n", unixSeconds(*conv.CreateTime).In(loc).Format("15:04:05"))
			}
			for _, m := range conv.Messages {
				if m.Author == "system" {
					continue
				}
				label := "**Assistant:**"
				if m.Author == "user" {
					label = "**User:**"
				}
				fmt.Fprintf(bw, "%s\n%s\n\n", label, m.Text)
			}
			bw.WriteString("---\n\n")
		}
	}
	return bw.Flush()
}

func unixSeconds(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
