package diary

import (
	"archive/zip"
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

// ExportStats reports what BuildCorpusFromExport kept and dropped.
type ExportStats struct {
	Conversations int
	Kept          int
	Dropped       int
	Days          int
}

// ReadExportZip finds conversations.json inside the export ZIP at zipPath and parses it.
func ReadExportZip(ctx context.Context, zipPath string, loc *time.Location) (Corpus, ExportStats, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, ExportStats{}, fmt.Errorf("ReadExportZip: %w", err)
	}
	defer zr.Close()

	var target *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || path.Base(f.Name) != "conversations.json" {
			continue
		}
		// Prefer the shallowest match; exports sometimes nest a copy under a folder.
		if target == nil || strings.Count(f.Name, "/") < strings.Count(target.Name, "/") {
			target = f
		}
	}
	if target == nil {
		return nil, ExportStats{}, fmt.Errorf("ReadExportZip: %s: no conversations.json in archive", zipPath)
	}

	rc, err := target.Open()
	if err != nil {
		return nil, ExportStats{}, fmt.Errorf("ReadExportZip: open %s: %w", target.Name, err)
	}
	defer rc.Close()

	return BuildCorpusFromExport(ctx, rc, loc)
}

// BuildCorpusFromExport streams a conversations export and groups conversations by the local
// date (in loc) of their creation time. The export is either a top-level array or an object
// with a single array-valued field. Conversations without create_time or without any usable
// message are dropped. Each day is ordered by creation time.
func BuildCorpusFromExport(ctx context.Context, r io.Reader, loc *time.Location) (Corpus, ExportStats, error) {
	if ctx == nil {
		return nil, ExportStats{}, errors.New("BuildCorpusFromExport: ctx is nil")
	}
	if loc == nil {
		loc = time.Local
	}

	// The export is typically one huge line; use a larger buffer than default.
	dec := json.NewDecoder(bufio.NewReaderSize(r, 1<<20))

	tok, err := dec.Token()
	if err != nil {
		return nil, ExportStats{}, fmt.Errorf("BuildCorpusFromExport: read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, ExportStats{}, fmt.Errorf("BuildCorpusFromExport: expected JSON array/object, got %T", tok)
	}

	out := make(Corpus)
	var stats ExportStats

	switch delim {
	case '[':
		if err := groupArrayFromOpen(ctx, dec, loc, out, &stats); err != nil {
			return nil, ExportStats{}, err
		}
	case '{':
		found := false
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, ExportStats{}, fmt.Errorf("BuildCorpusFromExport: read object key: %w", err)
			}
			key, _ := keyTok.(string)
			valTok, err := dec.Token()
			if err != nil {
				return nil, ExportStats{}, fmt.Errorf("BuildCorpusFromExport: read value for key %q: %w", key, err)
			}
			if d, ok := valTok.(json.Delim); ok && d == '[' && !found {
				found = true
				if err := groupArrayFromOpen(ctx, dec, loc, out, &stats); err != nil {
					return nil, ExportStats{}, err
				}
				if _, err := dec.Token(); err != nil {
					return nil, ExportStats{}, fmt.Errorf("BuildCorpusFromExport: read closing array token: %w", err)
				}
				continue
			}
			if err := skipValue(dec, valTok); err != nil {
				return nil, ExportStats{}, fmt.Errorf("BuildCorpusFromExport: skip key %q value: %w", key, err)
			}
		}
		if !found {
			return nil, ExportStats{}, errors.New("BuildCorpusFromExport: no conversations array found in top-level object")
		}
	default:
		return nil, ExportStats{}, fmt.Errorf("BuildCorpusFromExport: unsupported top-level delimiter %q", delim)
	}

	for d := range out {
		convs := out[d]
		sort.SliceStable(convs, func(i, j int) bool {
			return *convs[i].CreateTime < *convs[j].CreateTime
		})
	}
	stats.Days = len(out)
	return out, stats, nil
}

func groupArrayFromOpen(ctx context.Context, dec *json.Decoder, loc *time.Location, out Corpus, stats *ExportStats) error {
	for dec.More() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var conv exportConversation
		if err := dec.Decode(&conv); err != nil {
			return fmt.Errorf("BuildCorpusFromExport: decode conversation element: %w", err)
		}
		stats.Conversations++

		if conv.CreateTime == nil || *conv.CreateTime <= 0 {
			stats.Dropped++
			continue
		}
		msgs := conversationMessages(conv)
		if len(msgs) == 0 {
			stats.Dropped++
			continue
		}

		title := strings.TrimSpace(conv.Title)
		if title == "" {
			title = "Untitled"
		}
		date := unixSeconds(*conv.CreateTime).In(loc).Format(DateLayout)
		out[date] = append(out[date], Conversation{
			Title:      title,
			CreateTime: conv.CreateTime,
			UpdateTime: conv.UpdateTime,
			Messages:   msgs,
		})
		stats.Kept++
	}
	return nil
}

type exportConversation struct {
	Title       string                   `json:"title"`
	CreateTime  *float64                 `json:"create_time"`
	UpdateTime  *float64                 `json:"update_time"`
	CurrentNode string                   `json:"current_node"`
	Mapping     map[string]exportMapNode `json:"mapping"`
}

type exportMapNode struct {
	Message  *exportMessage `json:"message"`
	Parent   *string        `json:"parent"`
	Children []string       `json:"children"`
}

type exportMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    json.RawMessage `json:"content"`
}

// conversationMessages follows the active branch (current_node back to the root). When the
// tree is inconsistent it falls back to every message node ordered by create time.
func conversationMessages(conv exportConversation) []Message {
	if len(conv.Mapping) == 0 {
		return nil
	}
	if msgs, err := linearizeMessages(conv.Mapping, conv.CurrentNode); err == nil {
		return msgs
	}

	type timed struct {
		m  Message
		at float64
	}
	var all []timed
	for _, n := range conv.Mapping {
		if n.Message == nil {
			continue
		}
		if m, ok := exportedMessage(*n.Message); ok {
			at := 0.0
			if n.Message.CreateTime != nil {
				at = *n.Message.CreateTime
			}
			all = append(all, timed{m, at})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].at < all[j].at })
	msgs := make([]Message, len(all))
	for i, t := range all {
		msgs[i] = t.m
	}
	return msgs
}

func linearizeMessages(mapping map[string]exportMapNode, currentNode string) ([]Message, error) {
	start := currentNode
	if start == "" {
		start = pickBestLeaf(mapping)
	}
	if start == "" {
		return nil, errors.New("no current_node and no leaf node found")
	}

	visited := make(map[string]struct{}, len(mapping))
	var reversed []Message

	for i := 0; i < len(mapping)+5; i++ {
		n, ok := mapping[start]
		if !ok {
			return nil, fmt.Errorf("missing node %q in mapping", start)
		}
		if _, ok := visited[start]; ok {
			return nil, fmt.Errorf("cycle detected at node %q", start)
		}
		visited[start] = struct{}{}

		if n.Message != nil {
			if m, ok := exportedMessage(*n.Message); ok {
				reversed = append(reversed, m)
			}
		}

		if n.Parent == nil || *n.Parent == "" {
			break
		}
		start = *n.Parent
	}

	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	return reversed, nil
}

func pickBestLeaf(mapping map[string]exportMapNode) string {
	var (
		bestID   string
		bestTime float64
		hasBest  bool
	)
	for id, n := range mapping {
		if len(n.Children) != 0 || n.Message == nil {
			continue
		}
		ct := 0.0
		if n.Message.CreateTime != nil {
			ct = *n.Message.CreateTime
		}
		if !hasBest || ct > bestTime || (ct == bestTime && id < bestID) {
			bestID = id
			bestTime = ct
			hasBest = true
		}
	}
	return bestID
}

func exportedMessage(m exportMessage) (Message, bool) {
	text := strings.TrimSpace(extractText(m.Content))
	if text == "" {
		return Message{}, false
	}
	role := strings.TrimSpace(m.Author.Role)
	if role == "" {
		role = "unknown"
	}
	return Message{Author: role, Text: text, CreateTime: m.CreateTime}, true
}

// extractText handles the text, multimodal_text and code content types. Image parts become
// an [Image] placeholder; other content types yield nothing.
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var probe struct {
		ContentType string            `json:"content_type"`
		Parts       []json.RawMessage `json:"parts"`
		Text        string            `json:"text"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}

	switch strings.TrimSpace(probe.ContentType) {
	case "text":
		var parts []string
		for _, p := range probe.Parts {
			var s string
			if err := json.Unmarshal(p, &s); err == nil && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case "multimodal_text":
		var parts []string
		for _, p := range probe.Parts {
			var s string
			if err := json.Unmarshal(p, &s); err == nil {
				parts = append(parts, s)
				continue
			}
			var obj struct {
				ContentType string  `json:"content_type"`
				Text        *string `json:"text"`
			}
			if err := json.Unmarshal(p, &obj); err != nil {
				continue
			}
			switch {
			case obj.ContentType == "image_asset_pointer":
				parts = append(parts, "[Image]")
			case obj.Text != nil:
				parts = append(parts, *obj.Text)
			}
		}
		return strings.Join(parts, "\n")
	case "code":
		return probe.Text
	default:
		return ""
	}
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return nil
	}
	switch d {
	case '{', '[':
	default:
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
