package diary

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// 1704103200 = 2024-01-01T10:00:00Z, 1704150000 = 2024-01-01T23:00:00Z, 1704189600 = 2024-01-02T10:00:00Z
const sampleExport = `[
 {"title":"Late chat","create_time":1704150000,"update_time":1704150100,"current_node":"b2","mapping":{
   "root":{"message":null,"parent":null,"children":["b1"]},
   "b1":{"message":{"author":{"role":"user"},"create_time":1704150000,"content":{"content_type":"text","parts":["what is this picture?"]}},"parent":"root","children":["b2","x"]},
   "x":{"message":{"author":{"role":"assistant"},"create_time":1704150001,"content":{"content_type":"text","parts":["abandoned branch"]}},"parent":"b1","children":[]},
   "b2":{"message":{"author":{"role":"assistant"},"create_time":1704150002,"content":{"content_type":"multimodal_text","parts":[{"content_type":"image_asset_pointer","asset_pointer":"file://x"},"a cat on a sofa",{"content_type":"audio_transcription","text":"spoken words"}]}},"parent":"b1","children":[]}
 }},
 {"title":"Morning code","create_time":1704103200,"mapping":{
   "c1":{"message":{"author":{"role":"system"},"content":{"content_type":"text","parts":[""]}},"parent":null,"children":["c2"]},
   "c2":{"message":{"author":{"role":"user"},"create_time":1704103200,"content":{"content_type":"code","language":"python","text":"print('hi')"}},"parent":"c1","children":["c3"]},
   "c3":{"message":{"author":{"role":"tool"},"create_time":1704103201,"content":{"content_type":"execution_output","text":"hi"}},"parent":"c2","children":[]}
 }},
 {"title":"Next day","create_time":1704189600,"current_node":"n1","mapping":{
   "n1":{"message":{"author":{"role":"user"},"create_time":1704189600,"content":{"content_type":"text","parts":["good morning"]}},"parent":null,"children":[]}
 }},
 {"title":"No time","mapping":{"z":{"message":{"author":{"role":"user"},"content":{"content_type":"text","parts":["lost"]}},"parent":null,"children":[]}}},
 {"title":"Empty","create_time":1704189700,"mapping":{}}
]`

func TestBuildCorpusFromExport(t *testing.T) {
	t.Parallel()

	c, stats, err := BuildCorpusFromExport(context.Background(), strings.NewReader(sampleExport), time.UTC)
	if err != nil {
		t.Fatalf("BuildCorpusFromExport: %v", err)
	}
	if stats.Conversations != 5 || stats.Kept != 3 || stats.Dropped != 2 || stats.Days != 2 {
		t.Fatalf("stats=%+v", stats)
	}
	if got := c.Dates(); len(got) != 2 || got[0] != "2024-01-01" || got[1] != "2024-01-02" {
		t.Fatalf("Dates=%v", got)
	}

	day := c["2024-01-01"]
	if len(day) != 2 || day[0].Title != "Morning code" || day[1].Title != "Late chat" {
		t.Fatalf("day not ordered by create time: %+v", day)
	}

	code := day[0].Messages
	if len(code) != 1 || code[0].Author != "user" || code[0].Text != "print('hi')" {
		t.Fatalf("code messages=%+v", code)
	}

	late := day[1].Messages
	if len(late) != 2 {
		t.Fatalf("late messages=%+v (abandoned branch must not be followed)", late)
	}
	if late[1].Author != "assistant" || late[1].Text != "[Image]\na cat on a sofa\nspoken words" {
		t.Fatalf("multimodal text=%q", late[1].Text)
	}
}

func TestBuildCorpusFromExport_UsesLocation(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*3600)
	c, _, err := BuildCorpusFromExport(context.Background(), strings.NewReader(sampleExport), tokyo)
	if err != nil {
		t.Fatalf("BuildCorpusFromExport: %v", err)
	}
	// 23:00Z on Jan 1 is Jan 2 in Tokyo.
	if len(c["2024-01-02"]) != 2 || len(c["2024-01-01"]) != 1 {
		t.Fatalf("corpus=%v", c.Dates())
	}
}

func TestBuildCorpusFromExport_ObjectWrapped(t *testing.T) {
	t.Parallel()

	in := `{"meta":{"v":[1,2]},"conversations":` + sampleExport + `,"other":true}`
	c, stats, err := BuildCorpusFromExport(context.Background(), strings.NewReader(in), time.UTC)
	if err != nil {
		t.Fatalf("BuildCorpusFromExport: %v", err)
	}
	if stats.Kept != 3 || len(c) != 2 {
		t.Fatalf("stats=%+v", stats)
	}

	if _, _, err := BuildCorpusFromExport(context.Background(), strings.NewReader(`{"a":1}`), time.UTC); err == nil {
		t.Fatalf("expected error for object without array")
	}
}

func TestConversationMessages_FallsBackOnBrokenTree(t *testing.T) {
	t.Parallel()

	in := `[{"title":"broken","create_time":1704103200,"current_node":"missing","mapping":{
	  "a":{"message":{"author":{"role":"assistant"},"create_time":2,"content":{"content_type":"text","parts":["second"]}},"parent":null,"children":[]},
	  "b":{"message":{"author":{"role":"user"},"create_time":1,"content":{"content_type":"text","parts":["first"]}},"parent":null,"children":[]}
	}}]`
	c, _, err := BuildCorpusFromExport(context.Background(), strings.NewReader(in), time.UTC)
	if err != nil {
		t.Fatalf("BuildCorpusFromExport: %v", err)
	}
	msgs := c["2024-01-01"][0].Messages
	if len(msgs) != 2 || msgs[0].Text != "first" || msgs[1].Text != "second" {
		t.Fatalf("msgs=%+v", msgs)
	}
}

func TestReadInput_AllForms(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	exportPath := filepath.Join(dir, "conversations.json")
	if err := os.WriteFile(exportPath, []byte("\n  "+sampleExport), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var zbuf bytes.Buffer
	zw := zip.NewWriter(&zbuf)
	w, err := zw.Create("export/conversations.json")
	if err != nil {
		t.Fatalf("zip Create: %v", err)
	}
	if _, err := w.Write([]byte(sampleExport)); err != nil {
		t.Fatalf("zip Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	zipPath := filepath.Join(dir, "export.zip")
	if err := os.WriteFile(zipPath, zbuf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// Same archive without the .zip extension, detected by magic bytes.
	zipNoExt := filepath.Join(dir, "export.bin")
	if err := os.WriteFile(zipNoExt, zbuf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	built, _, err := BuildCorpusFromExport(context.Background(), strings.NewReader(sampleExport), time.UTC)
	if err != nil {
		t.Fatalf("BuildCorpusFromExport: %v", err)
	}
	corpusPath := filepath.Join(dir, "by_date.json")
	if err := WriteCorpus(corpusPath, built); err != nil {
		t.Fatalf("WriteCorpus: %v", err)
	}

	for _, p := range []string{exportPath, zipPath, zipNoExt, corpusPath} {
		c, err := ReadInput(context.Background(), p, time.UTC)
		if err != nil {
			t.Fatalf("ReadInput(%s): %v", filepath.Base(p), err)
		}
		if c.Conversations() != 3 || len(c) != 2 {
			t.Fatalf("ReadInput(%s): dates=%v conversations=%d", filepath.Base(p), c.Dates(), c.Conversations())
		}
		if c["2024-01-01"][1].Messages[1].Text != "[Image]\na cat on a sofa\nspoken words" {
			t.Fatalf("ReadInput(%s): content lost", filepath.Base(p))
		}
	}
}

func TestLoadCorpus_RejectsBadDates(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "c.json")
	if err := os.WriteFile(p, []byte(`{"yesterday":[]}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadCorpus(p); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSelectFirstDaysAndPerYear(t *testing.T) {
	t.Parallel()

	c := corpusFor("2023-01-01", "2023-01-02", "2023-01-03", "2024-01-01", "2024-01-02", "2025-05-05")

	first := SelectFirstDays(c, 2)
	if got := first.Dates(); len(got) != 2 || got[0] != "2023-01-01" || got[1] != "2023-01-02" {
		t.Fatalf("SelectFirstDays=%v", got)
	}
	if got := SelectFirstDays(c, 0); len(got) != len(c) {
		t.Fatalf("SelectFirstDays(0) should keep everything")
	}

	per := SelectPerYear(c, 2)
	want := []string{"2023-01-01", "2023-01-02", "2024-01-01", "2024-01-02", "2025-05-05"}
	got := per.Dates()
	if len(got) != len(want) {
		t.Fatalf("SelectPerYear=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SelectPerYear=%v, want %v", got, want)
		}
	}
}

func TestWriteCorpusMarkdown(t *testing.T) {
	t.Parallel()

	c := Corpus{"2024-01-01": {{Title: "Chat", Messages: []Message{
		{Author: "system", Text: "hidden"},
		{Author: "user", Text: "hello"},
		{Author: "assistant", Text: "hi there"},
	}}}}
	var buf bytes.Buffer
	if err := WriteCorpusMarkdown(&buf, c, time.UTC); err != nil {
		t.Fatalf("WriteCorpusMarkdown: %v", err)
	}
	got := buf.String()
	want := "# 2024-01-01\n\n## Chat\n\n**User:**\nhello\n\n**Assistant:**\nhi there\n\n---\n\n"
	if got != want {
		t.Fatalf("markdown=%q, want %q", got, want)
	}
}
