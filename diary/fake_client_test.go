package diary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/provider"
)

type fakeClient struct {
	mu      sync.Mutex
	model   string
	reqs    []provider.Request
	respond func(req provider.Request) (string, error)
}

func (f *fakeClient) Model() string {
	if f.model == "" {
		return "fake-model"
	}
	return f.model
}

func (f *fakeClient) Generate(_ context.Context, req provider.Request) (provider.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	text, err := f.respond(req)
	if err != nil {
		return provider.Response{}, err
	}
	return provider.Response{Text: text, Model: f.Model()}, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeClient) callsFor(schema string) []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []provider.Request
	for _, r := range f.reqs {
		if r.SchemaName == schema {
			out = append(out, r)
		}
	}
	return out
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// requestDate extracts the day being written from a day request.
func requestDate(req provider.Request) string {
	i := strings.LastIndex(req.Input, "Date: ")
	if i < 0 || len(req.Input) < i+16 {
		return ""
	}
	return req.Input[i+6 : i+16]
}

// deterministicResponder answers day requests with an entry that depends on the date and on
// how many recent entries were supplied, and year requests with the number of diaries seen.
func deterministicResponder(req provider.Request) (string, error) {
	switch req.SchemaName {
	case "DiaryEntry":
		date := requestDate(req)
		return mustJSON(map[string]string{
			"title":   "Day " + date,
			"content": fmt.Sprintf("Wrote about %s with %d earlier entries in mind.", date, strings.Count(req.Input, "Title: ")),
		}), nil
	case "AnnualSummary":
		return mustJSON(map[string]string{
			"title":   "A year in review",
			"content": fmt.Sprintf("Looking back over %d days.", strings.Count(req.Input, "] Day ")),
		}), nil
	default:
		return "", fmt.Errorf("unexpected schema %q", req.SchemaName)
	}
}
