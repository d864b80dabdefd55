package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Example is the example-input file: a sample diary that sets the voice, optional extra
// requirements, and the free-text biography used to bootstrap _annual_resume.
type Example struct {
	ExampleDiary    string       `json:"example_diary"`
	Requirements    Requirements `json:"requirements"`
	ResumePlainText string       `json:"resume_plain_text"`
}

// Requirements accepts either a string or a list of strings (joined one per line).
type Requirements string

func (r *Requirements) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = Requirements(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("requirements: want string or list of strings: %w", err)
	}
	*r = Requirements(strings.Join(list, "\n"))
	return nil
}

// LoadExample reads the example-input JSON. An empty path returns a zero Example.
func LoadExample(path string) (Example, error) {
	if strings.TrimSpace(path) == "" {
		return Example{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Example{}, fmt.Errorf("LoadExample: %w", err)
	}
	var ex Example
	if err := json.Unmarshal(b, &ex); err != nil {
		return Example{}, fmt.Errorf("LoadExample: %s: %w", path, err)
	}
	return ex, nil
}
