package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical era keys of the _annual_resume section.
const (
	EraPre2022 = "pre-2022"

	legacyEraPre2022 = "2021_and_before"
)

// Eras is the _annual_resume section keyed by canonical era name.
type Eras map[string]string

// NormalizeEraKey maps a textual or numeric YAML key (and the legacy alias) to its canonical form.
func NormalizeEraKey(k string) string {
	k = strings.Trim(strings.TrimSpace(k), `"'`)
	switch strings.ToLower(k) {
	case legacyEraPre2022, "pre_2022", EraPre2022:
		return EraPre2022
	}
	return k
}

func (e *Eras) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		*e = nil
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("_annual_resume: line %d: expected a mapping", n.Line)
	}
	out := make(Eras, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		var text string
		if err := v.Decode(&text); err != nil {
			return fmt.Errorf("_annual_resume.%s: %w", k.Value, err)
		}
		out[NormalizeEraKey(k.Value)] = text
	}
	*e = out
	return nil
}

// SortedKeys orders pre-2022 first, then years ascending.
func (e Eras) SortedKeys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == EraPre2022) != (keys[j] == EraPre2022) {
			return keys[i] == EraPre2022
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (e Eras) node() *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range e.SortedKeys() {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k, Style: yaml.DoubleQuotedStyle},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e[k]},
		)
	}
	return m
}
