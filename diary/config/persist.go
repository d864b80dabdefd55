package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
)

const annualResumeKey = "_annual_resume"

// SaveAnnualResume replaces only the _annual_resume section of the YAML file at path, leaving
// every other key, its order and its comments in place. The previous file is kept as path+".bak".
func SaveAnnualResume(path string, eras Eras) error {
	mode := fs.FileMode(0o644)
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist):
		b = nil
	default:
		return fmt.Errorf("SaveAnnualResume: %w", err)
	}

	var doc yaml.Node
	if len(bytes.TrimSpace(b)) > 0 {
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return fmt.Errorf("SaveAnnualResume: parse %s: %w", path, err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("SaveAnnualResume: %s: top level is not a mapping", path)
	}

	root := doc.Content[0]
	replaced := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == annualResumeKey {
			root.Content[i+1] = eras.node()
			replaced = true
			break
		}
	}
	if !replaced {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: annualResumeKey},
			eras.node(),
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("SaveAnnualResume: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("SaveAnnualResume: encode: %w", err)
	}

	if _, err := fileutils.CopyFileIfExists(path, path+".bak", true); err != nil {
		return fmt.Errorf("SaveAnnualResume: backup: %w", err)
	}
	if err := fileutils.WriteFileAtomic(path, buf.Bytes(), mode); err != nil {
		return fmt.Errorf("SaveAnnualResume: write: %w", err)
	}
	return nil
}
