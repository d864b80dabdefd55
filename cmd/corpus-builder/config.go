package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

type Config struct {
	InputPath    string
	OutputPath   string
	MarkdownPath string
	TimeZone     string
	Overwrite    bool
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	if c.OutputPath == "" {
		return errors.New("missing -out")
	}
	if c.MarkdownPath != "" && c.MarkdownPath == c.OutputPath {
		return errors.New("-md and -out must differ")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("-tz: %w", err)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

func defaultConfig() Config {
	return Config{
		InputPath:  filepath.FromSlash("data/conversations.json"),
		OutputPath: filepath.FromSlash("data/conversations_by_date.json"),
	}
}
