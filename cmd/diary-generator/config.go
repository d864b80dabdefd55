package main

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	ConfigPath   string
	ExamplePath  string
	InputPath    string
	Overwrite    bool
	MaxDays      int
	Quick        bool
	QuickPerYear int
	APIKey       string
	LogLevel     string
	TimeZone     string
	NoProgress   bool
}

func (c Config) Validate() error {
	if c.ConfigPath == "" {
		return errors.New("missing -config")
	}
	if c.InputPath == "" {
		return errors.New("missing -in")
	}
	if c.MaxDays < 0 {
		return errors.New("-max-days must be >= 0")
	}
	if c.QuickPerYear <= 0 {
		return errors.New("-quick-per-year must be > 0")
	}
	if c.Quick && c.MaxDays > 0 {
		return errors.New("use either -quick or -max-days, not both")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("-tz: %w", err)
	}
	return nil
}

// Location is the zone used to assign raw-export conversations to dates.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

func defaultConfig() Config {
	return Config{
		ConfigPath:   "config.yaml",
		ExamplePath:  "example_diary.json",
		InputPath:    "data/conversations_by_date.json",
		QuickPerYear: 10,
	}
}
