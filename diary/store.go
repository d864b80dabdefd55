package diary

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/theimaginaryfoundation/diary-o-bot/diary/fileutils"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

const (
	maxTitleRunes     = 50
	annualSuffix      = "-annual-summary.md"
	dateFieldPrefix   = "**Date**: "
	yearFieldPrefix   = "**Year**: "
	artifactFileMode  = fs.FileMode(0o644)
	untitledComponent = "untitled"
)

// DiaryArtifact is a persisted day entry.
type DiaryArtifact struct {
	Date    string
	Title   string
	Content string
	Path    string
}

// YearArtifact is a persisted annual summary.
type YearArtifact struct {
	Year    string
	Title   string
	Content string
	Path    string
}

// Store keeps one Markdown file per day and one per year under <base>/<year>/.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) yearDir(year string) string { return filepath.Join(s.baseDir, year) }

// SanitizeTitle makes title safe as a filename component.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(fileutils.PrefixRunes(b.String(), maxTitleRunes), ".")
	if strings.Trim(out, "_") == "" {
		return untitledComponent
	}
	return out
}

func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }

func renderArtifact(title, field, value, content string) []byte {
	return []byte("# " + title + "\n\n" + field + value + "\n\n" + content + "\n")
}

// parseArtifact splits a rendered artifact back into (title, field value, content).
func parseArtifact(b []byte, field string) (title, value, content string, err error) {
	if !utf8.Valid(b) {
		return "", "", "", errors.New("artifact is not valid UTF-8")
	}
	parts := strings.SplitN(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n", 5)
	if len(parts) < 4 || !strings.HasPrefix(parts[0], "# ") || !strings.HasPrefix(parts[2], field) {
		return "", "", "", errors.New("unrecognized artifact layout")
	}
	title = strings.TrimPrefix(parts[0], "# ")
	value = strings.TrimPrefix(parts[2], field)
	if len(parts) == 5 {
		content = strings.TrimSuffix(parts[4], "\n")
	}
	return title, value, content, nil
}

func (s *Store) dayFiles(date string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.yearDir(yearOf(date)), date+"-*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Save writes the artifact for date, replacing any earlier artifact of the same date.
func (s *Store) Save(date, title, content string) (DiaryArtifact, error) {
	if !validDate(date) {
		return DiaryArtifact{}, fmt.Errorf("Store.Save: invalid date %q", date)
	}
	title = oneLine(title)
	if title == "" {
		title = untitledComponent
	}
	path := filepath.Join(s.yearDir(yearOf(date)), date+"-"+SanitizeTitle(title)+".md")

	if err := fileutils.WriteFileAtomic(path, renderArtifact(title, dateFieldPrefix, date, content), artifactFileMode); err != nil {
		return DiaryArtifact{}, fmt.Errorf("Store.Save: %w", err)
	}

	old, err := s.dayFiles(date)
	if err != nil {
		return DiaryArtifact{}, fmt.Errorf("Store.Save: %w", err)
	}
	for _, p := range old {
		if p == path {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return DiaryArtifact{}, fmt.Errorf("Store.Save: remove stale %s: %w", p, err)
		}
	}
	return DiaryArtifact{Date: date, Title: title, Content: content, Path: path}, nil
}

// LoadDay reads the artifact for date, or ErrNotFound.
func (s *Store) LoadDay(date string) (DiaryArtifact, error) {
	files, err := s.dayFiles(date)
	if err != nil {
		return DiaryArtifact{}, fmt.Errorf("Store.LoadDay: %w", err)
	}
	if len(files) == 0 {
		return DiaryArtifact{}, fmt.Errorf("Store.LoadDay: %s: %w", date, ErrNotFound)
	}
	return readDay(files[0], date)
}

func readDay(path, date string) (DiaryArtifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return DiaryArtifact{}, fmt.Errorf("read %s: %w", path, err)
	}
	title, _, content, err := parseArtifact(b, dateFieldPrefix)
	if err != nil {
		return DiaryArtifact{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return DiaryArtifact{Date: date, Title: title, Content: content, Path: path}, nil
}

// LoadYear returns every day artifact of year ordered by date. The annual summary is excluded.
func (s *Store) LoadYear(year string) ([]DiaryArtifact, error) {
	entries, err := os.ReadDir(s.yearDir(year))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("Store.LoadYear: %w", err)
	}

	var out []DiaryArtifact
	seen := make(map[string]struct{})
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || len(name) < len(DateLayout)+1 {
			continue
		}
		date := name[:len(DateLayout)]
		if !validDate(date) || name[len(DateLayout)] != '-' || yearOf(date) != year {
			continue
		}
		if _, ok := seen[date]; ok {
			continue
		}
		a, err := readDay(filepath.Join(s.yearDir(year), name), date)
		if err != nil {
			return nil, fmt.Errorf("Store.LoadYear: %w", err)
		}
		seen[date] = struct{}{}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) yearSummaryPath(year string) string {
	return filepath.Join(s.yearDir(year), year+annualSuffix)
}

// SaveYearSummary writes (or replaces) the annual summary of year.
func (s *Store) SaveYearSummary(year, title, content string) (YearArtifact, error) {
	title = oneLine(title)
	if title == "" {
		title = year + " Annual Summary"
	}
	path := s.yearSummaryPath(year)
	if err := fileutils.WriteFileAtomic(path, renderArtifact(title, yearFieldPrefix, year, content), artifactFileMode); err != nil {
		return YearArtifact{}, fmt.Errorf("Store.SaveYearSummary: %w", err)
	}
	return YearArtifact{Year: year, Title: title, Content: content, Path: path}, nil
}

// LoadYearSummary reads the annual summary of year, or ErrNotFound.
func (s *Store) LoadYearSummary(year string) (YearArtifact, error) {
	path := s.yearSummaryPath(year)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return YearArtifact{}, fmt.Errorf("Store.LoadYearSummary: %s: %w", year, ErrNotFound)
		}
		return YearArtifact{}, fmt.Errorf("Store.LoadYearSummary: %w", err)
	}
	title, _, content, err := parseArtifact(b, yearFieldPrefix)
	if err != nil {
		return YearArtifact{}, fmt.Errorf("Store.LoadYearSummary: parse %s: %w", path, err)
	}
	return YearArtifact{Year: year, Title: title, Content: content, Path: path}, nil
}

func (s *Store) HasYearSummary(year string) bool {
	return fileutils.FileExists(s.yearSummaryPath(year))
}
