package fileutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Truncate trims s and cuts it to at most max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return PrefixRunes(s, max) + "…"
}

// PrefixRunes returns the first n runes of s without splitting a multi-byte character.
func PrefixRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// CopyFileIfExists copies srcPath to dstPath. A missing source is not an error (copied=false).
func CopyFileIfExists(srcPath, dstPath string, overwrite bool) (bool, error) {
	if srcPath == "" || dstPath == "" {
		return false, errors.New("CopyFileIfExists: empty path")
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if !overwrite {
		if _, err := os.Stat(dstPath); err == nil {
			return false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}

	b, err := os.ReadFile(srcPath)
	if err != nil {
		return false, err
	}
	if err := WriteFileAtomic(dstPath, b, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

func WriteJSONFileAtomic(path string, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	b = append(b, '\n')
	if err := WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place,
// so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_"+filepath.Base(path)+"_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
