package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// SafeStem returns the input file's base name without extension, with every
// character other than letters, digits, '-' and '_' replaced by '_'.
// It never returns an empty string.
func SafeStem(input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "." || stem == string(filepath.Separator) {
		stem = ""
	}
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "result"
	}
	return out
}

// DefaultOutputPath builds <dir>/<safe_stem>_restored_<YYYYmmdd_HHMMSS>.mp4 in
// UTC and creates dir if needed.
func DefaultOutputPath(input, dir string, now time.Time) (string, error) {
	if dir == "" {
		dir = "outputs"
	}
	dir, err := ExpandHome(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("%s_restored_%s.mp4", SafeStem(input), now.UTC().Format("20060102_150405"))
	return filepath.Join(dir, name), nil
}

// ResolveOutputPath returns requested when it names a file, or a default path
// inside requested when it is an existing directory or ends with a separator.
// An empty request falls back to DefaultOutputPath under dir.
func ResolveOutputPath(input, requested, dir string, now time.Time) (string, error) {
	if strings.TrimSpace(requested) == "" {
		return DefaultOutputPath(input, dir, now)
	}
	requested, err := ExpandHome(requested)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(requested, "/") || strings.HasSuffix(requested, string(filepath.Separator)) {
		return DefaultOutputPath(input, requested, now)
	}
	if fi, err := os.Stat(requested); err == nil && fi.IsDir() {
		return DefaultOutputPath(input, requested, now)
	}
	if err := os.MkdirAll(filepath.Dir(requested), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return requested, nil
}
