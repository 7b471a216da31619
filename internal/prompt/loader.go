// Package prompt assembles the system instruction from text files.
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Fallback is used when no prompt file can be read.
const Fallback = "You are an AI customer service assistant for a Facebook page business. " +
	"Your prompts may not be set up yet."

// Loader reads every *.txt file of a directory, in lexical order, joined by
// a blank line. Files are read on every call so edits apply without restart.
type Loader struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
}

func NewLoader(log *slog.Logger, fs afero.Fs, dir string) *Loader {
	if log == nil {
		log = slog.Default()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs, dir: dir, logger: log.With(slog.String("component", "prompt"))}
}

// SystemInstruction returns the assembled prompt or Fallback.
func (l *Loader) SystemInstruction(_ context.Context) string {
	text, err := l.load()
	if err != nil {
		l.logger.Warn("using fallback system instruction", slog.String("dir", l.dir), slog.Any("error", err))
		return Fallback
	}
	return text
}

func (l *Loader) load() (string, error) {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		raw, err := afero.ReadFile(l.fs, path.Join(l.dir, name))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no .txt prompt files found")
	}
	return strings.Join(parts, "\n\n"), nil
}
