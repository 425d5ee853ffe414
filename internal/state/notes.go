package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Note is one markdown file in a one-shot directory (stimuli or decisions).
type Note struct {
	// Name is the file name, e.g. "scout-a1b2c3.md".
	Name string
	// Content is the markdown body.
	Content string
}

// ListNotes returns every .md note in dir, sorted by file name so
// consumption order is deterministic. Hidden files and subdirectories
// (such as stimuli/.processed) are skipped. A missing dir yields nil.
func ListNotes(dir string) ([]Note, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var notes []Note
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read note %s: %w", name, err)
		}
		notes = append(notes, Note{Name: name, Content: string(data)})
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].Name < notes[j].Name })
	return notes, nil
}

// WriteNote creates (or replaces) a markdown note in dir.
func WriteNote(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}

// ConsumeStimuli reads every pending stimulus and moves each to the
// processed area, so a stimulus is injected into exactly one cycle.
func ConsumeStimuli(stimuliDir, processedDir string) ([]Note, error) {
	notes, err := ListNotes(stimuliDir)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(processedDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", processedDir, err)
	}
	for _, note := range notes {
		src := filepath.Join(stimuliDir, note.Name)
		dst := filepath.Join(processedDir, note.Name)
		if err := os.Rename(src, dst); err != nil {
			return nil, fmt.Errorf("failed to archive stimulus %s: %w", note.Name, err)
		}
	}
	return notes, nil
}

// ConsumeDecisions reads every pending decision and deletes each, so a
// human override is applied to exactly one cycle and never replayed.
func ConsumeDecisions(decisionsDir string) ([]Note, error) {
	notes, err := ListNotes(decisionsDir)
	if err != nil {
		return nil, err
	}
	for _, note := range notes {
		if err := os.Remove(filepath.Join(decisionsDir, note.Name)); err != nil {
			return nil, fmt.Errorf("failed to delete decision %s: %w", note.Name, err)
		}
	}
	return notes, nil
}
