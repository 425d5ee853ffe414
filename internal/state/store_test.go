package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestReadJSONMissingFileReturnsDefault(t *testing.T) {
	def := sample{Name: "fresh", Count: 7}
	got := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), def)
	if got != def {
		t.Errorf("got %+v, want default %+v", got, def)
	}
}

func TestReadJSONCorruptFileReturnsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("{half a reco"), 0644); err != nil {
		t.Fatal(err)
	}

	def := sample{Name: "fallback"}
	got := ReadJSON(path, def)
	if got != def {
		t.Errorf("got %+v, want default %+v", got, def)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "value.json")

	want := sample{Name: "persisted", Count: 3}
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	got := ReadJSON(path, sample{})
	if got != want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "value.json")

	if err := WriteJSON(path, sample{Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(path, sample{Name: "b"}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}

	if got := ReadJSON(path, sample{}); got.Name != "b" {
		t.Errorf("latest write should win, got %+v", got)
	}
}

func TestPathsLayout(t *testing.T) {
	project := t.TempDir()
	p := NewPaths(project)

	if err := p.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}

	for _, dir := range []string{
		p.HistoryDir(), p.ProposalsDoneDir(), p.ProcessedStimuliDir(), p.DecisionsDir(), p.LogsDir(),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s: %v", dir, err)
		}
	}

	if got := p.HistoryFile(1); filepath.Base(got) != "cycle-0001.json" {
		t.Errorf("HistoryFile(1) = %s, want 4-digit name", got)
	}
	if got := p.HistoryFile(1234); filepath.Base(got) != "cycle-1234.json" {
		t.Errorf("HistoryFile(1234) = %s", got)
	}
}

func TestConsumeStimuliMovesToProcessed(t *testing.T) {
	p := NewPaths(t.TempDir())
	if err := p.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	if err := WriteNote(p.StimuliDir(), "b-second.md", "second"); err != nil {
		t.Fatal(err)
	}
	if err := WriteNote(p.StimuliDir(), "a-first.md", "first"); err != nil {
		t.Fatal(err)
	}

	notes, err := ConsumeStimuli(p.StimuliDir(), p.ProcessedStimuliDir())
	if err != nil {
		t.Fatalf("ConsumeStimuli: %v", err)
	}
	if len(notes) != 2 || notes[0].Name != "a-first.md" || notes[1].Name != "b-second.md" {
		t.Fatalf("notes = %+v, want sorted pair", notes)
	}

	// The source dir no longer offers them; the processed dir has them.
	remaining, _ := ListNotes(p.StimuliDir())
	if len(remaining) != 0 {
		t.Errorf("stimuli not moved: %+v", remaining)
	}
	if _, err := os.Stat(filepath.Join(p.ProcessedStimuliDir(), "a-first.md")); err != nil {
		t.Errorf("processed copy missing: %v", err)
	}

	// Second consumption finds nothing: never replayed.
	again, err := ConsumeStimuli(p.StimuliDir(), p.ProcessedStimuliDir())
	if err != nil || len(again) != 0 {
		t.Errorf("replayed stimuli: %+v, %v", again, err)
	}
}

func TestConsumeDecisionsDeletes(t *testing.T) {
	p := NewPaths(t.TempDir())
	if err := p.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	if err := WriteNote(p.DecisionsDir(), "focus.md", "work on the parser"); err != nil {
		t.Fatal(err)
	}

	notes, err := ConsumeDecisions(p.DecisionsDir())
	if err != nil {
		t.Fatalf("ConsumeDecisions: %v", err)
	}
	if len(notes) != 1 || notes[0].Content != "work on the parser" {
		t.Fatalf("notes = %+v", notes)
	}

	again, err := ConsumeDecisions(p.DecisionsDir())
	if err != nil || len(again) != 0 {
		t.Errorf("decision replayed: %+v, %v", again, err)
	}
}

func TestListNotesSkipsHiddenAndDirs(t *testing.T) {
	p := NewPaths(t.TempDir())
	if err := p.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	if err := WriteNote(p.StimuliDir(), "real.md", "x"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p.StimuliDir(), ".hidden.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p.StimuliDir(), "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	notes, err := ListNotes(p.StimuliDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Name != "real.md" {
		t.Errorf("notes = %+v, want only real.md", notes)
	}
}
