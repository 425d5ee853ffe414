package scout

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Iron-Ham/kaizen/internal/agent"
	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/state"
)

type stubRunner struct {
	result  agent.Result
	prompts []string
}

func (s *stubRunner) Run(_ context.Context, req agent.Request) (agent.Result, error) {
	s.prompts = append(s.prompts, req.Prompt)
	return s.result, nil
}

func newTestScout(t *testing.T, output string) (*Scout, *stubRunner, state.Paths) {
	t.Helper()
	paths := state.NewPaths(t.TempDir())
	if err := paths.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	runner := &stubRunner{result: agent.Result{Output: output, Success: output != ""}}
	cfg := config.ScoutConfig{Enabled: true, CycleInterval: 15, MinRelevance: 0.6}
	return New(runner, paths, cfg, "sonnet", 6, logging.NopLogger()), runner, paths
}

func findingsJSON(findings string) string {
	return "```json\n{\"findings\": [" + findings + "]}\n```"
}

func TestShouldRunGating(t *testing.T) {
	s, _, _ := newTestScout(t, "")

	for cycle, want := range map[int]bool{0: false, 15: true, 16: false, 30: true} {
		if got := s.ShouldRun(cycle); got != want {
			t.Errorf("ShouldRun(%d) = %v, want %v", cycle, got, want)
		}
	}

	s.cfg.Enabled = false
	if s.ShouldRun(15) {
		t.Error("disabled scout must never run")
	}
}

func TestRunInjectsRelevantFindings(t *testing.T) {
	s, _, paths := newTestScout(t, findingsJSON(
		`{"title": "new fuzzing mode", "url": "https://example.com/a", "summary": "native fuzz", "relevance": 0.9},
		 {"title": "niche blog post", "url": "https://example.com/b", "relevance": 0.3}`))

	outcome, err := s.Run(context.Background(), 15, "a JSON parser")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.NewFindings != 2 || outcome.Injected != 1 {
		t.Errorf("outcome = %+v", outcome)
	}

	notes, err := state.ListNotes(paths.StimuliDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || !strings.Contains(notes[0].Content, "new fuzzing mode") {
		t.Errorf("notes = %+v", notes)
	}

	// Both findings are cached; only the relevant one is flagged injected.
	cache := state.ReadJSON(paths.ScoutFile(), Cache{})
	if cache.LastRunCycle != 15 || len(cache.Findings) != 2 {
		t.Fatalf("cache = %+v", cache)
	}
	for _, f := range cache.Findings {
		if f.Relevance >= 0.6 && (!f.Injected || f.InjectedCycle != 15) {
			t.Errorf("relevant finding not flagged: %+v", f)
		}
		if f.Relevance < 0.6 && f.Injected {
			t.Errorf("sub-threshold finding injected: %+v", f)
		}
	}
}

func TestRunDeduplicatesAgainstCache(t *testing.T) {
	finding := `{"title": "repeat me", "url": "https://example.com/x", "relevance": 0.9}`

	s, _, paths := newTestScout(t, findingsJSON(finding))
	if _, err := s.Run(context.Background(), 15, ""); err != nil {
		t.Fatal(err)
	}

	outcome, err := s.Run(context.Background(), 30, "")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Duplicates != 1 || outcome.NewFindings != 0 || outcome.Injected != 0 {
		t.Errorf("outcome = %+v", outcome)
	}

	cache := state.ReadJSON(paths.ScoutFile(), Cache{})
	if len(cache.Findings) != 1 {
		t.Errorf("duplicate appended to cache: %+v", cache.Findings)
	}
	if cache.LastRunCycle != 30 {
		t.Errorf("last_run_cycle = %d, want 30", cache.LastRunCycle)
	}
}

func TestRunAssignsStableIDs(t *testing.T) {
	s, _, paths := newTestScout(t, findingsJSON(
		`{"title": "t", "url": "https://example.com", "relevance": 0.1}`))
	if _, err := s.Run(context.Background(), 15, ""); err != nil {
		t.Fatal(err)
	}

	cache := state.ReadJSON(paths.ScoutFile(), Cache{})
	if cache.Findings[0].ID != fingerprint("t", "https://example.com") {
		t.Errorf("id = %q", cache.Findings[0].ID)
	}
}

func TestRunKeepsAgentProvidedIDs(t *testing.T) {
	s, _, paths := newTestScout(t, findingsJSON(
		`{"id": "abc", "title": "short-id finding", "url": "https://example.com/s", "relevance": 0.9}`))

	outcome, err := s.Run(context.Background(), 15, "")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Injected != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}

	notes, err := state.ListNotes(paths.StimuliDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Name != "scout-abc.md" {
		t.Errorf("notes = %+v", notes)
	}

	// The provided id stays the dedup key.
	cache := state.ReadJSON(paths.ScoutFile(), Cache{})
	if len(cache.Findings) != 1 || cache.Findings[0].ID != "abc" {
		t.Errorf("cache = %+v", cache.Findings)
	}
}

func TestStimulusNameSanitizes(t *testing.T) {
	for id, want := range map[string]string{
		"abc":                  "scout-abc.md",
		"a b/c":                "scout-a-b-c.md",
		"0123456789abcdef0123": "scout-0123456789ab.md",
	} {
		if got := stimulusName(id); got != want {
			t.Errorf("stimulusName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestPromptCarriesLastFiftySeenIDs(t *testing.T) {
	s, runner, paths := newTestScout(t, findingsJSON(""))

	var cache Cache
	for i := 0; i < 60; i++ {
		cache.Findings = append(cache.Findings, Finding{
			ID:    fmt.Sprintf("id-%03d", i),
			Title: fmt.Sprintf("finding %d", i),
		})
	}
	if err := state.WriteJSON(paths.ScoutFile(), cache); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Run(context.Background(), 15, ""); err != nil {
		t.Fatal(err)
	}

	prompt := runner.prompts[0]
	if strings.Contains(prompt, "id-009") {
		t.Error("prompt carries ids beyond the last-50 window")
	}
	if !strings.Contains(prompt, "id-010") || !strings.Contains(prompt, "id-059") {
		t.Error("prompt missing recent ids")
	}
}

func TestRunUpdatesCacheOnFailedAgent(t *testing.T) {
	s, _, paths := newTestScout(t, "")
	s.runner = &stubRunner{result: agent.Result{Success: false, ExitCode: 1}}

	outcome, err := s.Run(context.Background(), 15, "")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.NewFindings != 0 {
		t.Errorf("outcome = %+v", outcome)
	}
	cache := state.ReadJSON(paths.ScoutFile(), Cache{})
	if cache.LastRunCycle != 15 {
		t.Errorf("cache not stamped on failed run: %+v", cache)
	}
}
