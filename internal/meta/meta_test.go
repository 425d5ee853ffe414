package meta

import (
	"context"
	"strings"
	"testing"

	"github.com/Iron-Ham/kaizen/internal/agent"
	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/mutation"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// stubRunner returns a canned result and records prompts.
type stubRunner struct {
	result  agent.Result
	prompts []string
}

func (s *stubRunner) Run(_ context.Context, req agent.Request) (agent.Result, error) {
	s.prompts = append(s.prompts, req.Prompt)
	return s.result, nil
}

func newTestObserver(t *testing.T, output string) (*Observer, *mutation.Catalog, state.Paths) {
	t.Helper()
	paths := state.NewPaths(t.TempDir())
	if err := paths.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	catalog := mutation.NewCatalog(paths.DynamicPersonasFile(), paths.DynamicAdversarialsFile())
	runner := &stubRunner{result: agent.Result{Output: output, Success: output != ""}}
	cfg := config.MetaConfig{
		CycleInterval:          10,
		DynamicTTL:             30,
		MaxDynamicPersonas:     5,
		MaxDynamicAdversarials: 3,
	}
	return NewObserver(runner, catalog, paths, cfg, "sonnet", 8, logging.NopLogger()), catalog, paths
}

func TestShouldRunOnInterval(t *testing.T) {
	o, _, _ := newTestObserver(t, "")

	for cycle, want := range map[int]bool{0: false, 1: false, 9: false, 10: true, 20: true, 25: false} {
		if got := o.ShouldRun(cycle); got != want {
			t.Errorf("ShouldRun(%d) = %v, want %v", cycle, got, want)
		}
	}
}

func TestRunAddsMutationsWithTTL(t *testing.T) {
	output := "```json\n" + `{
		"new_personas": [{"id": "cache-whisperer", "name": "Cache Whisperer", "text": "hunt redundant recomputation"}],
		"new_adversarials": [{"id": "bit-flipper", "name": "Bit Flipper", "text": "corrupt persisted state"}],
		"auto_stimuli": [],
		"advice": {"strategic_direction": "", "focus_areas": []}
	}` + "\n```"

	o, catalog, _ := newTestObserver(t, output)
	outcome, err := o.Run(context.Background(), Context{Cycle: 10})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.AddedPersonas != 1 || outcome.AddedAdversarials != 1 {
		t.Errorf("outcome = %+v", outcome)
	}

	m, ok := catalog.FindPersona("cache-whisperer")
	if !ok {
		t.Fatal("generated persona not in catalog")
	}
	if !m.Dynamic || m.ExpiresCycle != 40 {
		t.Errorf("mutation = %+v, want dynamic with expires_cycle 40", m)
	}
}

func TestRunExpiresBeforeAdding(t *testing.T) {
	o, catalog, _ := newTestObserver(t, "```json\n{}\n```")
	catalog.AddDynamicPersona(mutation.Mutation{ID: "dying", Name: "D", Text: "x", ExpiresCycle: 5}, 5)

	outcome, err := o.Run(context.Background(), Context{Cycle: 10})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Expired != 1 {
		t.Errorf("expired = %d, want 1", outcome.Expired)
	}
	if _, ok := catalog.FindPersona("dying"); ok {
		t.Error("expired mutation still in catalog")
	}
}

func TestRunSkipsCollidingIDs(t *testing.T) {
	output := "```json\n" + `{
		"new_personas": [{"id": "security-auditor", "name": "Imposter", "text": "x"}]
	}` + "\n```"

	o, _, _ := newTestObserver(t, output)
	outcome, err := o.Run(context.Background(), Context{Cycle: 10})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.AddedPersonas != 0 {
		t.Errorf("colliding id was added: %+v", outcome)
	}
}

func TestRunWritesStimuli(t *testing.T) {
	output := "```json\n" + `{
		"auto_stimuli": ["look at the new stdlib iterator APIs", ""]
	}` + "\n```"

	o, _, paths := newTestObserver(t, output)
	outcome, err := o.Run(context.Background(), Context{Cycle: 10})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.StimuliWritten != 1 {
		t.Errorf("stimuli = %d, want 1 (empty entries skipped)", outcome.StimuliWritten)
	}

	notes, err := state.ListNotes(paths.StimuliDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Content != "look at the new stdlib iterator APIs" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestRunOverwritesAdviceWholesale(t *testing.T) {
	o, _, paths := newTestObserver(t, "```json\n"+`{
		"advice": {"strategic_direction": "focus on the parser", "focus_areas": ["internal/parse"]}
	}`+"\n```")

	// Pre-existing advice with fields the new record does not carry.
	old := Advice{StrategicDirection: "old direction", FocusAreas: []string{"a", "b"}, GeneratedCycle: 3}
	if err := state.WriteJSON(paths.AdviceFile(), old); err != nil {
		t.Fatal(err)
	}

	outcome, err := o.Run(context.Background(), Context{Cycle: 20})
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.AdviceUpdated {
		t.Error("advice not updated")
	}

	advice := LoadAdvice(paths.AdviceFile())
	if advice.StrategicDirection != "focus on the parser" || advice.GeneratedCycle != 20 {
		t.Errorf("advice = %+v", advice)
	}
	if len(advice.FocusAreas) != 1 {
		t.Errorf("old focus areas leaked through: %+v", advice.FocusAreas)
	}
}

func TestRunKeepsAdviceWhenDirectionEmpty(t *testing.T) {
	o, _, paths := newTestObserver(t, "```json\n{\"advice\": {\"strategic_direction\": \"  \"}}\n```")

	old := Advice{StrategicDirection: "keep me", GeneratedCycle: 3}
	if err := state.WriteJSON(paths.AdviceFile(), old); err != nil {
		t.Fatal(err)
	}

	outcome, err := o.Run(context.Background(), Context{Cycle: 20})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.AdviceUpdated {
		t.Error("blank direction must not overwrite advice")
	}
	if advice := LoadAdvice(paths.AdviceFile()); advice.StrategicDirection != "keep me" {
		t.Errorf("advice = %+v", advice)
	}
}

func TestRunToleratesUnparseableOutput(t *testing.T) {
	o, _, _ := newTestObserver(t, "I could not produce JSON, sorry.")

	outcome, err := o.Run(context.Background(), Context{Cycle: 10})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.AddedPersonas != 0 || outcome.StimuliWritten != 0 {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestPromptCarriesContext(t *testing.T) {
	o, _, _ := newTestObserver(t, "```json\n{}\n```")
	runner := &stubRunner{result: agent.Result{Output: "```json\n{}\n```", Success: true}}
	o.runner = runner

	_, err := o.Run(context.Background(), Context{
		Cycle:          10,
		Identity:       "a JSON parser library",
		ConvergedAreas: []string{"internal/lex"},
	})
	if err != nil {
		t.Fatal(err)
	}

	prompt := runner.prompts[0]
	for _, want := range []string{"a JSON parser library", "internal/lex", "security-auditor"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
