package progress

import (
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/kaizen/internal/config"
)

func defaultWeights() config.WeightsConfig {
	return config.Default().Weights
}

func statsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "progress.json")
}

func TestWeightReferenceValues(t *testing.T) {
	cfg := defaultWeights()

	tests := []struct {
		name  string
		stats MutationStats
		cycle int
		want  float64
	}{
		{
			name:  "all successes, recently used",
			stats: MutationStats{Uses: 10, Successes: 10, Failures: 0, LastUsedCycle: 10},
			cycle: 10,
			want:  1.5,
		},
		{
			name:  "all failures, recently used",
			stats: MutationStats{Uses: 10, Successes: 0, Failures: 10, LastUsedCycle: 10},
			cycle: 10,
			want:  0.7,
		},
		{
			name:  "unused defaults to 1.0",
			stats: MutationStats{},
			cycle: 50,
			want:  1.0,
		},
		{
			name:  "recency bonus at exactly the threshold gap",
			stats: MutationStats{Uses: 10, Successes: 10, LastUsedCycle: 7},
			cycle: 10,
			want:  1.8,
		},
		{
			name:  "no recency bonus just under the threshold gap",
			stats: MutationStats{Uses: 10, Successes: 10, LastUsedCycle: 8},
			cycle: 10,
			want:  1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weight(tt.stats, cfg, tt.cycle)
			if got != tt.want {
				t.Errorf("Weight = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightStaysClamped(t *testing.T) {
	cfg := defaultWeights()

	// Exhaustive-ish sweep over valid counter combinations.
	for uses := 0; uses <= 20; uses++ {
		for successes := 0; successes <= uses; successes++ {
			failures := uses - successes
			for gap := 0; gap <= 5; gap++ {
				stats := MutationStats{
					Uses:          uses,
					Successes:     successes,
					Failures:      failures,
					LastUsedCycle: 10,
				}
				w := Weight(stats, cfg, 10+gap)
				if w < cfg.Min || w > cfg.Max {
					t.Fatalf("Weight(uses=%d succ=%d fail=%d gap=%d) = %v outside [%v, %v]",
						uses, successes, failures, gap, w, cfg.Min, cfg.Max)
				}
			}
		}
	}
}

func TestUpdateCountsAndConvergence(t *testing.T) {
	tracker := NewTracker(statsPath(t), defaultWeights())

	files := []string{"internal/parser/lex.go", "main.go"}
	for cycle := 1; cycle <= 3; cycle++ {
		ok := cycle != 2
		if err := tracker.Update(ok, "security-auditor", "", files, cycle); err != nil {
			t.Fatalf("Update cycle %d: %v", cycle, err)
		}
	}

	stats := tracker.Stats()
	if stats.TotalCycles != 3 || stats.Successes != 2 || stats.Failures != 1 {
		t.Errorf("global counters = %d/%d/%d", stats.TotalCycles, stats.Successes, stats.Failures)
	}

	ms := stats.Mutations["security-auditor"]
	if ms == nil || ms.Uses != 3 || ms.Successes != 2 || ms.Failures != 1 || ms.LastUsedCycle != 3 {
		t.Errorf("mutation stats = %+v", ms)
	}

	// internal/ was touched three times: converged.
	area := stats.Areas["internal"]
	if area == nil || area.Touches != 3 || !area.Converged {
		t.Errorf("area internal = %+v, want converged at 3 touches", area)
	}

	if stats.FirstSuccessAt == nil {
		t.Error("first success timestamp not stamped")
	}
	if stats.TotalCommits != 2 {
		t.Errorf("TotalCommits = %d", stats.TotalCommits)
	}
}

func TestUpdateRecordsAdversarialToo(t *testing.T) {
	tracker := NewTracker(statsPath(t), defaultWeights())

	if err := tracker.Update(true, "performance-hawk", "chaos-monkey", nil, 1); err != nil {
		t.Fatal(err)
	}

	stats := tracker.Stats()
	if stats.Mutations["chaos-monkey"] == nil || stats.Mutations["chaos-monkey"].Uses != 1 {
		t.Errorf("adversarial stats = %+v", stats.Mutations["chaos-monkey"])
	}
}

func TestFirstSuccessStampedOnce(t *testing.T) {
	tracker := NewTracker(statsPath(t), defaultWeights())

	if err := tracker.Update(true, "p", "", nil, 1); err != nil {
		t.Fatal(err)
	}
	first := tracker.Stats().FirstSuccessAt
	if first == nil {
		t.Fatal("not stamped")
	}

	if err := tracker.Update(true, "p", "", nil, 2); err != nil {
		t.Fatal(err)
	}
	if !tracker.Stats().FirstSuccessAt.Equal(*first) {
		t.Error("first success timestamp was overwritten")
	}
}

func TestRecalculateWeightsAndPersistence(t *testing.T) {
	path := statsPath(t)
	tracker := NewTracker(path, defaultWeights())

	for cycle := 1; cycle <= 10; cycle++ {
		if err := tracker.Update(true, "refactorer", "", nil, cycle); err != nil {
			t.Fatal(err)
		}
	}
	if err := tracker.RecalculateWeights([]string{"refactorer", "never-used"}, 10); err != nil {
		t.Fatal(err)
	}

	if got := tracker.Weight("refactorer"); got != 1.5 {
		t.Errorf("Weight(refactorer) = %v, want 1.5", got)
	}
	if got := tracker.Weight("never-used"); got != 1.0 {
		t.Errorf("Weight(never-used) = %v, want default 1.0", got)
	}

	// A fresh tracker sees the persisted weights.
	reloaded := NewTracker(path, defaultWeights())
	if got := reloaded.Weight("refactorer"); got != 1.5 {
		t.Errorf("reloaded Weight(refactorer) = %v", got)
	}
}

func TestTopLevelSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"internal/parser/lex.go", "internal"},
		{"main.go", "main.go"},
		{"./cmd/tool/main.go", "cmd"},
		{"  docs/readme.md", "docs"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := topLevelSegment(tt.in); got != tt.want {
			t.Errorf("topLevelSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
