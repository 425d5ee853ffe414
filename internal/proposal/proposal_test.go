package proposal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/Iron-Ham/kaizen/internal/errors"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	return NewManager(filepath.Join(dir, "proposals"), filepath.Join(dir, "proposals", "done"))
}

func writePending(t *testing.T, m *Manager, name, content string) {
	t.Helper()
	if err := os.MkdirAll(m.pendingDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(m.pendingDir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAddNamesByPersonaAndSlug(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Add("# Proposal\n...", "Tighten error wrapping!", "refactorer")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "refactorer-tighten-error-wrapping-") {
		t.Errorf("id = %q", id)
	}
	if !strings.HasSuffix(id, ".md") {
		t.Errorf("id = %q, want .md suffix", id)
	}

	// Without persona or title, a bare timestamp name.
	id, err = m.Add("body", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(strings.TrimSuffix(id, ".md"), "-") != 1 {
		t.Errorf("bare id = %q, want timestamp only", id)
	}
}

func TestAddAvoidsSameSecondCollision(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Add("a", "same title", "persona")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Add("b", "same title", "persona")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("colliding ids: %q", first)
	}

	proposals, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(proposals) != 2 {
		t.Errorf("pending = %d, want 2", len(proposals))
	}
}

func TestSelectByExplicitID(t *testing.T) {
	m := newTestManager(t)
	writePending(t, m, "a.md", "Priority: low\n\nbody")

	p, err := m.Select("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "a.md" || p.Priority != "low" {
		t.Errorf("selected = %+v", p)
	}

	_, err = m.Select("missing.md")
	if !errors.Is(err, kerrors.ErrProposalNotFound) {
		t.Errorf("err = %v, want proposal-not-found", err)
	}
}

func TestSelectHighestPriorityOldestFirst(t *testing.T) {
	m := newTestManager(t)
	writePending(t, m, "2024-old-high.md", "**Priority**: high\n\nfirst high")
	writePending(t, m, "2025-new-high.md", "Priority: high\n\nsecond high")
	writePending(t, m, "2023-ancient-low.md", "Priority: low\n\nold but low")
	writePending(t, m, "2022-no-priority.md", "just a body")

	p, err := m.Select("")
	if err != nil {
		t.Fatal(err)
	}
	// Highest priority wins; among the two highs the older filename wins.
	if p.ID != "2024-old-high.md" {
		t.Errorf("selected %q, want 2024-old-high.md", p.ID)
	}
}

func TestSelectDefaultsUndeclaredToMedium(t *testing.T) {
	m := newTestManager(t)
	writePending(t, m, "a-low.md", "Priority: low\n\nbody")
	writePending(t, m, "b-undeclared.md", "no priority header")

	p, err := m.Select("")
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "b-undeclared.md" {
		t.Errorf("selected %q, want the implicit-medium proposal", p.ID)
	}
}

func TestSelectEmptyCollection(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Select("")
	if !errors.Is(err, kerrors.ErrNoPendingProposals) {
		t.Errorf("err = %v, want no-pending-proposals", err)
	}
}

func TestMarkDoneMovesArtifact(t *testing.T) {
	m := newTestManager(t)
	writePending(t, m, "done-me.md", "Priority: high\n\nbody")

	if err := m.MarkDone("done-me.md"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(m.doneDir, "done-me.md")); err != nil {
		t.Errorf("artifact not in done collection: %v", err)
	}
	if m.PendingCount() != 0 {
		t.Errorf("pending = %d after mark_done", m.PendingCount())
	}

	if err := m.MarkDone("done-me.md"); !errors.Is(err, kerrors.ErrProposalNotFound) {
		t.Errorf("second mark_done err = %v, want not-found", err)
	}
}

func TestScanPriorityFormats(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"Priority: high", "high"},
		{"**Priority:** LOW", "low"},
		{"# Title\n\n- Priority: medium", "medium"},
		{"> priority : High", "high"},
		{"no declaration here", "medium"},
		{strings.Repeat("filler\n", 15) + "Priority: high", "medium"}, // past the leading lines
	}
	for _, tc := range cases {
		if got := scanPriority(tc.content); got != tc.want {
			t.Errorf("scanPriority(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}
