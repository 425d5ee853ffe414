package mutation

import (
	"path/filepath"
	"testing"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	return NewCatalog(
		filepath.Join(dir, "dynamic-personas.json"),
		filepath.Join(dir, "dynamic-adversarials.json"),
	)
}

func TestBuiltinIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range append(BuiltinPersonas(), BuiltinAdversarials()...) {
		if seen[m.ID] {
			t.Errorf("duplicate builtin id %q", m.ID)
		}
		seen[m.ID] = true
		if m.Text == "" || m.Name == "" {
			t.Errorf("builtin %q missing name or text", m.ID)
		}
	}
}

func TestExpireIsStrictlyGreater(t *testing.T) {
	c := newTestCatalog(t)
	if !c.AddDynamicPersona(Mutation{ID: "ephemeral", Name: "E", Text: "x", ExpiresCycle: 5}, 10) {
		t.Fatal("add failed")
	}

	// Survives its final cycle.
	removed, err := c.Expire(5)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Errorf("Expire(5) removed %d, want 0", removed)
	}
	if _, ok := c.FindPersona("ephemeral"); !ok {
		t.Error("mutation should survive expire at its expires_cycle")
	}

	// Removed one cycle later.
	removed, err = c.Expire(6)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("Expire(6) removed %d, want 1", removed)
	}
	if _, ok := c.FindPersona("ephemeral"); ok {
		t.Error("mutation should be removed past its expires_cycle")
	}
}

func TestExpireNeverTouchesBuiltins(t *testing.T) {
	c := newTestCatalog(t)
	before := len(c.Personas())

	if _, err := c.Expire(1_000_000); err != nil {
		t.Fatal(err)
	}
	if got := len(c.Personas()); got != before {
		t.Errorf("builtin pool shrank from %d to %d", before, got)
	}
}

func TestAddDynamicSkipsCollisions(t *testing.T) {
	c := newTestCatalog(t)

	if c.AddDynamicPersona(Mutation{ID: "security-auditor", Name: "Imposter", Text: "x"}, 10) {
		t.Error("id colliding with a builtin must be skipped")
	}
	if !c.AddDynamicPersona(Mutation{ID: "novel", Name: "Novel", Text: "x", ExpiresCycle: 99}, 10) {
		t.Error("fresh id should be added")
	}
	if c.AddDynamicPersona(Mutation{ID: "novel", Name: "Again", Text: "x"}, 10) {
		t.Error("id colliding with a dynamic must be skipped")
	}

	m, ok := c.FindPersona("novel")
	if !ok || !m.Dynamic {
		t.Errorf("added mutation = %+v, want dynamic", m)
	}
}

func TestAddDynamicRespectsCap(t *testing.T) {
	c := newTestCatalog(t)

	if !c.AddDynamicAdversarial(Mutation{ID: "one", Name: "1", Text: "x"}, 1) {
		t.Fatal("first add should succeed")
	}
	if c.AddDynamicAdversarial(Mutation{ID: "two", Name: "2", Text: "x"}, 1) {
		t.Error("add beyond cap must be refused")
	}
}

func TestCatalogPersistsDynamics(t *testing.T) {
	dir := t.TempDir()
	personas := filepath.Join(dir, "p.json")
	adversarials := filepath.Join(dir, "a.json")

	c := NewCatalog(personas, adversarials)
	c.AddDynamicPersona(Mutation{ID: "persisted", Name: "P", Text: "x", ExpiresCycle: 42}, 10)
	if err := c.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewCatalog(personas, adversarials)
	m, ok := reloaded.FindPersona("persisted")
	if !ok || m.ExpiresCycle != 42 {
		t.Errorf("reloaded = %+v, %v", m, ok)
	}
}
