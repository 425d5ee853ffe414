package mutation

import (
	"github.com/Iron-Ham/kaizen/internal/state"
)

// Catalog is the effective mutation pool for one project: the read-only
// built-ins plus the persisted dynamic mutations.
type Catalog struct {
	personasPath     string
	adversarialsPath string

	builtinPersonas     []Mutation
	builtinAdversarials []Mutation
	dynamicPersonas     []Mutation
	dynamicAdversarials []Mutation
}

// NewCatalog loads the dynamic pools from their files (empty if absent).
func NewCatalog(personasPath, adversarialsPath string) *Catalog {
	return &Catalog{
		personasPath:        personasPath,
		adversarialsPath:    adversarialsPath,
		builtinPersonas:     BuiltinPersonas(),
		builtinAdversarials: BuiltinAdversarials(),
		dynamicPersonas:     state.ReadJSON(personasPath, []Mutation{}),
		dynamicAdversarials: state.ReadJSON(adversarialsPath, []Mutation{}),
	}
}

// Personas returns built-in plus dynamic personas, in stable order.
func (c *Catalog) Personas() []Mutation {
	return append(append([]Mutation{}, c.builtinPersonas...), c.dynamicPersonas...)
}

// Adversarials returns built-in plus dynamic adversarials, in stable order.
func (c *Catalog) Adversarials() []Mutation {
	return append(append([]Mutation{}, c.builtinAdversarials...), c.dynamicAdversarials...)
}

// AllIDs returns every currently loaded mutation id, personas first.
func (c *Catalog) AllIDs() []string {
	var ids []string
	for _, m := range c.Personas() {
		ids = append(ids, m.ID)
	}
	for _, m := range c.Adversarials() {
		ids = append(ids, m.ID)
	}
	return ids
}

// FindPersona looks an id up across the full persona pool.
func (c *Catalog) FindPersona(id string) (Mutation, bool) {
	return find(c.Personas(), id)
}

// FindAdversarial looks an id up across the full adversarial pool.
func (c *Catalog) FindAdversarial(id string) (Mutation, bool) {
	return find(c.Adversarials(), id)
}

func find(pool []Mutation, id string) (Mutation, bool) {
	for _, m := range pool {
		if m.ID == id {
			return m, true
		}
	}
	return Mutation{}, false
}

// has reports whether any loaded mutation (builtin or dynamic) uses the id.
func (c *Catalog) has(id string) bool {
	if _, ok := c.FindPersona(id); ok {
		return true
	}
	_, ok := c.FindAdversarial(id)
	return ok
}

// Expire removes dynamic mutations whose TTL has passed (strictly:
// a mutation with expires_cycle E survives cycle E and dies at E+1).
// Returns how many were removed.
func (c *Catalog) Expire(currentCycle int) (int, error) {
	before := len(c.dynamicPersonas) + len(c.dynamicAdversarials)
	c.dynamicPersonas = dropExpired(c.dynamicPersonas, currentCycle)
	c.dynamicAdversarials = dropExpired(c.dynamicAdversarials, currentCycle)
	removed := before - len(c.dynamicPersonas) - len(c.dynamicAdversarials)

	if removed > 0 {
		if err := c.Save(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func dropExpired(pool []Mutation, currentCycle int) []Mutation {
	kept := pool[:0]
	for _, m := range pool {
		if !m.Expired(currentCycle) {
			kept = append(kept, m)
		}
	}
	return kept
}

// AddDynamicPersona appends a generated persona unless its id collides with
// any existing mutation or the pool is at capacity. Returns whether it was
// added.
func (c *Catalog) AddDynamicPersona(m Mutation, maxDynamic int) bool {
	if m.ID == "" || c.has(m.ID) || len(c.dynamicPersonas) >= maxDynamic {
		return false
	}
	m.Dynamic = true
	c.dynamicPersonas = append(c.dynamicPersonas, m)
	return true
}

// AddDynamicAdversarial appends a generated adversarial under the same rules.
func (c *Catalog) AddDynamicAdversarial(m Mutation, maxDynamic int) bool {
	if m.ID == "" || c.has(m.ID) || len(c.dynamicAdversarials) >= maxDynamic {
		return false
	}
	m.Dynamic = true
	c.dynamicAdversarials = append(c.dynamicAdversarials, m)
	return true
}

// DynamicCounts returns the sizes of the two dynamic pools.
func (c *Catalog) DynamicCounts() (personas, adversarials int) {
	return len(c.dynamicPersonas), len(c.dynamicAdversarials)
}

// Save persists both dynamic pools.
func (c *Catalog) Save() error {
	if err := state.WriteJSON(c.personasPath, c.dynamicPersonas); err != nil {
		return err
	}
	return state.WriteJSON(c.adversarialsPath, c.dynamicAdversarials)
}
