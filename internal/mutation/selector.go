package mutation

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Iron-Ham/kaizen/internal/state"
)

// WeightFunc returns the adaptive selection weight for a mutation id.
// Unseen ids are expected to return 1.0.
type WeightFunc func(id string) float64

// Selection is the full per-cycle draw: one persona, an optional
// adversarial, and the consumed one-shot records.
type Selection struct {
	Persona     Mutation
	Adversarial *Mutation
	Stimuli     []state.Note
	Decisions   []state.Note
}

// Options tune a single selection.
type Options struct {
	// ForcePersona bypasses the disabled and group filters for this id.
	ForcePersona string
	// ForceAdversarial is "" (roll the dice), "none" (skip), or an id.
	ForceAdversarial string
}

// Selector draws the mutation for each cycle via cumulative-weight sampling.
type Selector struct {
	catalog *Catalog
	weight  WeightFunc
	paths   state.Paths

	// Probability is the adversarial trigger chance in [0,1].
	Probability float64
	// ActiveGroup optionally filters persona candidates to one group tag.
	ActiveGroup string
	// Disabled holds the toggle maps; an id mapped to false is excluded.
	DisabledPersonas     map[string]bool
	DisabledAdversarials map[string]bool

	rng *rand.Rand
}

// NewSelector creates a Selector over the catalog. weight may not be nil.
func NewSelector(catalog *Catalog, weight WeightFunc, paths state.Paths) *Selector {
	return &Selector{
		catalog: catalog,
		weight:  weight,
		paths:   paths,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SeedRand replaces the random source, for deterministic tests.
func (s *Selector) SeedRand(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// Select draws the cycle's persona and optional adversarial, and consumes
// all pending stimuli and decisions. Stimuli are archived to the processed
// area and decisions deleted, so neither is ever replayed.
func (s *Selector) Select(opts Options) (Selection, error) {
	persona, err := s.selectPersona(opts.ForcePersona)
	if err != nil {
		return Selection{}, err
	}

	adversarial, err := s.selectAdversarial(opts.ForceAdversarial)
	if err != nil {
		return Selection{}, err
	}

	stimuli, err := state.ConsumeStimuli(s.paths.StimuliDir(), s.paths.ProcessedStimuliDir())
	if err != nil {
		return Selection{}, err
	}
	decisions, err := state.ConsumeDecisions(s.paths.DecisionsDir())
	if err != nil {
		return Selection{}, err
	}

	return Selection{
		Persona:     persona,
		Adversarial: adversarial,
		Stimuli:     stimuli,
		Decisions:   decisions,
	}, nil
}

// selectPersona picks from the filtered pool, or looks a forced id up in
// the unfiltered full pool.
func (s *Selector) selectPersona(forced string) (Mutation, error) {
	if forced != "" {
		m, ok := s.catalog.FindPersona(forced)
		if !ok {
			return Mutation{}, fmt.Errorf("unknown persona: %s", forced)
		}
		return m, nil
	}

	pool := s.personaPool()
	if len(pool) == 0 {
		return Mutation{}, fmt.Errorf("no enabled personas to select from")
	}
	return s.weightedPick(pool), nil
}

// personaPool applies the disabled and group filters to the full pool.
func (s *Selector) personaPool() []Mutation {
	var pool []Mutation
	for _, m := range s.catalog.Personas() {
		if enabled, ok := s.DisabledPersonas[m.ID]; ok && !enabled {
			continue
		}
		if s.ActiveGroup != "" && m.Group != s.ActiveGroup {
			continue
		}
		pool = append(pool, m)
	}
	return pool
}

// selectAdversarial resolves the optional challenge: a forced id wins, an
// explicit "none" skips, and otherwise a uniform draw against the trigger
// probability decides whether to weighted-pick from the enabled pool.
func (s *Selector) selectAdversarial(forced string) (*Mutation, error) {
	switch forced {
	case "none":
		return nil, nil
	case "":
		// fall through to the probability roll
	default:
		m, ok := s.catalog.FindAdversarial(forced)
		if !ok {
			return nil, fmt.Errorf("unknown adversarial: %s", forced)
		}
		return &m, nil
	}

	if s.rng.Float64() >= s.Probability {
		return nil, nil
	}

	var pool []Mutation
	for _, m := range s.catalog.Adversarials() {
		if enabled, ok := s.DisabledAdversarials[m.ID]; ok && !enabled {
			continue
		}
		pool = append(pool, m)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	m := s.weightedPick(pool)
	return &m, nil
}

// weightedPick samples one mutation with probability proportional to its
// weight: a uniform draw over the cumulative total.
func (s *Selector) weightedPick(pool []Mutation) Mutation {
	total := 0.0
	for _, m := range pool {
		total += s.weight(m.ID)
	}
	if total <= 0 {
		return pool[s.rng.Intn(len(pool))]
	}

	draw := s.rng.Float64() * total
	cumulative := 0.0
	for _, m := range pool {
		cumulative += s.weight(m.ID)
		if draw < cumulative {
			return m
		}
	}
	return pool[len(pool)-1]
}
