// Package progress tracks per-mutation statistics and derives the adaptive
// selection weights that steer future cycles toward what has worked.
package progress

import (
	"strings"
	"time"

	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// convergenceThreshold is the touch count at which a code area is flagged
// as converged (diminishing returns).
const convergenceThreshold = 3

// MutationStats holds the historical record for one persona or adversarial.
type MutationStats struct {
	Uses          int     `json:"uses"`
	Successes     int     `json:"successes"`
	Failures      int     `json:"failures"`
	LastUsedCycle int     `json:"last_used_cycle"`
	Weight        float64 `json:"weight"`
}

// AreaStats counts touches of one top-level path segment.
type AreaStats struct {
	Touches   int  `json:"touches"`
	Converged bool `json:"converged"`
}

// Stats is the complete persisted progress record. Counters are monotonic
// and never cleared.
type Stats struct {
	TotalCycles int `json:"total_cycles"`
	Successes   int `json:"successes"`
	Failures    int `json:"failures"`

	Mutations map[string]*MutationStats `json:"mutations"`
	Areas     map[string]*AreaStats     `json:"areas"`

	// FirstSuccessAt is stamped once, on the first successful cycle ever.
	FirstSuccessAt *time.Time `json:"first_success_at,omitempty"`
	// TotalCommits counts successful commits cumulatively.
	TotalCommits int `json:"total_commits"`
}

// NewStats returns an empty Stats with initialized maps.
func NewStats() Stats {
	return Stats{
		Mutations: map[string]*MutationStats{},
		Areas:     map[string]*AreaStats{},
	}
}

// Tracker loads, updates, and persists Stats for one project.
type Tracker struct {
	path    string
	weights config.WeightsConfig
	stats   Stats
	now     func() time.Time
}

// NewTracker loads the progress record at path (empty stats if absent).
func NewTracker(path string, weights config.WeightsConfig) *Tracker {
	stats := state.ReadJSON(path, NewStats())
	if stats.Mutations == nil {
		stats.Mutations = map[string]*MutationStats{}
	}
	if stats.Areas == nil {
		stats.Areas = map[string]*AreaStats{}
	}
	return &Tracker{path: path, weights: weights, stats: stats, now: time.Now}
}

// Stats returns the current record.
func (t *Tracker) Stats() Stats {
	return t.stats
}

// Update records one cycle outcome for the chosen persona (and adversarial,
// if any), touches the changed areas, and persists the record.
func (t *Tracker) Update(success bool, personaID, adversarialID string, changedFiles []string, cycle int) error {
	t.stats.TotalCycles++
	if success {
		t.stats.Successes++
	} else {
		t.stats.Failures++
	}

	t.updateMutation(personaID, success, cycle)
	if adversarialID != "" {
		t.updateMutation(adversarialID, success, cycle)
	}

	for _, file := range changedFiles {
		area := topLevelSegment(file)
		if area == "" {
			continue
		}
		stats, ok := t.stats.Areas[area]
		if !ok {
			stats = &AreaStats{}
			t.stats.Areas[area] = stats
		}
		stats.Touches++
		if stats.Touches >= convergenceThreshold {
			stats.Converged = true
		}
	}

	if success {
		if t.stats.FirstSuccessAt == nil {
			now := t.now()
			t.stats.FirstSuccessAt = &now
		}
		t.stats.TotalCommits++
	}

	return t.Save()
}

// RecordNeutral counts a cycle that ended without an attempted change (a
// clean "nothing left to do" stop), attributing neither success nor failure
// to the mutations involved.
func (t *Tracker) RecordNeutral() error {
	t.stats.TotalCycles++
	return t.Save()
}

func (t *Tracker) updateMutation(id string, success bool, cycle int) {
	stats, ok := t.stats.Mutations[id]
	if !ok {
		stats = &MutationStats{Weight: 1.0}
		t.stats.Mutations[id] = stats
	}
	stats.Uses++
	if success {
		stats.Successes++
	} else {
		stats.Failures++
	}
	stats.LastUsedCycle = cycle
}

// RecalculateWeights recomputes the weight of every given mutation id as of
// currentCycle and persists the record. Unseen ids stay at the default 1.0.
func (t *Tracker) RecalculateWeights(ids []string, currentCycle int) error {
	for _, id := range ids {
		stats, ok := t.stats.Mutations[id]
		if !ok {
			continue
		}
		stats.Weight = Weight(*stats, t.weights, currentCycle)
	}
	return t.Save()
}

// Weight returns the selection weight for a mutation id, defaulting to 1.0
// for ids with no recorded uses.
func (t *Tracker) Weight(id string) float64 {
	stats, ok := t.stats.Mutations[id]
	if !ok || stats.Uses == 0 {
		return 1.0
	}
	if stats.Weight == 0 {
		return 1.0
	}
	return stats.Weight
}

// ConvergedAreas returns the top-level path segments flagged as converged,
// for the Observe prompt's diminishing-returns hint.
func (t *Tracker) ConvergedAreas() []string {
	var areas []string
	for area, stats := range t.stats.Areas {
		if stats.Converged {
			areas = append(areas, area)
		}
	}
	return areas
}

// Save persists the record atomically.
func (t *Tracker) Save() error {
	return state.WriteJSON(t.path, t.stats)
}

// Weight computes the adaptive selection weight for one mutation:
//
//	clamp(1.0 + successRate*successCoeff − failureRate*failureCoeff + recencyBonus, min, max)
//
// where the recency bonus applies once the mutation has sat unused for at
// least the configured cycle gap. Zero uses always yields 1.0.
func Weight(stats MutationStats, cfg config.WeightsConfig, currentCycle int) float64 {
	if stats.Uses == 0 {
		return 1.0
	}

	successRate := float64(stats.Successes) / float64(stats.Uses)
	failureRate := float64(stats.Failures) / float64(stats.Uses)

	weight := 1.0 + successRate*cfg.SuccessCoefficient - failureRate*cfg.FailureCoefficient
	if currentCycle-stats.LastUsedCycle >= cfg.RecencyThreshold {
		weight += cfg.RecencyBonus
	}

	if weight < cfg.Min {
		return cfg.Min
	}
	if weight > cfg.Max {
		return cfg.Max
	}
	return weight
}

// topLevelSegment returns the first path component of a changed file.
func topLevelSegment(path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "./")
	if path == "" {
		return ""
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
