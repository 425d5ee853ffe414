package orchestrator

import (
	"time"

	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/state"
)

// CycleRecord is the immutable per-cycle history entry, written once to
// history/cycle-NNNN.json and never rewritten.
type CycleRecord struct {
	Cycle   int  `json:"cycle"`
	Success bool `json:"success"`
	// NoOp marks a cycle where verification passed but nothing changed.
	NoOp bool `json:"no_op,omitempty"`
	// Skipped marks a cycle ended by Plan without attempting changes.
	Skipped         bool     `json:"skipped,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
	Persona         string   `json:"persona"`
	Adversarial     string   `json:"adversarial,omitempty"`
	CommitMessage   string   `json:"commit_message,omitempty"`
	ChangedFiles    []string `json:"changed_files,omitempty"`
	FailureReason   string   `json:"failure_reason,omitempty"`
	CompletedAt     string   `json:"completed_at"`
}

// PendingSession is the paused cautious-mode cycle, consumed exactly once
// by resume or cleared by cancel.
type PendingSession struct {
	Cycle         int           `json:"cycle"`
	Persona       string        `json:"persona"`
	Adversarial   string        `json:"adversarial,omitempty"`
	Plan          string        `json:"plan"`
	CommitMessage string        `json:"commit_message"`
	// BacklogItemID is the claimed backlog item, settled on resume or
	// re-queued on cancel.
	BacklogItemID string        `json:"backlog_item_id,omitempty"`
	Config        config.Config `json:"config"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Environment caches project facts that feed prompt and budget computation.
type Environment struct {
	SourceFiles  int    `json:"source_files"`
	UpdatedCycle int    `json:"updated_cycle"`
	UpdatedAt    string `json:"updated_at"`
}

// writeHistory appends the immutable record for one cycle.
func (o *Orchestrator) writeHistory(rec CycleRecord) error {
	rec.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	return state.WriteJSON(o.paths.HistoryFile(rec.Cycle), rec)
}

// RecentHistory loads the last n cycle records, oldest first.
func (o *Orchestrator) RecentHistory(n int) []CycleRecord {
	current := o.tracker.Stats().TotalCycles
	var records []CycleRecord
	for cycle := current; cycle > 0 && len(records) < n; cycle-- {
		rec := state.ReadJSON(o.paths.HistoryFile(cycle), CycleRecord{})
		if rec.Cycle == 0 {
			continue
		}
		records = append([]CycleRecord{rec}, records...)
	}
	return records
}
