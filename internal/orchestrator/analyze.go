package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/kaizen/internal/mutation"
)

// AnalyzeOptions tune one analyze run.
type AnalyzeOptions struct {
	// Persona limits the run to one persona id; empty means every enabled
	// persona in turn.
	Persona string
}

// AnalyzeSummary aggregates one analyze run.
type AnalyzeSummary struct {
	PersonasRun      int
	ProposalsCreated int
}

// RunAnalyze runs the Observe phase only and converts every identified
// improvement directly into a pending proposal. It never updates cycle
// progress and writes no history.
func (o *Orchestrator) RunAnalyze(ctx context.Context, opts AnalyzeOptions) (AnalyzeSummary, error) {
	var summary AnalyzeSummary

	personas, err := o.analyzePersonas(opts.Persona)
	if err != nil {
		return summary, err
	}

	cycle := o.tracker.Stats().TotalCycles
	for _, persona := range personas {
		logger := o.logger.WithPersona(persona.ID)
		logger.Info("analyze observe starting")

		observed, err := o.observe(ctx, cycle, mutation.Selection{Persona: persona}, logger)
		if err != nil {
			return summary, err
		}
		summary.PersonasRun++
		if observed == nil {
			continue
		}

		for _, imp := range observed.Improvements {
			content := renderProposal(persona.ID, imp)
			if _, err := o.proposals.Add(content, imp.Title, persona.ID); err != nil {
				return summary, fmt.Errorf("creating proposal: %w", err)
			}
			summary.ProposalsCreated++
		}
		logger.Info("analyze complete", "proposals", len(observed.Improvements))
	}
	return summary, nil
}

// analyzePersonas resolves which personas an analyze run covers: the forced
// id (unfiltered lookup) or every currently enabled persona.
func (o *Orchestrator) analyzePersonas(forced string) ([]mutation.Mutation, error) {
	if forced != "" {
		m, ok := o.catalog.FindPersona(forced)
		if !ok {
			return nil, fmt.Errorf("unknown persona: %s", forced)
		}
		return []mutation.Mutation{m}, nil
	}

	var personas []mutation.Mutation
	for _, m := range o.catalog.Personas() {
		if enabled, ok := o.cfg.Personas[m.ID]; ok && !enabled {
			continue
		}
		personas = append(personas, m)
	}
	return personas, nil
}

func renderProposal(persona string, imp improvement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", imp.Title)
	fmt.Fprintf(&b, "Priority: %s\n", imp.Priority)
	fmt.Fprintf(&b, "Persona: %s\n", persona)
	if imp.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", imp.Category)
	}
	if len(imp.Files) > 0 {
		fmt.Fprintf(&b, "Files: %s\n", strings.Join(imp.Files, ", "))
	}
	b.WriteString("\n")
	b.WriteString(imp.Description)
	b.WriteString("\n")
	return b.String()
}
