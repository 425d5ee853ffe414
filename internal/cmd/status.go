package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/backlog"
	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/lock"
	"github.com/Iron-Ham/kaizen/internal/orchestrator"
	"github.com/Iron-Ham/kaizen/internal/progress"
	"github.com/Iron-Ham/kaizen/internal/proposal"
	"github.com/Iron-Ham/kaizen/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress, weights, backlog, and pending work",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}
	paths := state.NewPaths(dir)

	cfg, err := config.NewResolver(paths.ConfigFile()).Load(nil)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(paths.ProgressFile(), cfg.Weights)
	stats := tracker.Stats()

	fmt.Println(headerStyle.Render("Kaizen status") + mutedStyle.Render(" — "+dir))
	fmt.Println()

	// Global counters
	fmt.Printf("Cycles: %d  %s  %s  Commits: %d\n",
		stats.TotalCycles,
		okStyle.Render(fmt.Sprintf("Successes: %d", stats.Successes)),
		errStyle.Render(fmt.Sprintf("Failures: %d", stats.Failures)),
		stats.TotalCommits)
	if stats.FirstSuccessAt != nil {
		fmt.Println(mutedStyle.Render("First success: " + stats.FirstSuccessAt.Format("2006-01-02 15:04")))
	}
	fmt.Println()

	printWeights(stats)
	printAreas(stats)
	printBacklog(paths, cfg)
	printProposals(paths)
	printHistory(paths, stats.TotalCycles)
	printPending(paths)

	if pid, held := lock.Holder(paths.LockFile()); held {
		fmt.Println(warnStyle.Render(fmt.Sprintf("A run appears active (lock held by PID %d).", pid)))
	}
	return nil
}

func printWeights(stats progress.Stats) {
	if len(stats.Mutations) == 0 {
		return
	}

	type entry struct {
		id string
		s  *progress.MutationStats
	}
	entries := make([]entry, 0, len(stats.Mutations))
	for id, s := range stats.Mutations {
		entries = append(entries, entry{id, s})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].s.Weight != entries[j].s.Weight {
			return entries[i].s.Weight > entries[j].s.Weight
		}
		return entries[i].id < entries[j].id
	})
	if len(entries) > 5 {
		entries = entries[:5]
	}

	fmt.Println(headerStyle.Render("Top mutation weights"))
	for _, e := range entries {
		fmt.Printf("  %-24s %.2f  (%d uses, %d ok, %d failed)\n",
			e.id, e.s.Weight, e.s.Uses, e.s.Successes, e.s.Failures)
	}
	fmt.Println()
}

func printAreas(stats progress.Stats) {
	var converged []string
	for area, s := range stats.Areas {
		if s.Converged {
			converged = append(converged, area)
		}
	}
	if len(converged) == 0 {
		return
	}
	sort.Strings(converged)
	fmt.Println(headerStyle.Render("Converged areas") +
		mutedStyle.Render(" (repeatedly touched, diminishing returns)"))
	fmt.Println("  " + strings.Join(converged, ", "))
	fmt.Println()
}

func printBacklog(paths state.Paths, cfg *config.Config) {
	mgr := backlog.NewManager(paths.BacklogFile(), cfg.Backlog)
	items := mgr.Items()
	if len(items) == 0 {
		return
	}

	counts := map[backlog.Status]int{}
	for _, item := range items {
		counts[item.Status]++
	}
	fmt.Println(headerStyle.Render("Backlog"))
	fmt.Printf("  %d pending, %d in progress, %d completed, %d stale\n",
		counts[backlog.StatusPending], counts[backlog.StatusInProgress],
		counts[backlog.StatusCompleted], counts[backlog.StatusStale])
	for _, item := range mgr.Context(3) {
		fmt.Printf("  - [%s] %s\n", item.Priority, item.Title)
	}
	fmt.Println()
}

func printProposals(paths state.Paths) {
	mgr := proposal.NewManager(paths.ProposalsDir(), paths.ProposalsDoneDir())
	if n := mgr.PendingCount(); n > 0 {
		fmt.Println(headerStyle.Render("Proposals") +
			fmt.Sprintf(" %d pending — apply with %s\n", n, emphStyle.Render("kaizen improve")))
	}
}

func printHistory(paths state.Paths, totalCycles int) {
	var records []orchestrator.CycleRecord
	for cycle := totalCycles; cycle > 0 && len(records) < 5; cycle-- {
		rec := state.ReadJSON(paths.HistoryFile(cycle), orchestrator.CycleRecord{})
		if rec.Cycle != 0 {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return
	}

	fmt.Println(headerStyle.Render("Recent cycles"))
	for _, rec := range records {
		status := errStyle.Render("failed")
		switch {
		case rec.Success:
			status = okStyle.Render("success")
		case rec.NoOp:
			status = mutedStyle.Render("no-op")
		case rec.Skipped:
			status = mutedStyle.Render("skipped")
		}
		line := fmt.Sprintf("  #%04d %s %s", rec.Cycle, status, rec.Persona)
		if rec.CommitMessage != "" {
			line += mutedStyle.Render(" — " + rec.CommitMessage)
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func printPending(paths state.Paths) {
	session := state.ReadJSON(paths.PendingFile(), orchestrator.PendingSession{})
	if session.Cycle == 0 {
		return
	}
	fmt.Println(warnStyle.Render(fmt.Sprintf(
		"Cycle %d is paused after plan (persona %s). Run \"kaizen resume\" or \"kaizen cancel\".",
		session.Cycle, session.Persona)))
}
