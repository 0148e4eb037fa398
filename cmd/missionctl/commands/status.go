package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/marcus/missionctl/internal/tasks"
	"github.com/marcus/missionctl/internal/threshold"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent and board status",
	Long: `Display the agent's current status, its pickup settings, a due-date
summary of the board, and which task would be picked up next.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusStyles holds lipgloss styles for status output, matching the
// palette used across missionctl commands.
type statusStyles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
}

func newStatusStyles() statusStyles {
	return statusStyles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	agent, err := a.store.GetAgentState(ctx, a.cfg.Agent.ID)
	if err != nil {
		return fmt.Errorf("loading agent state: %w", err)
	}

	all, err := a.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	s := newStatusStyles()
	now := time.Now()

	fmt.Println(s.Title.Render("Agent"))
	fmt.Printf("  %s %s\n", s.Label.Render("ID:"), s.Value.Render(agent.AgentID))
	fmt.Printf("  %s %s\n", s.Label.Render("Status:"), renderAgentStatus(s, agent.Status))
	if agent.CurrentModel != "" {
		fmt.Printf("  %s %s\n", s.Label.Render("Model:"), s.Value.Render(agent.CurrentModel))
	}
	fmt.Printf("  %s %s\n", s.Label.Render("Auto-pickup:"), renderBool(s, agent.AutoPickupEnabled))
	fmt.Printf("  %s %s\n", s.Label.Render("Max concurrent:"), s.Value.Render(fmt.Sprintf("%d", agent.MaxConcurrentTasks)))
	fmt.Printf("  %s %s\n", s.Label.Render("Urgency window:"), s.Value.Render(agent.UrgencyWindow().String()))
	fmt.Println()

	fmt.Println(s.Title.Render("Board"))
	printBoardSummary(s, all, now)
	fmt.Println()

	fmt.Println(s.Title.Render("Next pickup"))
	res := tasks.NewSelector(agent.AgentID).Pickup(agent, all, now)
	if res.Task != nil {
		t := res.Task
		fmt.Printf("  %s %s\n", s.Label.Render("Task:"), s.Value.Render(t.Title))
		fmt.Printf("  %s %s\n", s.Label.Render("ID:"), s.Muted.Render(t.ID))
		if t.Priority != "" {
			fmt.Printf("  %s %s\n", s.Label.Render("Priority:"), s.Value.Render(string(t.Priority)))
		}
		if t.DueDate != nil {
			fmt.Printf("  %s %s\n", s.Label.Render("Due:"), renderDue(s, *t.DueDate, now))
		}
	} else {
		fmt.Printf("  %s\n", s.Muted.Render(pickupReasonText(res)))
	}

	return nil
}

func renderAgentStatus(s statusStyles, status tasks.AgentStatus) string {
	switch status {
	case tasks.StatusActive:
		return s.Success.Render("active")
	case tasks.StatusThinking:
		return s.Warn.Render("thinking")
	default:
		return s.Muted.Render("idle")
	}
}

func renderBool(s statusStyles, b bool) string {
	if b {
		return s.Success.Render("enabled")
	}
	return s.Muted.Render("disabled")
}

func renderDue(s statusStyles, due, now time.Time) string {
	text := due.Format("2006-01-02 15:04")
	switch threshold.Classify(&due, now) {
	case threshold.StateOverdue:
		return s.Error.Render(text + " (overdue)")
	case threshold.StateCritical:
		return s.Error.Render(text)
	case threshold.StateWarning:
		return s.Warn.Render(text)
	default:
		return s.Value.Render(text)
	}
}

func printBoardSummary(s statusStyles, all []tasks.Task, now time.Time) {
	byColumn := map[tasks.Column]int{}
	var overdue, critical, warning int
	for _, t := range all {
		byColumn[t.Column]++
		if t.Column == tasks.ColumnDone {
			continue
		}
		switch threshold.Classify(t.DueDate, now) {
		case threshold.StateOverdue:
			overdue++
		case threshold.StateCritical:
			critical++
		case threshold.StateWarning:
			warning++
		}
	}

	order := []tasks.Column{
		tasks.ColumnBacklog, tasks.ColumnTodo, tasks.ColumnInProgress,
		tasks.ColumnReview, tasks.ColumnDone,
	}
	for _, c := range order {
		fmt.Printf("  %s %d\n", s.Label.Render(string(c)+":"), byColumn[c])
	}

	if overdue > 0 {
		fmt.Printf("  %s\n", s.Error.Render(fmt.Sprintf("%d task(s) overdue", overdue)))
	}
	if critical > 0 {
		fmt.Printf("  %s\n", s.Error.Render(fmt.Sprintf("%d task(s) due within 24h", critical)))
	}
	if warning > 0 {
		fmt.Printf("  %s\n", s.Warn.Render(fmt.Sprintf("%d task(s) due within 3 days", warning)))
	}
}

func pickupReasonText(res tasks.PickupResult) string {
	switch res.Reason {
	case tasks.ReasonAutoPickupDisabled:
		return "auto-pickup is disabled"
	case tasks.ReasonMaxConcurrentReached:
		return fmt.Sprintf("agent at capacity (%d in progress)", res.InProgress)
	case tasks.ReasonNoEligibleTasks:
		return "no eligible tasks"
	default:
		return "nothing to pick up"
	}
}
