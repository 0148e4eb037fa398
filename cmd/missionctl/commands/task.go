package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marcus/missionctl/internal/tasks"
	"github.com/marcus/missionctl/internal/threshold"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks on the board",
	Long:  `Add, list, inspect, assign, and complete tasks on the agent's board.`,
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a new task to the board.

Tasks start in the backlog unless --column says otherwise. Use --due with
YYYY-MM-DD or a full RFC3339 timestamp.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List tasks with their column, priority, and due-date state.

Use --column to filter, --json for structured output.`,
	RunE: runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id>",
	Short: "Assign a task to the agent",
	Long:  `Move a task to in-progress and assign it to the configured agent.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskAssign,
}

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskComplete,
}

func init() {
	taskAddCmd.Flags().StringP("description", "d", "", "Task description")
	taskAddCmd.Flags().StringP("priority", "p", "", "Priority (low, medium, high, urgent)")
	taskAddCmd.Flags().String("column", string(tasks.ColumnBacklog), "Board column")
	taskAddCmd.Flags().String("due", "", "Due date (YYYY-MM-DD or RFC3339)")
	taskAddCmd.Flags().StringSlice("label", nil, "Label (repeatable)")

	taskListCmd.Flags().String("column", "", "Filter by column")
	taskListCmd.Flags().Bool("json", false, "Output as JSON")

	taskShowCmd.Flags().Bool("json", false, "Output as JSON")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskAssignCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	description, _ := cmd.Flags().GetString("description")
	priority, _ := cmd.Flags().GetString("priority")
	column, _ := cmd.Flags().GetString("column")
	due, _ := cmd.Flags().GetString("due")
	labels, _ := cmd.Flags().GetStringSlice("label")

	if !tasks.ValidColumn(tasks.Column(column)) {
		return fmt.Errorf("unknown column: %s (valid: backlog, todo, in-progress, review, done)", column)
	}
	switch tasks.Priority(priority) {
	case "", tasks.PriorityLow, tasks.PriorityMedium, tasks.PriorityHigh, tasks.PriorityUrgent:
	default:
		return fmt.Errorf("unknown priority: %s (valid: low, medium, high, urgent)", priority)
	}

	var dueDate *time.Time
	if due != "" {
		parsed, err := parseDueDate(due)
		if err != nil {
			return err
		}
		dueDate = &parsed
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now().UTC()
	t := tasks.Task{
		ID:          uuid.NewString(),
		Title:       args[0],
		Description: description,
		Column:      tasks.Column(column),
		Priority:    tasks.Priority(priority),
		DueDate:     dueDate,
		Labels:      labels,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := a.store.CreateTask(ctx, t); err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	fmt.Printf("created %s\n", t.ID)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	columnFilter, _ := cmd.Flags().GetString("column")
	asJSON, _ := cmd.Flags().GetBool("json")

	if columnFilter != "" && !tasks.ValidColumn(tasks.Column(columnFilter)) {
		return fmt.Errorf("unknown column: %s", columnFilter)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	all, err := a.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	if columnFilter != "" {
		filtered := all[:0]
		for _, t := range all {
			if t.Column == tasks.Column(columnFilter) {
				filtered = append(filtered, t)
			}
		}
		all = filtered
	}

	if len(all) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tCOLUMN\tPRIORITY\tDUE\tSTATE")
	for _, t := range all {
		priority := string(t.Priority)
		if priority == "" {
			priority = "-"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		state := string(threshold.Classify(t.DueDate, now))
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), t.Title, t.Column, priority, due, state)
	}
	_ = w.Flush()
	fmt.Printf("\n%d task(s)\n", len(all))
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.store.GetTask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading task: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}

	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Column:      %s\n", t.Column)
	if t.Priority != "" {
		fmt.Printf("Priority:    %s\n", t.Priority)
	}
	if t.Assignee != "" {
		fmt.Printf("Assignee:    %s\n", t.Assignee)
	}
	if t.DueDate != nil {
		fmt.Printf("Due:         %s (%s)\n",
			t.DueDate.Format("2006-01-02 15:04"),
			threshold.Classify(t.DueDate, time.Now()))
	}
	if len(t.Labels) > 0 {
		fmt.Printf("Labels:      %v\n", t.Labels)
	}
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}
	fmt.Printf("Created:     %s\n", t.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:     %s\n", t.UpdatedAt.Format(time.RFC3339))
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.engine.Assign(ctx, args[0])
	if err != nil {
		return fmt.Errorf("assigning task: %w", err)
	}

	fmt.Printf("assigned %q to %s\n", t.Title, t.Assignee)
	return nil
}

func runTaskComplete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.engine.Complete(ctx, args[0])
	if err != nil {
		return fmt.Errorf("completing task: %w", err)
	}

	fmt.Printf("completed %q\n", t.Title)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
