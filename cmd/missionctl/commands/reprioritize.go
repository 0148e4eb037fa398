package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/missionctl/internal/threshold"
)

var reprioritizeCmd = &cobra.Command{
	Use:   "reprioritize",
	Short: "Run one reprioritization sweep",
	Long: `Scan the board and bump priorities on tasks whose due dates have
crossed the critical or overdue thresholds.

Use --dry-run to see recommendations, including advisory warning-tier
ones, without writing anything.`,
	RunE: runReprioritize,
}

var reprioritizeDryRun bool

func init() {
	reprioritizeCmd.Flags().BoolVar(&reprioritizeDryRun, "dry-run", false, "Show recommendations without applying")
	rootCmd.AddCommand(reprioritizeCmd)
}

func runReprioritize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if reprioritizeDryRun {
		return printRecommendations(ctx, a)
	}

	flags := a.flags()
	if !flags.Enabled() {
		fmt.Println("calendar reprioritization is disabled (see calendar.* in config)")
		return nil
	}

	results := a.reprio.Run(ctx, flags)
	if len(results) == 0 {
		fmt.Println("No tasks need reprioritization.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TASK\tFROM\tTO\tSTATE\tOUTCOME")
	for _, r := range results {
		outcome := "recommended"
		switch {
		case r.Error != "":
			outcome = "failed: " + r.Error
		case r.Success:
			outcome = "applied"
		}
		from := string(r.FromPriority)
		if from == "" {
			from = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(r.TaskID), from, r.ToPriority, r.State, outcome)
	}
	_ = w.Flush()
	return nil
}

// printRecommendations computes what a sweep would do without touching the
// board or consuming the per-session dedup set.
func printRecommendations(ctx context.Context, a *app) error {
	all, err := a.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	recs := threshold.Recommend(all, time.Now())
	if len(recs) == 0 {
		fmt.Println("No recommendations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TASK\tFROM\tTO\tSTATE\tREASON")
	for _, r := range recs {
		from := string(r.CurrentPriority)
		if from == "" {
			from = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			shortID(r.TaskID), from, r.RecommendedPriority, r.State, r.Reason)
	}
	_ = w.Flush()
	fmt.Printf("\n%d recommendation(s), nothing applied\n", len(recs))
	return nil
}
