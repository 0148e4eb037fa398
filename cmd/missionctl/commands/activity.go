package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent board activity",
	Long:  `List recent activity entries: assignments, completions, and priority changes.`,
	RunE:  runActivity,
}

func init() {
	activityCmd.Flags().IntP("last", "n", 20, "Show last N entries")
	activityCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(activityCmd)
}

func runActivity(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	last, _ := cmd.Flags().GetInt("last")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.store.ListActivity(ctx, last)
	if err != nil {
		return fmt.Errorf("listing activity: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No activity recorded.")
		return nil
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		fmt.Printf("[%s] %s %s %s/%s\n",
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Actor, e.Action, e.EntityType, shortID(e.EntityID))
	}
	return nil
}
