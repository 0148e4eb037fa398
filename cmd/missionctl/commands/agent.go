package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage agent settings",
	Long:  `Update the agent's pickup settings. Live status is managed by the engine; use 'missionctl status' to inspect it.`,
}

var agentSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update agent settings",
	Long: `Update one or more agent settings. Only the flags you pass are written;
everything else keeps its current value.`,
	RunE: runAgentSet,
}

func init() {
	agentSetCmd.Flags().String("model", "", "Model the agent runs")
	agentSetCmd.Flags().Bool("auto-pickup", true, "Enable automatic task pickup")
	agentSetCmd.Flags().Int("max-concurrent", 1, "Maximum concurrent in-progress tasks")
	agentSetCmd.Flags().Int("urgency-hours", 24, "Due-date urgency window in hours")
	agentSetCmd.Flags().Int("nightly-start", 22, "Nightly window start hour (0-23)")
	agentSetCmd.Flags().Int("repick-window", 30, "Repick cadence in minutes")

	agentCmd.AddCommand(agentSetCmd)
	rootCmd.AddCommand(agentCmd)
}

func runAgentSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.store.GetAgentState(ctx, a.cfg.Agent.ID)
	if err != nil {
		return fmt.Errorf("loading agent state: %w", err)
	}

	changed := false
	if cmd.Flags().Changed("model") {
		state.CurrentModel, _ = cmd.Flags().GetString("model")
		changed = true
	}
	if cmd.Flags().Changed("auto-pickup") {
		state.AutoPickupEnabled, _ = cmd.Flags().GetBool("auto-pickup")
		changed = true
	}
	if cmd.Flags().Changed("max-concurrent") {
		n, _ := cmd.Flags().GetInt("max-concurrent")
		if n < 1 {
			return fmt.Errorf("max-concurrent must be at least 1")
		}
		state.MaxConcurrentTasks = n
		changed = true
	}
	if cmd.Flags().Changed("urgency-hours") {
		n, _ := cmd.Flags().GetInt("urgency-hours")
		if n < 0 {
			return fmt.Errorf("urgency-hours must not be negative")
		}
		state.DueDateUrgencyHours = n
		changed = true
	}
	if cmd.Flags().Changed("nightly-start") {
		n, _ := cmd.Flags().GetInt("nightly-start")
		if n < 0 || n > 23 {
			return fmt.Errorf("nightly-start must be between 0 and 23")
		}
		state.NightlyStartHour = n
		changed = true
	}
	if cmd.Flags().Changed("repick-window") {
		n, _ := cmd.Flags().GetInt("repick-window")
		if n < 1 {
			return fmt.Errorf("repick-window must be at least 1")
		}
		state.RepickWindowMinutes = n
		changed = true
	}

	if !changed {
		fmt.Println("nothing to update (pass at least one flag)")
		return nil
	}

	state.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveAgentState(ctx, state); err != nil {
		return fmt.Errorf("saving agent state: %w", err)
	}

	fmt.Printf("updated agent %s\n", state.AgentID)
	return nil
}
