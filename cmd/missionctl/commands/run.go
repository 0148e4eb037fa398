package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/missionctl/internal/config"
	"github.com/marcus/missionctl/internal/logging"
	"github.com/marcus/missionctl/internal/loop"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pickup and reprioritization loops",
	Long: `Run missionctl in the foreground: periodically evaluate which task the
agent should pick up next and assign it, and sweep the board for tasks
whose due dates warrant a priority bump.

The repick cadence comes from agent.repick_window_minutes, the sweep
cadence from calendar.sweep_interval. Both loops stop on SIGINT/SIGTERM.`,
	RunE: runRun,
}

var runOnceFlag bool

func init() {
	runCmd.Flags().BoolVar(&runOnceFlag, "once", false, "Run one repick and one sweep, then exit")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	log := logging.Component("run")

	holder := &flagHolder{}
	holder.set(a.flags())

	if configFlag != "" {
		err := config.Watch(ctx, configFlag, func(cfg *config.Config) {
			holder.set(flagsFrom(cfg))
		})
		if err != nil {
			log.WarnCtx("config watch unavailable", map[string]any{"error": err.Error()})
		}
	}

	sweepEvery, err := a.cfg.Calendar.SweepEvery()
	if err != nil {
		return err
	}

	agent, err := a.store.GetAgentState(ctx, a.cfg.Agent.ID)
	if err != nil {
		return fmt.Errorf("loading agent state: %w", err)
	}
	repickEvery := time.Duration(agent.RepickWindowMinutes) * time.Minute

	l := loop.New(a.engine, a.reprio,
		loop.WithFlagSource(holder.get),
		loop.WithRepickEvery(repickEvery),
		loop.WithSweepEvery(sweepEvery),
	)

	if runOnceFlag {
		l.Repick(ctx)
		l.Sweep(ctx)
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := l.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("missionctl loop running (repick every %s, sweep every %s)\n", repickEvery, sweepEvery)
	<-ctx.Done()
	return nil
}
