package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/missionctl/internal/api"
	"github.com/marcus/missionctl/internal/config"
	"github.com/marcus/missionctl/internal/logging"
	"github.com/marcus/missionctl/internal/reprioritizer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the board API over HTTP",
	Long: `Start the HTTP API that the dashboard and the agent process talk to.

If --config points at a file, calendar feature flags are reloaded when the
file changes, without restarting the server.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// flagHolder hands out the current calendar flags and accepts config
// reloads from the watcher goroutine.
type flagHolder struct {
	mu    sync.RWMutex
	flags reprioritizer.Flags
}

func (h *flagHolder) get() reprioritizer.Flags {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.flags
}

func (h *flagHolder) set(f reprioritizer.Flags) {
	h.mu.Lock()
	h.flags = f
	h.mu.Unlock()
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	log := logging.Component("serve")

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

	server := api.NewServer(a.cfg.Server, a.engine, a.reprio, a.store, holder.get)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("received signal %v, shutting down", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	fmt.Printf("missionctl API listening on %s:%d\n", a.cfg.Server.Host, a.cfg.Server.Port)
	return server.Start()
}
