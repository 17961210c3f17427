// Package httpd runs the HTTP API together with the crawl scheduler.
package httpd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/bidwatch/cmd/common"
	"github.com/jonesrussell/bidwatch/internal/api"
	"github.com/jonesrussell/bidwatch/internal/scheduler"
)

const errChannelBufferSize = 1

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the HTTP API and the crawl scheduler",
		Long: `Serves the bid API and, when scheduling is enabled, triggers
crawl runs on the configured interval or cron expression. Shuts down
gracefully on SIGINT or SIGTERM.`,
		RunE: runHTTPD,
	}
}

func runHTTPD(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	deps, err := common.Setup(cfgPath)
	if err != nil {
		return err
	}
	defer deps.Close()

	orchestrator, err := deps.BuildOrchestrator()
	if err != nil {
		return err
	}

	handler := api.NewHandler(orchestrator, deps.Store, deps.Logger)
	server := api.NewServer(deps.Config.Server.Address, handler, deps.Logger)

	var sched *scheduler.Scheduler
	if deps.Config.Schedule.Enabled {
		sched, err = scheduler.New(deps.Config.Schedule, orchestrator, deps.Logger)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, errChannelBufferSize)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		deps.Logger.Info("shutdown signal received", "signal", sig.String())
	case <-cmd.Context().Done():
		deps.Logger.Info("context cancelled, shutting down")
	}

	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}
	return <-errCh
}
