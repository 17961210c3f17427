// Package crawl implements the one-shot crawl command.
package crawl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/bidwatch/cmd/common"
	"github.com/jonesrussell/bidwatch/internal/domain"
)

// Command returns the crawl command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl pass and exit",
		Long: `Fetches the configured listing page, scrapes unseen articles,
extracts bid records, persists them, and sends notifications for
newly discovered bids.`,
		RunE: runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, _ []string) error {
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

	if err := orchestrator.Run(cmd.Context()); err != nil {
		return fmt.Errorf("crawl run: %w", err)
	}

	run := orchestrator.Status()
	if run.Stage == domain.StageFailed {
		return fmt.Errorf("crawl run failed: %s", run.LastError)
	}

	fmt.Fprintln(cmd.OutOrStdout(), run.Message)
	return nil
}
