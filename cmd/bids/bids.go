// Package bids implements the bid listing command.
package bids

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/bidwatch/cmd/common"
	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/store"
)

// Command returns the bids command.
func Command() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "bids",
		Short: "List stored bid records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBids(cmd, status)
		},
	}
	cmd.Flags().StringVar(&status, "status", store.StatusAll,
		"filter by status (new, notified, archived, all)")
	return cmd
}

func runBids(cmd *cobra.Command, status string) error {
	if status != store.StatusAll && !domain.ValidStatus(status) {
		return fmt.Errorf("unknown status filter: %s", status)
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	deps, err := common.Setup(cfgPath)
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := cmd.Context()
	bids, err := deps.Store.GetAllBids(ctx, status)
	if err != nil {
		return fmt.Errorf("list bids: %w", err)
	}
	stats, err := deps.Store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Project", "Budget", "Purchaser", "Status", "Extracted"})
	for _, bid := range bids {
		t.AppendRow(table.Row{
			bid.ID, bid.ProjectName, bid.Budget,
			bid.Purchaser, bid.Status, bid.ExtractedTime,
		})
	}
	t.Render()

	fmt.Fprintf(cmd.OutOrStdout(),
		"\n%d articles, %d bids (%d new, %d notified, %d archived)\n",
		stats.TotalArticles, stats.TotalBids,
		stats.NewBids, stats.NotifiedBids, stats.ArchivedBids)
	return nil
}
