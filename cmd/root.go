// Package cmd implements the bidwatch command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/bidwatch/cmd/bids"
	"github.com/jonesrussell/bidwatch/cmd/crawl"
	"github.com/jonesrussell/bidwatch/cmd/httpd"
)

const version = "1.0.0"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "bidwatch",
		Short: "A tender notice crawler and bid extractor",
		Long: `Bidwatch crawls procurement notice listings, extracts structured
bid records from article text, stores them durably, and notifies on
newly discovered tenders.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("bidwatch version %s\n", version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(bids.Command())
}
