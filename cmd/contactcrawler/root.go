package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contactcrawler",
		Short: "Concurrent contact extraction crawler for business websites",
		Long: `contactcrawler visits business websites and harvests contact
signals: email addresses and Facebook profile URLs. It crawls the seed
page plus a bounded set of same-origin subpages, filters out tracking
and placeholder artifacts, and classifies each crawl for the downstream
pipeline.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCrawlCmd())

	return cmd
}
