package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "docai",
		Short:         "Run document AI operations through the optimizer from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "configs", "path to configuration directory")

	dir := func() string { return configDir }
	root.AddCommand(
		newAnalyzeCmd(dir),
		newTranslateCmd(dir),
		newDetectCmd(dir),
		newEmbedCmd(dir),
		newAskCmd(dir),
		newStatsCmd(dir),
	)
	return root
}
