package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mohammad-safakhou/scout/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "scout",
		Short:         "Iterative web research agent",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")

	load := func() (*config.Config, error) { return config.Load(cfgPath) }
	root.AddCommand(askCMD(load), serveCMD(load), migrateCMD(load), tokenCMD(load))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
