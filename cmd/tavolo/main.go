package main

import (
	"os"

	"github.com/spf13/cobra"

	"tavolo/cmd/tavolo/gateway"
	"tavolo/cmd/tavolo/runcmd"
	"tavolo/internal/logger"
)

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:   "tavolo",
		Short: "Tavolo streams restaurant recommendation runs over AG-UI style events",
	}

	rootCmd.AddCommand(gateway.Cmd)
	rootCmd.AddCommand(runcmd.Cmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
