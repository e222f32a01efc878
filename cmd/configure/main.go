package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wisdomhub/wisdom-hub/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "wisdom-hub-configure",
		Short: "Configuration tool for Wisdom Hub",
		Long:  "CLI tool for probing Wisdom Hub's external services and seeding demo content",
	}

	rootCmd.AddCommand(commands.NewTestCmd())
	rootCmd.AddCommand(commands.NewSeedCmd())
	rootCmd.AddCommand(commands.NewListCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
