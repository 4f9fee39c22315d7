package main

import (
	"fmt"
	"github.com/joho/godotenv"
	"github.com/myrjola/tutorai/cmd/cli/catalog"
	"github.com/myrjola/tutorai/cmd/cli/keys"
	"github.com/spf13/cobra"
	"os"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tutorai-cli",
		Long:         `Command line utilities for operating the TutorAI server`,
		SilenceUsage: true,
	}
	rootCmd.AddGroup(keys.Group)
	rootCmd.AddCommand(keys.NewHashKey())
	rootCmd.AddGroup(catalog.Group)
	rootCmd.AddCommand(catalog.NewQuestions())
	return rootCmd
}

func main() {
	// A missing .env file is fine, the variables may come from the real environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
