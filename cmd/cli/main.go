package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	host       string
	actorID    string
	actorEmail string
)

var rootCmd = &cobra.Command{
	Use:   "ladder-cli",
	Short: "A CLI to interact with the billiard-ladder server",
	Long: `A command-line interface for making requests to the various endpoints
of the billiard-ladder application.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "The host address of the server")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "The player id to act as (sent as X-Actor-ID)")
	rootCmd.PersistentFlags().StringVar(&actorEmail, "email", "", "The email to act as (sent as X-Actor-Email)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your command '%s'", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
