package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(finishCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", nil)
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List the players ranked by elo",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/players", nil)
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches [status]",
	Short: "List matches, optionally filtered by status (default APPROVED)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/matches"
		if len(args) > 0 {
			endpoint += "?status=" + args[0]
		}
		return performRequest(http.MethodGet, endpoint, nil)
	},
}

var finishCmd = &cobra.Command{
	Use:   "finish <match-id>",
	Short: "Submit or confirm the final score of a live match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/finish", nil)
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <match-id>",
	Short: "Confirm a pending match result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/confirm", nil)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <match-id>",
	Short: "Cancel a live match (the canceller forfeits elo)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/matches/"+args[0]+"/cancel", nil)
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim <challenge-id>",
	Short: "Claim an open challenge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/challenges/"+args[0]+"/claim", nil)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run the open-challenge expiry sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/cron/cleanup", nil)
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Run the match reminder sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodPost, "/cron/reminders", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", nil)
	},
}

func performRequest(method, endpoint string, body []byte) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
	}
	if actorEmail != "" {
		req.Header.Set("X-Actor-Email", actorEmail)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	return nil
}
