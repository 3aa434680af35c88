package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// auditctl is a small operator CLI for the audit engine API.

var (
	apiAddr string
	limit   int
)

func main() {
	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Control and inspect the identity audit engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiAddr, "addr", "http://localhost:8083", "Audit engine base URL")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show engine component health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/v1/health")
		},
	}

	quickCmd := &cobra.Command{
		Use:   "quick",
		Short: "Run a small synchronous audit and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/api/v1/audit/quick", map[string]int{"limit": limit})
		},
	}
	quickCmd.Flags().IntVar(&limit, "limit", 0, "Records per batch (0 uses the server default)")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a background audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/api/v1/audit/start", map[string]int{"limit": limit})
		},
	}
	startCmd.Flags().IntVar(&limit, "limit", 0, "Records per batch (0 uses the server default)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current audit run state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/v1/audit/status")
		},
	}

	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Show the latest audit result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/v1/audit/results")
		},
	}

	identityCmd := &cobra.Command{
		Use:   "identity <id>",
		Short: "Show the compliance drill-down for one identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/v1/identity/" + args[0])
		},
	}

	root.AddCommand(healthCmd, quickCmd, startCmd, statusCmd, resultsCmd, identityCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func get(path string) error {
	resp, err := httpClient.Get(apiAddr + path)
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func post(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(apiAddr+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Non-JSON body, print as-is.
		fmt.Println(string(raw))
	} else {
		fmt.Println(pretty.String())
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
