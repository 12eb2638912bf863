// Package main provides the entry point for the resume matching API
// server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "match_server",
	Short: "Resume matching HTTP API server",
	Long:  "match_server scores resumes against job descriptions through a batch comparison agent and exposes the results, workflows and audit trail via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
