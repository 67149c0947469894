// Package main provides the entry point for the Test Writer HTTP API server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "testwriter",
	Short:   "AI test case generator",
	Long:    "Test Writer turns requirement documents into structured, reviewed test cases through a staged agent pipeline, exposed as a REST API and a local CLI.",
	Version: "0.1.0",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
