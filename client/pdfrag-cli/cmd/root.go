package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiKey    string
	timeout   time.Duration
	asJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag-cli",
	Short: "A CLI client for the pdfrag service",
	Long: `A command-line interface for uploading PDFs to the pdfrag service,
managing the indexed documents and asking questions about them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("PDFRAG_SERVER", "http://localhost:8080"), "pdfrag server base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("PDFRAG_API_KEY"), "API key sent as X-API-Key (env PDFRAG_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON responses")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() *Client {
	return NewClient(serverURL, apiKey, timeout)
}
