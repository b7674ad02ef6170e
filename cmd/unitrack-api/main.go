package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "unitrack-api",
	Short: "Unitrack API - Multi-tenant access-controlled tracking API",
	Long:  `A production-ready Go API with multi-issuer JWT auth, grant-based access control, rate limiting, and observability.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
