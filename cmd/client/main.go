// Package main is a command line client for the contacts converter. It converts files locally
// or sends them to a running service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command of the client.
var rootCmd = &cobra.Command{
	Use:   "contacts-client",
	Short: "Convert contact files between text, VCF and spreadsheets",
	Long: `contacts-client converts contact lists between plain text, VCF and spreadsheet
files. The convert command works offline, the upload and bench commands talk to a
running contacts converter service.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "base URL of the converter service")
	rootCmd.PersistentFlags().Int64("user", 0, "user id sent in the X-User-Id header")
	rootCmd.AddCommand(convertCmd, uploadCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
