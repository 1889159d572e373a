package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "phonebook",
	Short: "Phonebook contacts service",
	Long: `Phonebook serves a REST and gRPC API for managing contacts
(username, email, mobile and home phone) backed by memory, PostgreSQL or SQLite.`,
	Version:      "1.0.0",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("PHONEBOOK_CONFIG"), "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
}
