package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicing-system/config"
	"invoicing-system/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicing",
	Short: "Invoicing API - quotations, invoices and payments",
	Long: `Invoicing API serves the HTTP gateway for managing clients, quotations,
invoices and payments, and renders documents as PDF.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cfg := config.LoadConfig()
	if err := logger.Setup(logger.LogConfig{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		TimeFormat: logger.DefaultConfig().TimeFormat,
		Output:     cfg.Log.Output,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(newServeCmd(cfg), newMigrateCmd(cfg))

	log := logger.WithComponent("cmd")
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
