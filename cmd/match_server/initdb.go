package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-matcher/internal/config"
	"github.com/jonathan/resume-matcher/internal/db"
)

var initdbConfigFile string

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database schema",
	Long:  `Connect to the configured Postgres database and create the tables and indexes the server needs. Safe to run repeatedly.`,
	RunE:  runInitDB,
}

func init() {
	initdbCmd.Flags().StringVar(&initdbConfigFile, "config", "", "Path to a config file (optional)")
	rootCmd.AddCommand(initdbCmd)
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(initdbConfigFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	cmd.Println("Database schema initialized")
	return nil
}
