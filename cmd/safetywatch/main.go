package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"safetywatch/internal/di"
	"safetywatch/internal/structures"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var flags structures.CliFlags

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: .env not loaded: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:   "safetywatch",
		Short: "Safety violation ingestion and monitoring engine",
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "config.yml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.DebugMode, "debug", "d", false, "log to console at debug level")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(datesCmd())
	rootCmd.AddCommand(shareCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the violation monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := di.InitApp(&flags)
			return err
		},
	}
}

func toolkit() (*di.Toolkit, error) {
	tk, err := di.InitToolkit(&flags)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return tk, nil
}
