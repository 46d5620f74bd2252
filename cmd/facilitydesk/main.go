package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/facilitydesk/facilitydesk/pkg/logging"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "facilitydesk",
	Short: "Technician CLI for the facilitydesk assistant",
	Long: `facilitydesk is the technician-facing CLI of the facility assistant.

It chats with the assistant service about individual assets, scores asset
health offline, and triggers maintenance rollover runs.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; flags and the environment win.
		_ = godotenv.Load()
		logger = logging.New(logging.Config{
			Level:   logging.LevelInfo,
			Service: "cli",
			LogDir:  os.Getenv("FACILITYDESK_LOG_DIR"),
		})
		slog.SetDefault(logger.Slog())
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
