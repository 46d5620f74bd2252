package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	maintServer string // Assistant service base URL
	maintSecret string // Shared cron secret
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Maintenance plan operations",
}

var maintenanceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a maintenance rollover run on the server",
	Long: `Invokes the server's maintenance rollover trigger.

The run walks all due maintenance plans, creates a ticket per plan, and
advances each plan's next due date by one period. The run is idempotent per
plan, so repeating it is harmless.

The shared secret comes from --secret or the CRON_SECRET environment
variable.`,
	RunE: runMaintenanceCommand,
}

func init() {
	maintenanceRunCmd.Flags().StringVar(&maintServer, "server", "http://localhost:12310",
		"Base URL of the assistant service")
	maintenanceRunCmd.Flags().StringVar(&maintSecret, "secret", "",
		"Shared cron secret (defaults to CRON_SECRET)")
	maintenanceCmd.AddCommand(maintenanceRunCmd)
	rootCmd.AddCommand(maintenanceCmd)
}

// =============================================================================
// COMMAND EXECUTION
// =============================================================================

func runMaintenanceCommand(cmd *cobra.Command, args []string) error {
	secret := maintSecret
	if secret == "" {
		secret = os.Getenv("CRON_SECRET")
	}
	if secret == "" {
		return fmt.Errorf("no cron secret given: set --secret or CRON_SECRET")
	}

	endpoint := strings.TrimRight(maintServer, "/") +
		"/cron/maintenance?key=" + url.QueryEscape(secret)

	client := &http.Client{Timeout: 90 * time.Second}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach the assistant service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("maintenance run failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var report struct {
		Created int      `json:"created"`
		Updated int      `json:"updated"`
		Skipped int      `json:"skipped"`
		Errors  []string `json:"errors"`
		Message string   `json:"message"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return fmt.Errorf("failed to parse the run report: %w", err)
	}

	fmt.Println(report.Message)
	fmt.Printf("created=%d updated=%d skipped=%d errors=%d\n",
		report.Created, report.Updated, report.Skipped, len(report.Errors))
	if len(report.Errors) > 0 {
		for _, msg := range report.Errors {
			fmt.Fprintln(os.Stderr, msg)
		}
		return fmt.Errorf("%d plan(s) failed to roll over", len(report.Errors))
	}
	return nil
}
