package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/facilitydesk/facilitydesk/pkg/validation"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	chatServer   string // Assistant service base URL
	chatAssetID  string // Asset to chat about
	chatTenant   string // Tenant slug for the PIN cache key
	chatCacheDir string // Override for the PIN cache file
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat about one asset",
	Long: `Starts an interactive chat session with the assistant service.

The session is gated by the PIN of the building the asset belongs to.
An accepted PIN is cached per (tenant, asset) under the user config dir,
so restarting the CLI does not ask again.

Examples:
  facilitydesk chat --asset heater-1 --tenant stadtpark
  facilitydesk chat --asset heater-1 --server http://staging:12310

In the session:
  /image <path>   attach an image to the next message
  exit            leave the chat`,
	RunE: runChatCommand,
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "http://localhost:12310",
		"Base URL of the assistant service")
	chatCmd.Flags().StringVar(&chatAssetID, "asset", "", "Asset id to chat about (required)")
	chatCmd.Flags().StringVar(&chatTenant, "tenant", "default", "Tenant slug used for the PIN cache")
	chatCmd.Flags().StringVar(&chatCacheDir, "pin-cache", "", "Path of the PIN cache file (defaults to the user config dir)")
	_ = chatCmd.MarkFlagRequired("asset")
	rootCmd.AddCommand(chatCmd)
}

// =============================================================================
// COMMAND EXECUTION
// =============================================================================

func runChatCommand(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateID(chatAssetID); err != nil {
		return fmt.Errorf("invalid --asset: %w", err)
	}
	tenant, err := validation.SanitizeTenantSlug(chatTenant)
	if err != nil {
		return fmt.Errorf("invalid --tenant: %w", err)
	}

	cache, err := newPINCache()
	if err != nil {
		return err
	}

	svc := NewHTTPChatService(chatServer)
	session := NewChatSession(svc, cache, tenant, chatAssetID)
	defer session.Close()

	ctx := cmd.Context()
	reader := bufio.NewReader(os.Stdin)

	if session.Restore() == StateUnauthenticated {
		if err := promptForPIN(ctx, session, reader); err != nil {
			return err
		}
	}

	fmt.Printf("Connected to %s. Type a question about asset %s, or 'exit' to leave.\n",
		chatServer, chatAssetID)

	var pendingImage []byte
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/image "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("Could not read %s: %v\n", path, err)
				continue
			}
			pendingImage = data
			fmt.Println("Image attached to the next message.")
			continue
		}

		answer, err := session.Send(ctx, line, pendingImage)
		pendingImage = nil
		switch {
		case errors.Is(err, ErrInvalidPIN):
			fmt.Println("The cached PIN is no longer valid.")
			if err := promptForPIN(ctx, session, reader); err != nil {
				return err
			}
		case err != nil:
			fmt.Printf("Error: %v\n", err)
		case answer != "":
			fmt.Println(answer)
		}
	}
}

// promptForPIN loops until a PIN is accepted or stdin ends.
func promptForPIN(ctx context.Context, session *ChatSession, reader *bufio.Reader) error {
	for {
		fmt.Print("Enter the building PIN: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("no PIN entered")
		}
		err = session.SubmitPIN(ctx, line)
		switch {
		case err == nil:
			fmt.Println("PIN accepted.")
			return nil
		case errors.Is(err, ErrInvalidPIN):
			fmt.Println("Invalid PIN, try again.")
		case errors.Is(err, ErrEmptyPIN):
			continue
		default:
			return err
		}
	}
}

func newPINCache() (PINCache, error) {
	if chatCacheDir != "" {
		return NewFilePINCacheAt(chatCacheDir), nil
	}
	return NewFilePINCache()
}
