package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"courtmap/storage"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the API key",
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authStatusCmd())
	cmd.AddCommand(authLogoutCmd())
	return cmd
}

func authLoginCmd() *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				key, err := readAPIKey()
				if err != nil {
					return err
				}
				apiKey = key
			}
			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				return fmt.Errorf("API key is required")
			}

			creds := storage.NewCredentials(apiKey, time.Now())
			if err := storage.SaveCredentials(creds); err != nil {
				return err
			}

			fmt.Printf("Saved API key %s.\n", creds.MaskedKey())
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (prompted when omitted)")
	return cmd
}

// readAPIKey prompts without echo on a terminal and reads one line otherwise.
func readAPIKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("API key: ")
		bytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil && value == "" {
		return "", err
	}
	return value, nil
}

func authStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which API key is in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv(envAPIKey) != "" {
				fmt.Printf("Using API key from $%s.\n", envAPIKey)
				return nil
			}

			creds, err := storage.LoadCredentials()
			if err != nil {
				return err
			}
			if creds == nil || creds.APIKey == "" {
				fmt.Println("No API key stored. Requests are sent anonymously.")
				return nil
			}

			fmt.Printf("API key %s saved %s.\n", creds.MaskedKey(), creds.SavedAt)
			fmt.Printf("API: %s\n", client.BaseURL)
			return nil
		},
	}

	return cmd
}

func authLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.ClearCredentials(); err != nil {
				return err
			}
			fmt.Println("API key removed.")
			return nil
		},
	}

	return cmd
}
