// Package cli implements the pfolders command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"pfolders/internal/vault"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code. Ctrl-C cancels
// the run's context so in-flight API calls stop cleanly.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var authErr *vault.AuthError
		if errors.As(err, &authErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", authErr)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		url     string
		token   string
		profile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:           "pfolders",
		Short:         "Personal vault-folder provisioning",
		Long:          "Provisions one folder per member of a vault group under a shared parent folder and converges each folder's permissions to the per-user access model.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&url, "url", "", "Base vault URL, e.g. https://vault.example.com")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token for the vault API")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Config profile to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	client := vault.NewClient(url, token)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		// Load config from profile if flags/env not set.
		cfg, err := LoadUserConfig()
		if err != nil {
			// Config file is optional.
			cfg = &UserConfig{
				CurrentProfile: "default",
				Profiles:       map[string]Profile{},
			}
		}
		p := cfg.ActiveProfile(profile)

		// Precedence: flag > env > profile.
		if !cmd.Flags().Changed("url") {
			if v := os.Getenv("PFOLDERS_URL"); v != "" {
				url = v
			} else if p.URL != "" {
				url = p.URL
			}
		}
		if !cmd.Flags().Changed("token") {
			if v := os.Getenv("PFOLDERS_TOKEN"); v != "" {
				token = v
			} else if p.Token != "" {
				token = p.Token
			}
		}

		// Update client with resolved values.
		client.BaseURL = strings.TrimSuffix(url, "/")
		client.Token = token
		return nil
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAuthCmd(&profile))

	rootCmd.AddCommand(newPlanCmd(client))
	rootCmd.AddCommand(newProvisionCmd(client))

	return rootCmd
}

// newLogger builds the JSON logger the engine receives.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// requireURL fails fast when no vault URL was resolved from flags, env or the
// active profile.
func requireURL(client *vault.Client) error {
	if client.BaseURL == "" {
		return fmt.Errorf("vault URL is required: set --url, PFOLDERS_URL, or a profile")
	}
	return nil
}
