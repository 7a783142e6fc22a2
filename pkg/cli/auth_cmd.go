package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"pfolders/internal/vault"
)

func newAuthCmd(profile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}

	cmd.AddCommand(newAuthLoginCmd(profile))
	cmd.AddCommand(newAuthInspectCmd(profile))
	return cmd
}

func newAuthLoginCmd(profile *string) *cobra.Command {
	var (
		mode     string
		url      string
		username string
		password string
		token    string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Acquire a vault token and save it to the active profile",
		Long:  "In password mode, exchanges a username and password for a bearer token. In token mode, saves a pre-acquired token as-is.",
		Example: `  # Exchange credentials for a token (password prompted when omitted)
  pfolders auth login --url https://vault.example.com --username svc-provision

  # Save a pre-acquired token
  pfolders auth login --mode token --url https://vault.example.com --token eyJhb...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authMode, err := vault.ParseAuthMode(mode)
			if err != nil {
				return err
			}
			if url == "" {
				url = os.Getenv("PFOLDERS_URL")
			}
			if url == "" {
				return fmt.Errorf("vault URL is required: set --url or PFOLDERS_URL")
			}

			switch authMode {
			case vault.AuthModePassword:
				if username == "" {
					return fmt.Errorf("--username is required in password mode")
				}
				if password == "" {
					password = os.Getenv("PFOLDERS_PASSWORD")
				}
				if password == "" {
					password, err = promptPassword(fmt.Sprintf("Password for %s: ", username))
					if err != nil {
						return err
					}
				}
				token, err = vault.ExchangeToken(cmd.Context(), url, username, password)
				if err != nil {
					return err
				}
			case vault.AuthModeToken:
				if token == "" {
					return fmt.Errorf("--token is required in token mode")
				}
			}

			if err := saveProfileToken(*profile, url, token); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "Token saved.")
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(vault.AuthModePassword), "Auth mode (password or token)")
	cmd.Flags().StringVar(&url, "url", "", "Base vault URL")
	cmd.Flags().StringVar(&username, "username", "", "Vault username (password mode)")
	cmd.Flags().StringVar(&password, "password", "", "Vault password (password mode; prompted when omitted)")
	cmd.Flags().StringVar(&token, "token", "", "Pre-acquired bearer token (token mode)")

	return cmd
}

// saveProfileToken stores the url and token under the active profile.
func saveProfileToken(profileName, url, token string) error {
	cfg, err := LoadUserConfig()
	if err != nil {
		cfg = &UserConfig{Profiles: map[string]Profile{}}
	}
	if profileName == "" {
		profileName = cfg.CurrentProfile
	}
	if profileName == "" {
		profileName = "default"
	}
	cfg.CurrentProfile = profileName
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	p := cfg.Profiles[profileName]
	p.URL = url
	p.Token = token
	cfg.Profiles[profileName] = p
	if err := SaveUserConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func newAuthInspectCmd(profile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Decode the stored token and show subject and expiry",
		Long:  "Decodes the active profile's bearer token without verifying its signature. Useful for checking whether a saved token has expired.",
		RunE: func(_ *cobra.Command, _ []string) error {
			token := os.Getenv("PFOLDERS_TOKEN")
			if token == "" {
				cfg, err := LoadUserConfig()
				if err != nil {
					return fmt.Errorf("no token: %w", err)
				}
				token = cfg.ActiveProfile(*profile).Token
			}
			if token == "" {
				return fmt.Errorf("no token in PFOLDERS_TOKEN or the active profile; run 'pfolders auth login'")
			}

			claims := jwt.MapClaims{}
			if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
				return fmt.Errorf("decode token: %w", err)
			}

			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				_, _ = fmt.Fprintf(os.Stdout, "subject: %s\n", sub)
			}
			exp, err := claims.GetExpirationTime()
			if err != nil || exp == nil {
				_, _ = fmt.Fprintln(os.Stdout, "expiry:  none")
				return nil
			}
			remaining := time.Until(exp.Time).Round(time.Second)
			if remaining <= 0 {
				_, _ = fmt.Fprintf(os.Stdout, "expiry:  %s (EXPIRED)\n", exp.Time.Format(time.RFC3339))
				return nil
			}
			_, _ = fmt.Fprintf(os.Stdout, "expiry:  %s (in %s)\n", exp.Time.Format(time.RFC3339), remaining)
			return nil
		},
	}
	return cmd
}
