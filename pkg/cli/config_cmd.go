package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration profiles",
	}

	cmd.AddCommand(newConfigViewCmd())
	cmd.AddCommand(newConfigUseProfileCmd())
	return cmd
}

func newConfigViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the config file with tokens redacted",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return fmt.Errorf("no config at %s: %w", ConfigPath(), err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "config file:     %s\n", ConfigPath())
			_, _ = fmt.Fprintf(os.Stdout, "current profile: %s\n\n", cfg.CurrentProfile)

			names := make([]string, 0, len(cfg.Profiles))
			for name := range cfg.Profiles {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				p := cfg.Profiles[name]
				_, _ = fmt.Fprintf(os.Stdout, "profile %q:\n", name)
				_, _ = fmt.Fprintf(os.Stdout, "  url:   %s\n", p.URL)
				_, _ = fmt.Fprintf(os.Stdout, "  token: %s\n", redactToken(p.Token))
			}
			return nil
		},
	}
}

func newConfigUseProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile NAME",
		Short: "Set the current profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := LoadUserConfig()
			if err != nil {
				return fmt.Errorf("no config at %s: %w", ConfigPath(), err)
			}
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found in %s", name, ConfigPath())
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			_, _ = fmt.Fprintf(os.Stdout, "Switched to profile %q.\n", name)
			return nil
		},
	}
}

// redactToken keeps a short prefix so profiles remain distinguishable.
func redactToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "...(redacted)"
}
