package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pfolders/internal/provision"
	"pfolders/internal/vault"
)

func newPlanCmd(client *vault.Client) *cobra.Command {
	var (
		flags   settingsFlags
		output  string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the folders a provision run would create",
		Long:  "Resolves identities and membership, enumerates existing child folders, and prints the to-create set without writing anything.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireURL(client); err != nil {
				return err
			}
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			client.SetRateLimit(flags.rps)

			verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
			engine := provision.New(client, settings, newLogger(verbose))

			plan, err := engine.Plan(cmd.Context())
			if err != nil {
				return err
			}

			switch output {
			case "json":
				if err := provision.FormatJSON(os.Stdout, plan); err != nil {
					return fmt.Errorf("format plan: %w", err)
				}
			case "text":
				provision.FormatText(os.Stdout, plan, noColor)
			default:
				return fmt.Errorf("unsupported output format %q: use 'text' or 'json'", output)
			}

			// Exit code 2 when changes are pending, for CI gates.
			if plan.HasChanges() {
				os.Exit(2)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
