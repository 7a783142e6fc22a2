package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pfolders/internal/provision"
	"pfolders/internal/vault"
)

// settingsFlags carries the raw flag values shared by plan and provision.
// Enum validation happens here, at the boundary, not in the engine.
type settingsFlags struct {
	parentFolder    string
	group           string
	permission      string
	adminGroup      string
	adminPermission string
	subFolders      []string
	settle          time.Duration
	concurrency     int
	rps             float64
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.parentFolder, "parent-folder", "", "Name of the shared parent folder")
	cmd.Flags().StringVar(&f.group, "group", "", "Name of the vault group to mirror")
	cmd.Flags().StringVar(&f.permission, "permission", "", "Permission level for each user on their folder (Owner, Edit or View)")
	cmd.Flags().StringVar(&f.adminGroup, "admin-group", "", "Optional admin group granted restricted access to every folder")
	cmd.Flags().StringVar(&f.adminPermission, "admin-permission", "", `Admin role pair selector (only `+`"AddSecret\List"`+`)`)
	cmd.Flags().StringSliceVar(&f.subFolders, "subfolder", nil, "Subfolder to create inside each new user folder (repeatable)")
	cmd.Flags().DurationVar(&f.settle, "settle", provision.DefaultSettle, "Wait after parent-folder permission writes before dependent reads")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", provision.DefaultMemberConcurrency, "Parallel member-profile lookups")
	cmd.Flags().Float64Var(&f.rps, "rps", 0, "Cap on vault API requests per second (0 = uncapped)")
	_ = cmd.MarkFlagRequired("parent-folder")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("permission")
}

func (f *settingsFlags) settings() (provision.Settings, error) {
	level, err := provision.ParsePermissionLevel(f.permission)
	if err != nil {
		return provision.Settings{}, err
	}

	s := provision.Settings{
		ParentFolder:      f.parentFolder,
		Group:             f.group,
		Level:             level,
		AdminGroup:        f.adminGroup,
		SubFolders:        f.subFolders,
		Settle:            f.settle,
		MemberConcurrency: f.concurrency,
	}
	if f.adminPermission != "" {
		s.AdminPermission, err = provision.ParseAdminPermission(f.adminPermission)
		if err != nil {
			return provision.Settings{}, err
		}
	}
	if err := s.Validate(); err != nil {
		return provision.Settings{}, err
	}
	return s, nil
}

func newProvisionCmd(client *vault.Client) *cobra.Command {
	var (
		flags       settingsFlags
		autoApprove bool
		noColor     bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create and converge one folder per group member",
		Long:  "Resolves the group's membership, diffs it against the parent folder's children, creates the missing folders, and converges each new folder's permissions.",
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
			provision.FormatText(os.Stdout, plan, noColor)

			if !plan.HasChanges() {
				return nil
			}

			if !autoApprove {
				if !IsStdinTTY() {
					return fmt.Errorf("confirmation required but stdin is not a terminal; use --auto-approve")
				}
				_, _ = fmt.Fprint(os.Stdout, "\nApply these changes? [y/N] ")
				reader := bufio.NewReader(os.Stdin)
				answer, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read confirmation: %w", err)
				}
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					_, _ = fmt.Fprintln(os.Stdout, "Provisioning cancelled.")
					return nil
				}
			}

			result, err := engine.Apply(cmd.Context(), plan)
			if err != nil {
				return err
			}

			if result.ParentCreated {
				_, _ = fmt.Fprintf(os.Stdout, "  created parent folder %q (id %d)\n",
					settings.ParentFolder, result.ParentID)
			}
			var succeeded, failed int
			for _, u := range result.Users {
				if u.Err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "  user %q ... failed: %v\n", u.DisplayName, u.Err)
					failed++
				} else {
					_, _ = fmt.Fprintf(os.Stdout, "  user %q ... succeeded (folder id %d)\n", u.DisplayName, u.FolderID)
					succeeded++
				}
			}
			_, _ = fmt.Fprintf(os.Stdout, "\nProvisioning complete: %d succeeded, %d failed.\n", succeeded, failed)
			if failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive confirmation prompt")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}
