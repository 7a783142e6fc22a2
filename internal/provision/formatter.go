package provision

import (
	"encoding/json"
	"fmt"
	"io"
)

// ANSI color codes.
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorDim   = "\033[2m"
)

// FormatText writes a human-readable plan to w. If noColor is true, ANSI
// codes are suppressed.
func FormatText(w io.Writer, plan *Plan, noColor bool) {
	c := func(code string) string {
		if noColor {
			return ""
		}
		return code
	}

	if !plan.HasChanges() {
		fmt.Fprintln(w, "No changes. All member folders are provisioned.")
		return
	}

	fmt.Fprintf(w, "%s# group %q under parent folder %q%s\n",
		c(colorCyan), plan.Settings.Group, plan.Settings.ParentFolder, c(colorReset))

	if plan.CreateParent {
		fmt.Fprintf(w, "  %s+%s parent folder %q will be created (group granted View/List)\n",
			c(colorGreen), c(colorReset), plan.Settings.ParentFolder)
	}

	for _, u := range plan.Users {
		fmt.Fprintf(w, "  %s+%s folder %q will be created for user %d (%s/%s)\n",
			c(colorGreen), c(colorReset), u.DisplayName, u.UserID,
			plan.Settings.Level, plan.Settings.Level)
		for _, sub := range plan.Settings.SubFolders {
			fmt.Fprintf(w, "      %s+%s subfolder %q (inherits permissions)\n",
				c(colorGreen), c(colorReset), sub)
		}
	}

	for _, name := range plan.Existing {
		fmt.Fprintf(w, "  %s·%s folder %q already exists, skipped\n",
			c(colorDim), c(colorReset), name)
	}

	s := plan.Summary()
	fmt.Fprintf(w, "\nPlan: %d folder(s), %d subfolder(s), %d grant(s) to create.\n",
		s.Folders, s.SubFolders, s.Grants)
}

// planJSON is the machine-readable plan shape.
type planJSON struct {
	Group        string        `json:"group"`
	ParentFolder string        `json:"parent_folder"`
	CreateParent bool          `json:"create_parent"`
	Users        []PlannedUser `json:"users"`
	Existing     []string      `json:"existing"`
	Summary      Summary       `json:"summary"`
}

// FormatJSON writes the plan as indented JSON.
func FormatJSON(w io.Writer, plan *Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(planJSON{
		Group:        plan.Settings.Group,
		ParentFolder: plan.Settings.ParentFolder,
		CreateParent: plan.CreateParent,
		Users:        plan.Users,
		Existing:     plan.Existing,
		Summary:      plan.Summary(),
	})
}
