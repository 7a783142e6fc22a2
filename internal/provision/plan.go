package provision

// PlannedUser is one member whose personal folder does not exist yet.
type PlannedUser struct {
	DisplayName string `json:"display_name"`
	UserID      int    `json:"user_id"`
}

// Plan is the resolved, read-only picture of one run: the identities involved
// and the folders that need to be created. It is self-contained; Apply needs
// nothing beyond a Plan and never modifies it.
type Plan struct {
	Settings Settings

	GroupID      int
	AdminGroupID int // zero when no admin group is configured

	// ParentID is the existing parent folder's id; zero when CreateParent.
	ParentID     int
	CreateParent bool

	// Users is the to-create set, sorted by display name.
	Users []PlannedUser

	// Existing lists already-provisioned display names, sorted. These are
	// skipped entirely: neither re-created nor re-permissioned.
	Existing []string
}

// HasChanges reports whether applying the plan would write anything.
func (p *Plan) HasChanges() bool {
	return p.CreateParent || len(p.Users) > 0
}

// Summary holds counts of the writes the plan implies.
type Summary struct {
	Folders    int `json:"folders"`
	SubFolders int `json:"subfolders"`
	Grants     int `json:"grants"`
}

// Summary computes the write counts for the plan. Grant deletions (stripping
// inherited group access) are not counted: how many exist is only known once
// each folder's grants are listed during apply.
func (p *Plan) Summary() Summary {
	var s Summary
	grantsPerUser := 1
	if p.AdminGroupID != 0 {
		grantsPerUser = 2
	}

	if p.CreateParent {
		s.Folders++
		s.Grants++ // source group View/List on the parent
		if p.AdminGroupID != 0 {
			s.Grants++
		}
	}
	s.Folders += len(p.Users)
	s.SubFolders = len(p.Users) * len(p.Settings.SubFolders)
	s.Grants += len(p.Users) * grantsPerUser
	return s
}
