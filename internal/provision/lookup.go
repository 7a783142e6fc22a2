package provision

import (
	"context"
	"fmt"
)

// EntityKind identifies what a lookup searched for.
type EntityKind int

const (
	KindGroup EntityKind = iota
	KindFolder
)

// String returns the kind name.
func (k EntityKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// LookupState is the outcome of a name lookup.
type LookupState int

const (
	// StateNotFound means the search returned no candidates.
	StateNotFound LookupState = iota
	// StateFound means the first candidate matched the query exactly.
	StateFound
	// StateAmbiguous means candidates came back but the first was only an
	// approximate match. Later candidates are deliberately not scanned:
	// near-duplicate names in the vault are a hazard the caller should see
	// surfaced, not papered over by picking one of them.
	StateAmbiguous
)

// String returns the state name.
func (s LookupState) String() string {
	switch s {
	case StateFound:
		return "found"
	case StateNotFound:
		return "not-found"
	case StateAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Lookup is the immutable result of resolving a name to a vault id.
type Lookup struct {
	Kind  EntityKind
	Name  string
	ID    int
	State LookupState
}

// Err returns a *LookupError when the lookup did not land on a definite id,
// nil otherwise.
func (l Lookup) Err() error {
	if l.State == StateFound {
		return nil
	}
	return &LookupError{Lookup: l}
}

// LookupError reports a required identity that could not be resolved to a
// single exact match.
type LookupError struct {
	Lookup Lookup
}

func (e *LookupError) Error() string {
	if e.Lookup.State == StateAmbiguous {
		return fmt.Sprintf("%s %q matched only approximately; treating as absent", e.Lookup.Kind, e.Lookup.Name)
	}
	return fmt.Sprintf("%s %q not found", e.Lookup.Kind, e.Lookup.Name)
}

// ResolveGroup finds the group whose name exactly matches name.
func ResolveGroup(ctx context.Context, d Directory, name string) (Lookup, error) {
	groups, err := d.SearchGroups(ctx, name)
	if err != nil {
		return Lookup{}, err
	}

	candidates := make([]candidate, len(groups))
	for i, g := range groups {
		candidates[i] = candidate{id: g.ID, name: g.Name}
	}
	return pickExact(KindGroup, name, candidates), nil
}

// ResolveFolder finds the folder whose name exactly matches name.
func ResolveFolder(ctx context.Context, d Directory, name string) (Lookup, error) {
	folders, err := d.SearchFolders(ctx, name)
	if err != nil {
		return Lookup{}, err
	}

	candidates := make([]candidate, len(folders))
	for i, f := range folders {
		candidates[i] = candidate{id: f.ID, name: f.FolderName}
	}
	return pickExact(KindFolder, name, candidates), nil
}

type candidate struct {
	id   int
	name string
}

// pickExact accepts only a first candidate that equals the query exactly.
// Remaining candidates are never scanned.
func pickExact(kind EntityKind, name string, candidates []candidate) Lookup {
	l := Lookup{Kind: kind, Name: name}
	switch {
	case len(candidates) == 0:
		l.State = StateNotFound
	case candidates[0].name == name:
		l.State = StateFound
		l.ID = candidates[0].id
	default:
		l.State = StateAmbiguous
	}
	return l
}
