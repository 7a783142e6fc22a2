// Package testutil provides a shared in-memory fake of the vault REST API for
// use in tests across the codebase, in the spirit of net/http/httptest.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"pfolders/internal/vault"
)

// FakeVault is an httptest-backed vault. Populate it with AddGroup, AddUser
// and AddFolder, point a vault.Client at URL(), and assert on the stored
// state afterwards.
type FakeVault struct {
	mu sync.Mutex

	srv *httptest.Server

	// Token is the bearer token API requests must present. Empty disables
	// the check.
	Token string
	// Username and Password are the accepted credentials for the token
	// endpoint.
	Username string
	Password string

	groups  map[int]*fakeGroup
	users   map[int]string
	folders map[int]*vault.Folder
	perms   map[int]*vault.Permission
	nextID  int

	// FailCreateFolder maps a folder name to an HTTP status; creating that
	// folder fails with the status instead.
	FailCreateFolder map[string]int

	// FailListPermissions, FailCreatePermission and FailDeletePermission,
	// when nonzero, fail the corresponding permission endpoint with that
	// HTTP status.
	FailListPermissions  int
	FailCreatePermission int
	FailDeletePermission int

	// FolderCreates counts POST /folders calls, PermissionCreates counts
	// POST /folder-permissions calls.
	FolderCreates     int
	PermissionCreates int

	// Requests counts all API requests; CorrelationIDs collects the distinct
	// X-Correlation-Id values seen, with how often each appeared.
	Requests       int
	CorrelationIDs map[string]int
}

type fakeGroup struct {
	id      int
	name    string
	members []int
}

// NewFakeVault starts the fake server.
func NewFakeVault() *FakeVault {
	f := &FakeVault{
		Token:            "test-token",
		Username:         "svc-provision",
		Password:         "hunter2",
		groups:           map[int]*fakeGroup{},
		users:            map[int]string{},
		folders:          map[int]*vault.Folder{},
		perms:            map[int]*vault.Permission{},
		FailCreateFolder: map[string]int{},
		CorrelationIDs:   map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/token", f.handleToken)
	mux.HandleFunc("GET /api/v1/groups", f.handleSearchGroups)
	mux.HandleFunc("GET /api/v1/groups/{id}/users", f.handleGroupUsers)
	mux.HandleFunc("GET /api/v1/users/{id}", f.handleGetUser)
	mux.HandleFunc("GET /api/v1/folders", f.handleSearchFolders)
	mux.HandleFunc("GET /api/v1/folders/stub", f.handleFolderStub)
	mux.HandleFunc("GET /api/v1/folders/{id}", f.handleGetFolder)
	mux.HandleFunc("POST /api/v1/folders", f.handleCreateFolder)
	mux.HandleFunc("GET /api/v1/folder-permissions", f.handleListPermissions)
	mux.HandleFunc("POST /api/v1/folder-permissions", f.handleCreatePermission)
	mux.HandleFunc("DELETE /api/v1/folder-permissions/{id}", f.handleDeletePermission)
	f.srv = httptest.NewServer(mux)
	return f
}

// URL returns the fake vault's base URL.
func (f *FakeVault) URL() string { return f.srv.URL }

// Close shuts the server down.
func (f *FakeVault) Close() { f.srv.Close() }

// Client returns a vault client authenticated against the fake.
func (f *FakeVault) Client() *vault.Client {
	return vault.NewClient(f.srv.URL, f.Token)
}

// === Builders ===

// AddGroup registers a group with the given member user ids and returns its id.
func (f *FakeVault) AddGroup(name string, members ...int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.groups[f.nextID] = &fakeGroup{id: f.nextID, name: name, members: members}
	return f.nextID
}

// AddUser registers a user profile under an explicit id.
func (f *FakeVault) AddUser(id int, displayName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = displayName
}

// AddFolder registers an existing folder and returns its id.
func (f *FakeVault) AddFolder(name string, parentID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.folders[f.nextID] = &vault.Folder{
		ID:                  f.nextID,
		FolderName:          name,
		ParentFolderID:      parentID,
		InheritSecretPolicy: true,
	}
	return f.nextID
}

// AddPermission registers an existing grant and returns its id.
func (f *FakeVault) AddPermission(folderID, userID, groupID int, folderRole, secretRole string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.perms[f.nextID] = &vault.Permission{
		ID:                   f.nextID,
		FolderID:             folderID,
		UserID:               userID,
		GroupID:              groupID,
		FolderAccessRoleName: folderRole,
		SecretAccessRoleName: secretRole,
	}
	return f.nextID
}

// === Assertion helpers ===

// FolderByName returns the first folder with the given name under parentID,
// or nil.
func (f *FakeVault) FolderByName(name string, parentID int) *vault.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fl := range f.folders {
		if fl.FolderName == name && fl.ParentFolderID == parentID {
			cp := *fl
			return &cp
		}
	}
	return nil
}

// ChildNames returns the sorted names of parentID's direct children.
func (f *FakeVault) ChildNames(parentID int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, fl := range f.folders {
		if fl.ParentFolderID == parentID {
			names = append(names, fl.FolderName)
		}
	}
	sort.Strings(names)
	return names
}

// Permissions returns the grants on a folder, sorted by id.
func (f *FakeVault) Permissions(folderID int) []vault.Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vault.Permission
	for _, p := range f.perms {
		if p.FolderID == folderID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FolderCount returns the total number of folders stored.
func (f *FakeVault) FolderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.folders)
}

// PermissionCount returns the total number of grants stored.
func (f *FakeVault) PermissionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.perms)
}

// === Handlers ===

func (f *FakeVault) authorized(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	f.Requests++
	if id := r.Header.Get("X-Correlation-Id"); id != "" {
		f.CorrelationIDs[id]++
	}
	token := f.Token
	f.mu.Unlock()

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return false
	}
	return true
}

func (f *FakeVault) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad form"})
		return
	}
	if r.PostForm.Get("grant_type") != "password" ||
		r.PostForm.Get("username") != f.Username ||
		r.PostForm.Get("password") != f.Password {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": f.Token,
		"token_type":   "bearer",
		"expires_in":   1200,
	})
}

func (f *FakeVault) handleSearchGroups(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	text := r.URL.Query().Get("filter.searchText")

	f.mu.Lock()
	var records []vault.Group
	for _, g := range f.groups {
		if strings.Contains(g.name, text) {
			records = append(records, vault.Group{ID: g.id, Name: g.name})
		}
	}
	f.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (f *FakeVault) handleGroupUsers(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	id, _ := strconv.Atoi(r.PathValue("id"))

	f.mu.Lock()
	g, ok := f.groups[id]
	var records []map[string]int
	if ok {
		for _, uid := range g.members {
			records = append(records, map[string]int{"userId": uid})
		}
	}
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("group %d not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (f *FakeVault) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	id, _ := strconv.Atoi(r.PathValue("id"))

	f.mu.Lock()
	name, ok := f.users[id]
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("user %d not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, vault.User{ID: id, DisplayName: name})
}

func (f *FakeVault) handleSearchFolders(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	text := r.URL.Query().Get("filter.searchText")

	f.mu.Lock()
	var records []vault.Folder
	for _, fl := range f.folders {
		if strings.Contains(fl.FolderName, text) {
			cp := *fl
			cp.ChildFolders = nil
			records = append(records, cp)
		}
	}
	f.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].FolderName < records[j].FolderName })
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (f *FakeVault) handleFolderStub(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, vault.Folder{InheritPermissions: true, InheritSecretPolicy: true})
}

func (f *FakeVault) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	id, _ := strconv.Atoi(r.PathValue("id"))

	f.mu.Lock()
	fl, ok := f.folders[id]
	var out vault.Folder
	if ok {
		out = *fl
		if r.URL.Query().Get("args.getAllChildren") == "true" {
			for _, child := range f.folders {
				if child.ParentFolderID == id {
					cp := *child
					out.ChildFolders = append(out.ChildFolders, cp)
				}
			}
			sort.Slice(out.ChildFolders, func(i, j int) bool {
				return out.ChildFolders[i].FolderName < out.ChildFolders[j].FolderName
			})
		}
	}
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("folder %d not found", id)})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeVault) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	var req vault.CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}

	f.mu.Lock()
	f.FolderCreates++
	if status, ok := f.FailCreateFolder[req.FolderName]; ok {
		f.mu.Unlock()
		writeJSON(w, status, map[string]string{"message": fmt.Sprintf("cannot create folder %q", req.FolderName)})
		return
	}
	f.nextID++
	fl := &vault.Folder{
		ID:                  f.nextID,
		FolderName:          req.FolderName,
		ParentFolderID:      req.ParentFolderID,
		InheritPermissions:  req.InheritPermissions,
		InheritSecretPolicy: req.InheritSecretPolicy,
	}
	f.folders[fl.ID] = fl
	// A new folder starts with a copy of its parent's grants, which is what
	// permission convergence later strips back off.
	if req.ParentFolderID != 0 {
		var parentPerms []vault.Permission
		for _, p := range f.perms {
			if p.FolderID == req.ParentFolderID {
				parentPerms = append(parentPerms, *p)
			}
		}
		for _, p := range parentPerms {
			f.nextID++
			cp := p
			cp.ID = f.nextID
			cp.FolderID = fl.ID
			f.perms[cp.ID] = &cp
		}
	}
	out := *fl
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (f *FakeVault) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	folderID, _ := strconv.Atoi(r.URL.Query().Get("filter.folderId"))

	f.mu.Lock()
	if f.FailListPermissions != 0 {
		status := f.FailListPermissions
		f.mu.Unlock()
		writeJSON(w, status, map[string]string{"message": "cannot list permissions"})
		return
	}
	var records []vault.Permission
	for _, p := range f.perms {
		if p.FolderID == folderID {
			records = append(records, *p)
		}
	}
	f.mu.Unlock()

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (f *FakeVault) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	var req vault.CreatePermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}

	f.mu.Lock()
	f.PermissionCreates++
	if f.FailCreatePermission != 0 {
		status := f.FailCreatePermission
		f.mu.Unlock()
		writeJSON(w, status, map[string]string{"message": "cannot create permission"})
		return
	}
	f.nextID++
	p := &vault.Permission{
		ID:                   f.nextID,
		FolderID:             req.FolderID,
		UserID:               req.UserID,
		GroupID:              req.GroupID,
		FolderAccessRoleName: req.FolderAccessRoleName,
		SecretAccessRoleName: req.SecretAccessRoleName,
	}
	f.perms[p.ID] = p
	out := *p
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (f *FakeVault) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}
	id, _ := strconv.Atoi(r.PathValue("id"))

	f.mu.Lock()
	if f.FailDeletePermission != 0 {
		status := f.FailDeletePermission
		f.mu.Unlock()
		writeJSON(w, status, map[string]string{"message": "cannot delete permission"})
		return
	}
	_, ok := f.perms[id]
	delete(f.perms, id)
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": fmt.Sprintf("permission %d not found", id)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
