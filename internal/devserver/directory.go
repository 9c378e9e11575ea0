package devserver

import (
	"sort"
	"strings"
	"sync"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/policy"
	goerrors "github.com/goliatone/go-errors"
)

var (
	errNotFound = goerrors.New("entity not found", goerrors.CategoryNotFound).
			WithTextCode("NOT_FOUND").
			WithCode(goerrors.CodeNotFound)
	errDuplicate = goerrors.New("entity already exists", goerrors.CategoryConflict).
			WithTextCode("DUPLICATE").
			WithCode(goerrors.CodeConflict)
	errInUse = goerrors.New("entity is referenced by a policy", goerrors.CategoryConflict).
			WithTextCode("IN_USE").
			WithCode(goerrors.CodeConflict)
)

type account struct {
	id             int64
	email          string
	passwordHash   string
	organizationID int64
	roles          []string
}

func (a *account) user(catalog []policy.Role) *authclient.User {
	u := &authclient.User{
		ID:             a.id,
		Email:          a.email,
		OrganizationID: a.organizationID,
	}
	for _, name := range a.roles {
		ref := authclient.RoleRef{Name: name}
		for _, role := range catalog {
			if role.OrganizationID == a.organizationID && strings.EqualFold(role.Name, name) {
				ref.ID = role.ID
				break
			}
		}
		u.Roles = append(u.Roles, ref)
	}
	return u
}

// directory is the in-memory data behind the dev server.
type directory struct {
	mu        sync.RWMutex
	nextID    int64
	accounts  map[string]*account
	roles     map[int64]policy.Role
	resources map[int64]policy.Resource
	actions   map[int64]policy.Action
	policies  map[int64]policy.Policy
}

func newDirectory() *directory {
	return &directory{
		accounts:  map[string]*account{},
		roles:     map[int64]policy.Role{},
		resources: map[int64]policy.Resource{},
		actions:   map[int64]policy.Action{},
		policies:  map[int64]policy.Policy{},
	}
}

func (d *directory) id() int64 {
	d.nextID++
	return d.nextID
}

func (d *directory) addAccount(email, passwordHash string, organizationID int64, roles []string) *account {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := &account{
		id:             d.id(),
		email:          strings.ToLower(email),
		passwordHash:   passwordHash,
		organizationID: organizationID,
		roles:          append([]string{}, roles...),
	}
	d.accounts[acct.email] = acct
	return acct
}

func (d *directory) accountByEmail(email string) (*account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acct, ok := d.accounts[strings.ToLower(strings.TrimSpace(email))]
	return acct, ok
}

func (d *directory) accountByID(id int64) (*account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, acct := range d.accounts {
		if acct.id == id {
			return acct, true
		}
	}
	return nil, false
}

func (d *directory) userFor(acct *account) *authclient.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	roles := make([]policy.Role, 0, len(d.roles))
	for _, role := range d.roles {
		roles = append(roles, role)
	}
	return acct.user(roles)
}

func sorted[T any](items map[int64]T, orgID int64, orgOf func(T) int64) []T {
	ids := make([]int64, 0, len(items))
	for id, item := range items {
		if orgID == 0 || orgOf(item) == orgID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, items[id])
	}
	return out
}

func (d *directory) listRoles(orgID int64) []policy.Role {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sorted(d.roles, orgID, func(r policy.Role) int64 { return r.OrganizationID })
}

func (d *directory) saveRole(role policy.Role) (policy.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if role.ID != 0 {
		if _, ok := d.roles[role.ID]; !ok {
			return policy.Role{}, errNotFound
		}
	}
	for _, existing := range d.roles {
		if existing.ID != role.ID && existing.OrganizationID == role.OrganizationID && strings.EqualFold(existing.Name, role.Name) {
			return policy.Role{}, errDuplicate.Clone().WithMetadata(map[string]any{"name": role.Name})
		}
	}
	if role.ID == 0 {
		role.ID = d.id()
	}
	d.roles[role.ID] = role
	for id, p := range d.policies {
		if p.Role.ID == role.ID {
			p.Role = role
			d.policies[id] = p
		}
	}
	return role, nil
}

func (d *directory) deleteRole(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[id]; !ok {
		return errNotFound
	}
	for _, p := range d.policies {
		if p.Role.ID == id {
			return errInUse
		}
	}
	delete(d.roles, id)
	return nil
}

func (d *directory) listResources(orgID int64) []policy.Resource {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sorted(d.resources, orgID, func(r policy.Resource) int64 { return r.OrganizationID })
}

func (d *directory) saveResource(resource policy.Resource) (policy.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if resource.ID != 0 {
		if _, ok := d.resources[resource.ID]; !ok {
			return policy.Resource{}, errNotFound
		}
	}
	for _, existing := range d.resources {
		if existing.ID != resource.ID && existing.OrganizationID == resource.OrganizationID && existing.Code == resource.Code {
			return policy.Resource{}, errDuplicate.Clone().WithMetadata(map[string]any{"code": resource.Code})
		}
	}
	if resource.ID == 0 {
		resource.ID = d.id()
	}
	d.resources[resource.ID] = resource
	return resource, nil
}

func (d *directory) deleteResource(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.resources[id]; !ok {
		return errNotFound
	}
	for _, p := range d.policies {
		if p.Resource.ID == id {
			return errInUse
		}
	}
	delete(d.resources, id)
	return nil
}

func (d *directory) listActions(orgID int64) []policy.Action {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sorted(d.actions, orgID, func(a policy.Action) int64 { return a.OrganizationID })
}

func (d *directory) saveAction(action policy.Action) (policy.Action, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if action.ID != 0 {
		if _, ok := d.actions[action.ID]; !ok {
			return policy.Action{}, errNotFound
		}
	}
	for _, existing := range d.actions {
		if existing.ID != action.ID && existing.OrganizationID == action.OrganizationID && existing.Code == action.Code {
			return policy.Action{}, errDuplicate.Clone().WithMetadata(map[string]any{"code": action.Code})
		}
	}
	if action.ID == 0 {
		action.ID = d.id()
	}
	d.actions[action.ID] = action
	return action, nil
}

func (d *directory) deleteAction(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.actions[id]; !ok {
		return errNotFound
	}
	for _, p := range d.policies {
		if p.Action.ID == id {
			return errInUse
		}
	}
	delete(d.actions, id)
	return nil
}

func (d *directory) listPolicies(orgID int64) []policy.Policy {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sorted(d.policies, orgID, func(p policy.Policy) int64 { return p.OrganizationID })
}

// savePolicy resolves the references against stored entities, the way the
// real service does, and rejects duplicates of the same role/resource/action.
func (d *directory) savePolicy(p policy.Policy) (policy.Policy, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p.ID != 0 {
		if _, ok := d.policies[p.ID]; !ok {
			return policy.Policy{}, errNotFound
		}
	}

	role, ok := d.roles[p.Role.ID]
	if !ok {
		return policy.Policy{}, errNotFound.Clone().WithMetadata(map[string]any{"role_id": p.Role.ID})
	}
	resource, ok := d.resources[p.Resource.ID]
	if !ok {
		return policy.Policy{}, errNotFound.Clone().WithMetadata(map[string]any{"resource_id": p.Resource.ID})
	}
	action, ok := d.actions[p.Action.ID]
	if !ok {
		return policy.Policy{}, errNotFound.Clone().WithMetadata(map[string]any{"action_id": p.Action.ID})
	}
	p.Role, p.Resource, p.Action = role, resource, action
	if err := p.Validate(); err != nil {
		return policy.Policy{}, err
	}

	for _, existing := range d.policies {
		if existing.ID != p.ID &&
			existing.Role.ID == role.ID &&
			existing.Resource.ID == resource.ID &&
			existing.Action.ID == action.ID {
			return policy.Policy{}, errDuplicate.Clone().WithMetadata(map[string]any{"key": p.Key()})
		}
	}

	if p.ID == 0 {
		p.ID = d.id()
	}
	d.policies[p.ID] = p
	return p, nil
}

func (d *directory) deletePolicy(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.policies[id]; !ok {
		return errNotFound
	}
	delete(d.policies, id)
	return nil
}

// page slices items for a search request. Page numbers start at zero.
func page[T any](items []T, query policy.SearchQuery) policy.Page[T] {
	size := query.Size
	if size <= 0 {
		size = policy.DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size

	start := query.Page * size
	if start > total || start < 0 {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return policy.Page[T]{
		Content:       append([]T{}, items[start:end]...),
		TotalElements: int64(total),
		TotalPages:    pages,
	}
}

func matches(keyword string, fields ...string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), keyword) {
			return true
		}
	}
	return false
}
