package policy

import (
	"context"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
)

// Endpoint is the remote policy administration service.
type Endpoint interface {
	ListRoles(ctx context.Context, organizationID int64) ([]Role, error)
	CreateRole(ctx context.Context, role Role) (*Role, error)
	UpdateRole(ctx context.Context, role Role) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error
	SearchRoles(ctx context.Context, query SearchQuery) (*Page[Role], error)

	ListResources(ctx context.Context, organizationID int64) ([]Resource, error)
	CreateResource(ctx context.Context, resource Resource) (*Resource, error)
	UpdateResource(ctx context.Context, resource Resource) (*Resource, error)
	DeleteResource(ctx context.Context, id int64) error

	ListActions(ctx context.Context, organizationID int64) ([]Action, error)
	CreateAction(ctx context.Context, action Action) (*Action, error)
	UpdateAction(ctx context.Context, action Action) (*Action, error)
	DeleteAction(ctx context.Context, id int64) error

	ListPolicies(ctx context.Context, organizationID int64) ([]Policy, error)
	CreatePolicy(ctx context.Context, policy Policy) (*Policy, error)
	UpdatePolicy(ctx context.Context, policy Policy) (*Policy, error)
	DeletePolicy(ctx context.Context, id int64) error
	SearchPolicies(ctx context.Context, query SearchQuery) (*Page[Policy], error)
}

// OrganizationScope supplies the tenant of the current session. The session
// controller implements it.
type OrganizationScope interface {
	OrganizationID() (int64, bool)
}

// OrganizationFunc adapts a function to OrganizationScope.
type OrganizationFunc func() (int64, bool)

// OrganizationID implements OrganizationScope.
func (f OrganizationFunc) OrganizationID() (int64, bool) {
	return f()
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// AdministrationOption customizes Administration.
type AdministrationOption func(*Administration)

// WithLogger sets the administration logger.
func WithLogger(logger authclient.Logger) AdministrationOption {
	return func(a *Administration) {
		a.loggerProvider, a.logger = authclient.ResolveLogger("policy.admin", a.loggerProvider, logger)
	}
}

// WithLoggerProvider resolves the administration logger from provider.
func WithLoggerProvider(provider authclient.LoggerProvider) AdministrationOption {
	return func(a *Administration) {
		a.loggerProvider, a.logger = authclient.ResolveLogger("policy.admin", provider, a.logger)
	}
}

// Administration writes roles, resources, actions and policies through the
// endpoint, always inside the session organization. Entities are validated
// locally first; endpoint conflicts and rejections come back as validation
// errors. Nothing is retried.
type Administration struct {
	endpoint       Endpoint
	scope          OrganizationScope
	logger         authclient.Logger
	loggerProvider authclient.LoggerProvider
}

// NewAdministration returns an Administration bound to endpoint and scope.
func NewAdministration(endpoint Endpoint, scope OrganizationScope, opts ...AdministrationOption) *Administration {
	a := &Administration{
		endpoint: endpoint,
		scope:    scope,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.logger == nil {
		a.loggerProvider, a.logger = authclient.ResolveLogger("policy.admin", a.loggerProvider, nil)
	}
	return a
}

func (a *Administration) organization() (int64, error) {
	if a.scope == nil {
		return 0, ErrNoOrganization.Clone()
	}
	orgID, ok := a.scope.OrganizationID()
	if !ok || orgID <= 0 {
		return 0, ErrNoOrganization.Clone()
	}
	return orgID, nil
}

// LoadCatalog fetches the roles, resources and actions of the organization.
func (a *Administration) LoadCatalog(ctx context.Context) (Catalog, error) {
	orgID, err := a.organization()
	if err != nil {
		return Catalog{}, err
	}

	roles, err := a.endpoint.ListRoles(ctx, orgID)
	if err != nil {
		return Catalog{}, a.fail("roles", "load", err)
	}
	resources, err := a.endpoint.ListResources(ctx, orgID)
	if err != nil {
		return Catalog{}, a.fail("resources", "load", err)
	}
	actions, err := a.endpoint.ListActions(ctx, orgID)
	if err != nil {
		return Catalog{}, a.fail("actions", "load", err)
	}

	return Catalog{
		Roles:     inOrganization(roles, orgID, func(r Role) int64 { return r.OrganizationID }),
		Resources: inOrganization(resources, orgID, func(r Resource) int64 { return r.OrganizationID }),
		Actions:   inOrganization(actions, orgID, func(r Action) int64 { return r.OrganizationID }),
	}, nil
}

// Roles lists the organization roles.
func (a *Administration) Roles(ctx context.Context) ([]Role, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}
	roles, err := a.endpoint.ListRoles(ctx, orgID)
	if err != nil {
		return nil, a.fail("role", "list", err)
	}
	return inOrganization(roles, orgID, func(r Role) int64 { return r.OrganizationID }), nil
}

// SaveRole creates the role when it has no id and updates it otherwise.
func (a *Administration) SaveRole(ctx context.Context, role Role) (*Role, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}
	role.OrganizationID = orgID
	role.Name = strings.TrimSpace(role.Name)
	if err := role.Validate(); err != nil {
		return nil, err
	}

	var saved *Role
	if role.ID > 0 {
		saved, err = a.endpoint.UpdateRole(ctx, role)
	} else {
		saved, err = a.endpoint.CreateRole(ctx, role)
	}
	if err != nil {
		return nil, a.fail("role", "save", err)
	}
	return saved, nil
}

// DeleteRole removes a role.
func (a *Administration) DeleteRole(ctx context.Context, id int64) error {
	if _, err := a.organization(); err != nil {
		return err
	}
	if id <= 0 {
		return unresolved("role", id)
	}
	if err := a.endpoint.DeleteRole(ctx, id); err != nil {
		return a.fail("role", "delete", err)
	}
	return nil
}

// SearchRoles pages through roles matching keyword.
func (a *Administration) SearchRoles(ctx context.Context, query SearchQuery) (*Page[Role], error) {
	query, err := a.scopedQuery(query)
	if err != nil {
		return nil, err
	}
	page, err := a.endpoint.SearchRoles(ctx, query)
	if err != nil {
		return nil, a.fail("role", "search", err)
	}
	return page, nil
}

// Resources lists the organization resources.
func (a *Administration) Resources(ctx context.Context) ([]Resource, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}
	resources, err := a.endpoint.ListResources(ctx, orgID)
	if err != nil {
		return nil, a.fail("resource", "list", err)
	}
	return inOrganization(resources, orgID, func(r Resource) int64 { return r.OrganizationID }), nil
}

// SaveResource creates or updates a resource.
func (a *Administration) SaveResource(ctx context.Context, resource Resource) (*Resource, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}
	resource.OrganizationID = orgID
	if err := resource.Validate(); err != nil {
		return nil, err
	}

	var saved *Resource
	if resource.ID > 0 {
		saved, err = a.endpoint.UpdateResource(ctx, resource)
	} else {
		saved, err = a.endpoint.CreateResource(ctx, resource)
	}
	if err != nil {
		return nil, a.fail("resource", "save", err)
	}
	return saved, nil
}

// DeleteResource removes a resource.
func (a *Administration) DeleteResource(ctx context.Context, id int64) error {
	if _, err := a.organization(); err != nil {
		return err
	}
	if id <= 0 {
		return unresolved("resource", id)
	}
	if err := a.endpoint.DeleteResource(ctx, id); err != nil {
		return a.fail("resource", "delete", err)
	}
	return nil
}

// Actions lists the organization actions.
func (a *Administration) Actions(ctx context.Context) ([]Action, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}
	actions, err := a.endpoint.ListActions(ctx, orgID)
	if err != nil {
		return nil, a.fail("action", "list", err)
	}
	return inOrganization(actions, orgID, func(r Action) int64 { return r.OrganizationID }), nil
}

// SaveAction creates or updates an action.
func (a *Administration) SaveAction(ctx context.Context, action Action) (*Action, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}
	action.OrganizationID = orgID
	if err := action.Validate(); err != nil {
		return nil, err
	}

	var saved *Action
	if action.ID > 0 {
		saved, err = a.endpoint.UpdateAction(ctx, action)
	} else {
		saved, err = a.endpoint.CreateAction(ctx, action)
	}
	if err != nil {
		return nil, a.fail("action", "save", err)
	}
	return saved, nil
}

// DeleteAction removes an action.
func (a *Administration) DeleteAction(ctx context.Context, id int64) error {
	if _, err := a.organization(); err != nil {
		return err
	}
	if id <= 0 {
		return unresolved("action", id)
	}
	if err := a.endpoint.DeleteAction(ctx, id); err != nil {
		return a.fail("action", "delete", err)
	}
	return nil
}

// Policies lists the organization policies.
func (a *Administration) Policies(ctx context.Context) ([]Policy, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}
	policies, err := a.endpoint.ListPolicies(ctx, orgID)
	if err != nil {
		return nil, a.fail("policy", "list", err)
	}
	return inOrganization(policies, orgID, func(p Policy) int64 { return p.OrganizationID }), nil
}

// SavePolicy assembles a policy from catalog and submits it. Creation when
// draft.ID is zero, update otherwise. A dangling reference fails before any
// endpoint call.
func (a *Administration) SavePolicy(ctx context.Context, roleID, resourceID, actionID int64, catalog Catalog, draft Draft) (*Policy, error) {
	orgID, err := a.organization()
	if err != nil {
		return nil, err
	}

	policy, err := AssemblePolicy(orgID, roleID, resourceID, actionID, catalog, draft)
	if err != nil {
		a.logger.Debug("policy assembly rejected", "error", err)
		return nil, err
	}

	var saved *Policy
	if policy.ID > 0 {
		saved, err = a.endpoint.UpdatePolicy(ctx, *policy)
	} else {
		saved, err = a.endpoint.CreatePolicy(ctx, *policy)
	}
	if err != nil {
		return nil, a.fail("policy", "save", err)
	}
	return saved, nil
}

// DeletePolicy removes a policy.
func (a *Administration) DeletePolicy(ctx context.Context, id int64) error {
	if _, err := a.organization(); err != nil {
		return err
	}
	if id <= 0 {
		return unresolved("policy", id)
	}
	if err := a.endpoint.DeletePolicy(ctx, id); err != nil {
		return a.fail("policy", "delete", err)
	}
	return nil
}

// SearchPolicies pages through policies matching keyword.
func (a *Administration) SearchPolicies(ctx context.Context, query SearchQuery) (*Page[Policy], error) {
	query, err := a.scopedQuery(query)
	if err != nil {
		return nil, err
	}
	page, err := a.endpoint.SearchPolicies(ctx, query)
	if err != nil {
		return nil, a.fail("policy", "search", err)
	}
	return page, nil
}

// Permissions computes the effective permissions for roleNames.
func (a *Administration) Permissions(ctx context.Context, roleNames []string) (PermissionSet, error) {
	roles, err := a.Roles(ctx)
	if err != nil {
		return PermissionSet{}, err
	}
	policies, err := a.Policies(ctx)
	if err != nil {
		return PermissionSet{}, err
	}
	return Effective(roleNames, roles, policies), nil
}

func (a *Administration) scopedQuery(query SearchQuery) (SearchQuery, error) {
	orgID, err := a.organization()
	if err != nil {
		return query, err
	}
	query.OrganizationID = orgID
	query.Keyword = strings.TrimSpace(query.Keyword)
	if query.Page < 0 {
		query.Page = 0
	}
	if query.Size <= 0 {
		query.Size = DefaultPageSize
	}
	if query.Size > MaxPageSize {
		query.Size = MaxPageSize
	}
	return query, nil
}

func (a *Administration) fail(entity, op string, err error) error {
	surfaced := surfaceEndpointError(err, entity)
	if IsValidationError(surfaced) {
		a.logger.Info("policy endpoint rejected request", "entity", entity, "op", op, "error", err)
	} else {
		a.logger.Error("policy endpoint request failed", "entity", entity, "op", op, "error", err)
	}
	return surfaced
}

func inOrganization[T any](items []T, orgID int64, orgOf func(T) int64) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if orgOf(item) == orgID {
			out = append(out, item)
		}
	}
	return out
}
