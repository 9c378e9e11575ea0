package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/policy"
)

// PolicyClient talks to the policy administration endpoint. Every call is
// authenticated with a bearer token from the configured TokenSource.
type PolicyClient struct {
	transport *transport
}

var _ policy.Endpoint = (*PolicyClient)(nil)

// NewPolicyClient returns a client for the policy endpoint at baseURL.
func NewPolicyClient(baseURL string, opts ...Option) (*PolicyClient, error) {
	t, err := newTransport("authclient.remote.policy", baseURL, authclient.ErrValidation, opts...)
	if err != nil {
		return nil, err
	}
	return &PolicyClient{transport: t}, nil
}

const (
	rolesPath     = "/roles"
	resourcesPath = "/resources"
	actionsPath   = "/actions"
	policiesPath  = "/policy"
)

func orgQuery(organizationID int64) url.Values {
	return url.Values{"organizationId": []string{strconv.FormatInt(organizationID, 10)}}
}

func itemPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}

func list[T any](ctx context.Context, t *transport, path string, organizationID int64) ([]T, error) {
	out := []T{}
	if _, err := t.do(ctx, request{
		method:        http.MethodGet,
		path:          path,
		query:         orgQuery(organizationID),
		authenticated: true,
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func create[T any](ctx context.Context, t *transport, path string, item T) (*T, error) {
	out := new(T)
	if _, err := t.do(ctx, request{
		method:        http.MethodPost,
		path:          path,
		body:          item,
		authenticated: true,
	}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func update[T any](ctx context.Context, t *transport, path string, id int64, item T) (*T, error) {
	out := new(T)
	if _, err := t.do(ctx, request{
		method:        http.MethodPut,
		path:          itemPath(path, id),
		body:          item,
		authenticated: true,
	}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func remove(ctx context.Context, t *transport, path string, id int64) error {
	_, err := t.do(ctx, request{
		method:        http.MethodDelete,
		path:          itemPath(path, id),
		authenticated: true,
	}, nil)
	return err
}

func search[T any](ctx context.Context, t *transport, path string, query policy.SearchQuery) (*policy.Page[T], error) {
	out := &policy.Page[T]{}
	if _, err := t.do(ctx, request{
		method:        http.MethodPost,
		path:          path + "/search",
		body:          query,
		authenticated: true,
	}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PolicyClient) ListRoles(ctx context.Context, organizationID int64) ([]policy.Role, error) {
	return list[policy.Role](ctx, c.transport, rolesPath, organizationID)
}

func (c *PolicyClient) CreateRole(ctx context.Context, role policy.Role) (*policy.Role, error) {
	return create(ctx, c.transport, rolesPath, role)
}

func (c *PolicyClient) UpdateRole(ctx context.Context, role policy.Role) (*policy.Role, error) {
	return update(ctx, c.transport, rolesPath, role.ID, role)
}

func (c *PolicyClient) DeleteRole(ctx context.Context, id int64) error {
	return remove(ctx, c.transport, rolesPath, id)
}

func (c *PolicyClient) SearchRoles(ctx context.Context, query policy.SearchQuery) (*policy.Page[policy.Role], error) {
	return search[policy.Role](ctx, c.transport, rolesPath, query)
}

func (c *PolicyClient) ListResources(ctx context.Context, organizationID int64) ([]policy.Resource, error) {
	return list[policy.Resource](ctx, c.transport, resourcesPath, organizationID)
}

func (c *PolicyClient) CreateResource(ctx context.Context, resource policy.Resource) (*policy.Resource, error) {
	return create(ctx, c.transport, resourcesPath, resource)
}

func (c *PolicyClient) UpdateResource(ctx context.Context, resource policy.Resource) (*policy.Resource, error) {
	return update(ctx, c.transport, resourcesPath, resource.ID, resource)
}

func (c *PolicyClient) DeleteResource(ctx context.Context, id int64) error {
	return remove(ctx, c.transport, resourcesPath, id)
}

func (c *PolicyClient) ListActions(ctx context.Context, organizationID int64) ([]policy.Action, error) {
	return list[policy.Action](ctx, c.transport, actionsPath, organizationID)
}

func (c *PolicyClient) CreateAction(ctx context.Context, action policy.Action) (*policy.Action, error) {
	return create(ctx, c.transport, actionsPath, action)
}

func (c *PolicyClient) UpdateAction(ctx context.Context, action policy.Action) (*policy.Action, error) {
	return update(ctx, c.transport, actionsPath, action.ID, action)
}

func (c *PolicyClient) DeleteAction(ctx context.Context, id int64) error {
	return remove(ctx, c.transport, actionsPath, id)
}

func (c *PolicyClient) ListPolicies(ctx context.Context, organizationID int64) ([]policy.Policy, error) {
	return list[policy.Policy](ctx, c.transport, policiesPath, organizationID)
}

func (c *PolicyClient) CreatePolicy(ctx context.Context, p policy.Policy) (*policy.Policy, error) {
	return create(ctx, c.transport, policiesPath, p)
}

func (c *PolicyClient) UpdatePolicy(ctx context.Context, p policy.Policy) (*policy.Policy, error) {
	return update(ctx, c.transport, policiesPath, p.ID, p)
}

func (c *PolicyClient) DeletePolicy(ctx context.Context, id int64) error {
	return remove(ctx, c.transport, policiesPath, id)
}

func (c *PolicyClient) SearchPolicies(ctx context.Context, query policy.SearchQuery) (*policy.Page[policy.Policy], error) {
	return search[policy.Policy](ctx, c.transport, policiesPath, query)
}
