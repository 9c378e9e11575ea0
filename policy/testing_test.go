package policy_test

import (
	"context"

	"github.com/goliatone/go-auth-client/policy"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/mock"
)

// MockEndpoint implements policy.Endpoint
type MockEndpoint struct {
	mock.Mock
}

func (m *MockEndpoint) ListRoles(ctx context.Context, organizationID int64) ([]policy.Role, error) {
	args := m.Called(ctx, organizationID)
	out, _ := args.Get(0).([]policy.Role)
	return out, args.Error(1)
}

func (m *MockEndpoint) CreateRole(ctx context.Context, role policy.Role) (*policy.Role, error) {
	args := m.Called(ctx, role)
	out, _ := args.Get(0).(*policy.Role)
	return out, args.Error(1)
}

func (m *MockEndpoint) UpdateRole(ctx context.Context, role policy.Role) (*policy.Role, error) {
	args := m.Called(ctx, role)
	out, _ := args.Get(0).(*policy.Role)
	return out, args.Error(1)
}

func (m *MockEndpoint) DeleteRole(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEndpoint) SearchRoles(ctx context.Context, query policy.SearchQuery) (*policy.Page[policy.Role], error) {
	args := m.Called(ctx, query)
	out, _ := args.Get(0).(*policy.Page[policy.Role])
	return out, args.Error(1)
}

func (m *MockEndpoint) ListResources(ctx context.Context, organizationID int64) ([]policy.Resource, error) {
	args := m.Called(ctx, organizationID)
	out, _ := args.Get(0).([]policy.Resource)
	return out, args.Error(1)
}

func (m *MockEndpoint) CreateResource(ctx context.Context, resource policy.Resource) (*policy.Resource, error) {
	args := m.Called(ctx, resource)
	out, _ := args.Get(0).(*policy.Resource)
	return out, args.Error(1)
}

func (m *MockEndpoint) UpdateResource(ctx context.Context, resource policy.Resource) (*policy.Resource, error) {
	args := m.Called(ctx, resource)
	out, _ := args.Get(0).(*policy.Resource)
	return out, args.Error(1)
}

func (m *MockEndpoint) DeleteResource(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEndpoint) ListActions(ctx context.Context, organizationID int64) ([]policy.Action, error) {
	args := m.Called(ctx, organizationID)
	out, _ := args.Get(0).([]policy.Action)
	return out, args.Error(1)
}

func (m *MockEndpoint) CreateAction(ctx context.Context, action policy.Action) (*policy.Action, error) {
	args := m.Called(ctx, action)
	out, _ := args.Get(0).(*policy.Action)
	return out, args.Error(1)
}

func (m *MockEndpoint) UpdateAction(ctx context.Context, action policy.Action) (*policy.Action, error) {
	args := m.Called(ctx, action)
	out, _ := args.Get(0).(*policy.Action)
	return out, args.Error(1)
}

func (m *MockEndpoint) DeleteAction(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEndpoint) ListPolicies(ctx context.Context, organizationID int64) ([]policy.Policy, error) {
	args := m.Called(ctx, organizationID)
	out, _ := args.Get(0).([]policy.Policy)
	return out, args.Error(1)
}

func (m *MockEndpoint) CreatePolicy(ctx context.Context, p policy.Policy) (*policy.Policy, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*policy.Policy)
	return out, args.Error(1)
}

func (m *MockEndpoint) UpdatePolicy(ctx context.Context, p policy.Policy) (*policy.Policy, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*policy.Policy)
	return out, args.Error(1)
}

func (m *MockEndpoint) DeletePolicy(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEndpoint) SearchPolicies(ctx context.Context, query policy.SearchQuery) (*policy.Page[policy.Policy], error) {
	args := m.Called(ctx, query)
	out, _ := args.Get(0).(*policy.Page[policy.Policy])
	return out, args.Error(1)
}

func org(id int64) policy.OrganizationScope {
	return policy.OrganizationFunc(func() (int64, bool) { return id, id > 0 })
}

func textCode(err error) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ""
	}
	return richErr.TextCode
}

func catalog() policy.Catalog {
	return policy.Catalog{
		Roles: []policy.Role{
			{ID: 1, OrganizationID: 3, Name: "ADMIN", Active: true},
			{ID: 2, OrganizationID: 3, Name: "RETIRED", Active: false},
			{ID: 9, OrganizationID: 4, Name: "FOREIGN", Active: true},
		},
		Resources: []policy.Resource{
			{ID: 10, OrganizationID: 3, Name: "Users", Code: "USERS"},
			{ID: 19, OrganizationID: 4, Name: "Users", Code: "USERS"},
		},
		Actions: []policy.Action{
			{ID: 20, OrganizationID: 3, Name: "Read", Code: "READ"},
		},
	}
}
