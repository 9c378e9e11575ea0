package policy_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-auth-client/policy"
	"github.com/stretchr/testify/assert"
)

func TestRoleValidate(t *testing.T) {
	tests := []struct {
		name    string
		role    policy.Role
		wantErr bool
	}{
		{name: "valid", role: policy.Role{OrganizationID: 1, Name: "ADMIN", PermissionKeys: []string{"USERS:READ", "POLICIES:*"}}},
		{name: "missing org", role: policy.Role{Name: "ADMIN"}, wantErr: true},
		{name: "missing name", role: policy.Role{OrganizationID: 1}, wantErr: true},
		{name: "long name", role: policy.Role{OrganizationID: 1, Name: strings.Repeat("n", policy.MaxNameLength+1)}, wantErr: true},
		{name: "bad key", role: policy.Role{OrganizationID: 1, Name: "ADMIN", PermissionKeys: []string{"users.read"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.role.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResourceAndActionCodes(t *testing.T) {
	assert.NoError(t, policy.Resource{OrganizationID: 1, Name: "Users", Code: "USERS"}.Validate())
	assert.NoError(t, policy.Action{OrganizationID: 1, Name: "Bulk delete", Code: "BULK_DELETE"}.Validate())

	assert.NoError(t, policy.Resource{OrganizationID: 1, Name: "Users", Code: "users"}.Validate())
	assert.NoError(t, policy.Action{OrganizationID: 3, Name: "Read", Code: "read"}.Validate())
	assert.NoError(t, policy.Action{OrganizationID: 1, Name: "Export", Code: "export-csv"}.Validate())

	assert.Error(t, policy.Resource{OrganizationID: 1, Name: "Users"}.Validate())
	assert.Error(t, policy.Resource{OrganizationID: 1, Name: "Users", Code: "   "}.Validate())
	assert.Error(t, policy.Action{OrganizationID: 1, Name: "Read", Code: strings.Repeat("c", policy.MaxCodeLength+1)}.Validate())
	assert.Error(t, policy.Action{Name: "Read", Code: "READ"}.Validate())
}

func TestPolicyValidateRequiresResolvedReferences(t *testing.T) {
	p := policy.Policy{
		OrganizationID: 3,
		Role:           policy.Role{ID: 1, OrganizationID: 3},
		Resource:       policy.Resource{OrganizationID: 3},
		Action:         policy.Action{ID: 20, OrganizationID: 3},
	}

	err := p.Validate()
	assert.Error(t, err)
	assert.Equal(t, policy.TextCodeUnresolvedRef, textCode(err))
}
