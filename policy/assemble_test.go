package policy_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-auth-client/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestAssemblePolicy(t *testing.T) {
	p, err := policy.AssemblePolicy(3, 1, 10, 20, catalog(), policy.Draft{
		Description: "admins read users",
		Condition:   strptr("owner == true"),
		Active:      true,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), p.OrganizationID)
	assert.Equal(t, "ADMIN", p.Role.Name)
	assert.Equal(t, "USERS:READ", p.Key())
	assert.True(t, p.HasCondition())
	assert.True(t, p.Active)
}

func TestAssemblePolicyBlankConditionIsDropped(t *testing.T) {
	p, err := policy.AssemblePolicy(3, 1, 10, 20, catalog(), policy.Draft{Condition: strptr("   ")})

	require.NoError(t, err)
	assert.Nil(t, p.Condition)
	assert.False(t, p.HasCondition())
}

func TestAssemblePolicyFailures(t *testing.T) {
	tests := []struct {
		name       string
		orgID      int64
		roleID     int64
		resourceID int64
		actionID   int64
		draft      policy.Draft
		textCode   string
	}{
		{name: "no organization", orgID: 0, roleID: 1, resourceID: 10, actionID: 20, textCode: policy.TextCodeNoOrganization},
		{name: "dangling role", orgID: 3, roleID: 99, resourceID: 10, actionID: 20, textCode: policy.TextCodeUnresolvedRef},
		{name: "dangling resource", orgID: 3, roleID: 1, resourceID: 99, actionID: 20, textCode: policy.TextCodeUnresolvedRef},
		{name: "dangling action", orgID: 3, roleID: 1, resourceID: 10, actionID: 99, textCode: policy.TextCodeUnresolvedRef},
		{name: "inactive role", orgID: 3, roleID: 2, resourceID: 10, actionID: 20, textCode: policy.TextCodeInactiveRef},
		{name: "cross organization role", orgID: 3, roleID: 9, resourceID: 10, actionID: 20, textCode: policy.TextCodeOrganizationScope},
		{name: "cross organization resource", orgID: 3, roleID: 1, resourceID: 19, actionID: 20, textCode: policy.TextCodeOrganizationScope},
		{
			name:   "condition too long",
			orgID:  3,
			roleID: 1, resourceID: 10, actionID: 20,
			draft: policy.Draft{Condition: strptr(strings.Repeat("x", policy.MaxConditionLength+1))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := policy.AssemblePolicy(tt.orgID, tt.roleID, tt.resourceID, tt.actionID, catalog(), tt.draft)

			require.Error(t, err)
			assert.Nil(t, p)
			if tt.textCode != "" {
				assert.Equal(t, tt.textCode, textCode(err))
			}
		})
	}
}

func TestAssemblePolicyErrorsAreValidationErrors(t *testing.T) {
	_, err := policy.AssemblePolicy(3, 99, 10, 20, catalog(), policy.Draft{})
	assert.True(t, policy.IsValidationError(err))
	assert.True(t, policy.IsNotFound(err))

	_, err = policy.AssemblePolicy(0, 1, 10, 20, catalog(), policy.Draft{})
	assert.False(t, policy.IsValidationError(err))
}
