package authclient_test

import (
	"encoding/json"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginResponseDecodesRoleNames(t *testing.T) {
	payload := `{
		"accessToken": "AT1",
		"refreshToken": "RT1",
		"userId": 7,
		"email": "a@co.com",
		"organizationId": 3,
		"roles": ["ADMIN", "VIEWER"]
	}`

	var resp authclient.LoginResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))

	assert.True(t, resp.Tokens().Complete())
	user := resp.User()
	require.NoError(t, user.Validate())
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, int64(3), user.OrganizationID)
	assert.Equal(t, []string{"ADMIN", "VIEWER"}, user.RoleNames())
}

func TestUserDecodesRoleObjects(t *testing.T) {
	payload := `{"id": 7, "email": "a@co.com", "organizationId": 3, "roles": [{"id": 1, "name": "ADMIN"}]}`

	var user authclient.User
	require.NoError(t, json.Unmarshal([]byte(payload), &user))

	require.Len(t, user.Roles, 1)
	assert.Equal(t, authclient.RoleRef{ID: 1, Name: "ADMIN"}, user.Roles[0])
	assert.True(t, user.HasRole("admin"))
	assert.False(t, user.HasRole("viewer"))
}

func TestRoleRefRejectsInvalidJSON(t *testing.T) {
	var ref authclient.RoleRef
	assert.Error(t, json.Unmarshal([]byte(`42`), &ref))
}

func TestUserValidate(t *testing.T) {
	valid := authclient.User{ID: 7, Email: "a@co.com", OrganizationID: 3}

	tests := []struct {
		name    string
		user    *authclient.User
		wantErr bool
	}{
		{name: "valid", user: &valid},
		{name: "nil", user: nil, wantErr: true},
		{name: "missing id", user: &authclient.User{Email: "a@co.com", OrganizationID: 3}, wantErr: true},
		{name: "bad email", user: &authclient.User{ID: 7, Email: "nope", OrganizationID: 3}, wantErr: true},
		{name: "missing organization", user: &authclient.User{ID: 7, Email: "a@co.com"}, wantErr: true},
		{
			name:    "unnamed role",
			user:    &authclient.User{ID: 7, Email: "a@co.com", OrganizationID: 3, Roles: []authclient.RoleRef{{ID: 1}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, authclient.IsValidationError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUserCloneIsDeep(t *testing.T) {
	user := &authclient.User{ID: 7, Roles: []authclient.RoleRef{{Name: "ADMIN"}}}
	cp := user.Clone()
	cp.Roles[0].Name = "VIEWER"

	assert.Equal(t, "ADMIN", user.Roles[0].Name)
	assert.Nil(t, (*authclient.User)(nil).Clone())
}

func TestCredentialsValidate(t *testing.T) {
	assert.NoError(t, authclient.Credentials{Email: "a@co.com", Password: "x"}.Validate())
	assert.Error(t, authclient.Credentials{Email: "a@co.com"}.Validate())
	assert.Error(t, authclient.Credentials{Email: "bad", Password: "x"}.Validate())
}

func TestTokenPairComplete(t *testing.T) {
	assert.True(t, authclient.TokenPair{AccessToken: "a", RefreshToken: "r"}.Complete())
	assert.False(t, authclient.TokenPair{AccessToken: "a"}.Complete())
	assert.False(t, authclient.TokenPair{AccessToken: " ", RefreshToken: "r"}.Complete())
}
