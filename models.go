package authclient

import (
	"bytes"
	"encoding/json"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Credentials are the login inputs.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (c Credentials) Validate() error {
	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Email, validation.Required, is.Email),
			validation.Field(&c.Password, validation.Required),
		)
	}, "invalid login credentials"); verr != nil {
		return verr
	}
	return nil
}

// TokenPair is an access token together with the refresh token minted with it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both tokens are present.
func (p TokenPair) Complete() bool {
	return strings.TrimSpace(p.AccessToken) != "" && strings.TrimSpace(p.RefreshToken) != ""
}

// RoleRef is the role as carried on the session user. The login payload
// sends bare names, the profile payload sends role objects.
type RoleRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts either "ADMIN" or {"id":1,"name":"ADMIN"}.
func (r *RoleRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = RoleRef{Name: name}
		return nil
	}

	var obj struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = RoleRef{ID: obj.ID, Name: obj.Name}
	return nil
}

// User is the authenticated principal held by the session.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	OrganizationID int64     `json:"organizationId"`
	Roles          []RoleRef `json:"roles"`
}

// Validate will run validation rules
func (u *User) Validate() error {
	if u == nil {
		return ErrMalformedPayload.Clone().WithMetadata(map[string]any{
			"reason": "user payload is empty",
		})
	}

	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(u,
			validation.Field(&u.ID, validation.Required, validation.Min(int64(1))),
			validation.Field(&u.Email, validation.Required, is.Email),
			validation.Field(&u.OrganizationID, validation.Required, validation.Min(int64(1))),
		)
	}, "invalid user payload"); verr != nil {
		return verr
	}

	for _, role := range u.Roles {
		if strings.TrimSpace(role.Name) == "" {
			return ErrMalformedPayload.Clone().WithMetadata(map[string]any{
				"reason":  "role without name",
				"user_id": u.ID,
			})
		}
	}

	return nil
}

// HasRole checks if the user holds the named role
func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if strings.EqualFold(role.Name, name) {
			return true
		}
	}
	return false
}

// RoleNames returns the user's role names in payload order.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		out = append(out, role.Name)
	}
	return out
}

// Clone returns a deep copy so snapshots never share slices with the controller.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Roles != nil {
		cp.Roles = append([]RoleRef(nil), u.Roles...)
	}
	return &cp
}

// LoginResponse is the decoded data of a successful login call.
type LoginResponse struct {
	Message        string    `json:"-"`
	AccessToken    string    `json:"accessToken"`
	RefreshToken   string    `json:"refreshToken"`
	UserID         int64     `json:"userId"`
	Email          string    `json:"email"`
	OrganizationID int64     `json:"organizationId"`
	Roles          []RoleRef `json:"roles"`
}

// Tokens returns the token pair carried by the response.
func (r *LoginResponse) Tokens() TokenPair {
	if r == nil {
		return TokenPair{}
	}
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// User builds the session user from the response fields.
func (r *LoginResponse) User() *User {
	if r == nil {
		return nil
	}
	return &User{
		ID:             r.UserID,
		Email:          r.Email,
		OrganizationID: r.OrganizationID,
		Roles:          append([]RoleRef(nil), r.Roles...),
	}
}
