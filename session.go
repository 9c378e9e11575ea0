package authclient

import (
	"fmt"
	"strings"
)

// Session is an immutable snapshot of the client-held authentication state.
type Session struct {
	AccessToken   string `json:"-"`
	RefreshToken  string `json:"-"`
	User          *User  `json:"user,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Loading       bool   `json:"loading"`
	State         State  `json:"state"`
}

// HasTokens reports whether the snapshot carries a token pair.
func (s Session) HasTokens() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// Tokens returns the pair held by the snapshot.
func (s Session) Tokens() TokenPair {
	return TokenPair{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// CheckInvariants verifies the token pair rules: both tokens or neither, and
// an authenticated session always has an access token.
func (s Session) CheckInvariants() error {
	hasAccess := s.AccessToken != ""
	hasRefresh := s.RefreshToken != ""

	if hasAccess != hasRefresh {
		return ErrSessionInvariant.Clone().WithMetadata(map[string]any{
			"reason":      "exactly one token present",
			"has_access":  hasAccess,
			"has_refresh": hasRefresh,
		})
	}

	if s.Authenticated && !hasAccess {
		return ErrSessionInvariant.Clone().WithMetadata(map[string]any{
			"reason": "authenticated without access token",
		})
	}

	if s.Authenticated && s.User == nil {
		return ErrSessionInvariant.Clone().WithMetadata(map[string]any{
			"reason": "authenticated without user",
		})
	}

	return nil
}

func (s Session) clone() Session {
	s.User = s.User.Clone()
	return s
}

// String hides token values.
func (s Session) String() string {
	user := "<nil>"
	if s.User != nil {
		user = fmt.Sprintf("%d/%s/org=%d", s.User.ID, s.User.Email, s.User.OrganizationID)
	}
	return fmt.Sprintf(
		"state=%s authenticated=%t loading=%t access=%s refresh=%s user=%s",
		s.State,
		s.Authenticated,
		s.Loading,
		maskToken(s.AccessToken),
		maskToken(s.RefreshToken),
		user,
	)
}

func maskToken(token string) string {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return "<none>"
	case len(token) <= 8:
		return "****"
	default:
		return token[:4] + "****"
	}
}
