package remote

import (
	"context"
	"net/http"
	"net/url"

	authclient "github.com/goliatone/go-auth-client"
)

// IdentityClient talks to the identity endpoint.
type IdentityClient struct {
	transport *transport
}

var _ authclient.IdentityEndpoint = (*IdentityClient)(nil)

// NewIdentityClient returns a client for the identity endpoint at baseURL.
// A response with success=false is reported as an authentication error.
func NewIdentityClient(baseURL string, opts ...Option) (*IdentityClient, error) {
	t, err := newTransport("authclient.remote.identity", baseURL, authclient.ErrAuthentication, opts...)
	if err != nil {
		return nil, err
	}
	return &IdentityClient{transport: t}, nil
}

// Login posts credentials to /auth/login.
func (c *IdentityClient) Login(ctx context.Context, credentials authclient.Credentials) (*authclient.LoginResponse, error) {
	resp := &authclient.LoginResponse{}
	message, err := c.transport.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body: map[string]string{
			"email":    credentials.Email,
			"password": credentials.Password,
		},
	}, resp)
	if err != nil {
		return nil, err
	}
	resp.Message = message
	return resp, nil
}

// Me resolves the user owning accessToken through /auth/me.
func (c *IdentityClient) Me(ctx context.Context, accessToken string) (*authclient.User, error) {
	if accessToken == "" {
		return nil, authclient.ErrNoSession.Clone()
	}
	user := &authclient.User{}
	if _, err := c.transport.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/me",
		bearer: accessToken,
	}, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout revokes refreshToken through /auth/logout.
func (c *IdentityClient) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.transport.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/logout",
		query:  url.Values{"refreshToken": []string{refreshToken}},
	}, nil)
	return err
}

// Refresh exchanges refreshToken for a new pair through /auth/refresh.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*authclient.TokenPair, error) {
	if refreshToken == "" {
		return nil, authclient.ErrNoSession.Clone()
	}
	pair := &authclient.TokenPair{}
	if _, err := c.transport.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		query:  url.Values{"refreshToken": []string{refreshToken}},
	}, pair); err != nil {
		return nil, err
	}
	return pair, nil
}
