package authclient_test

import (
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("AUTHCLIENT_IDENTITY_URL", "https://auth.example.com")
	t.Setenv("AUTHCLIENT_STORE", "sqlite")
	t.Setenv("AUTHCLIENT_STORE_PATH", "/tmp/session.db")
	t.Setenv("AUTHCLIENT_HTTP_TIMEOUT", "3s")
	t.Setenv("AUTHCLIENT_NAMESPACE", "work")

	cfg, err := authclient.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com", cfg.IdentityURL)
	assert.Equal(t, authclient.StoreDriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/session.db", cfg.StorePath)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Second, cfg.RefreshSkew)
	assert.Equal(t, "https://auth.example.com", cfg.GetPolicyURL())
	assert.Len(t, cfg.ControllerOptions(), 3)
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	t.Setenv("AUTHCLIENT_STORE", "redis")

	_, err := authclient.LoadConfig()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := authclient.Config{
		IdentityURL: "https://auth.example.com",
		StoreDriver: authclient.StoreDriverBolt,
		StorePath:   "session.db",
	}

	tests := []struct {
		name    string
		mutate  func(*authclient.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*authclient.Config) {}},
		{name: "memory needs no path", mutate: func(c *authclient.Config) {
			c.StoreDriver = authclient.StoreDriverMemory
			c.StorePath = ""
		}},
		{name: "bolt needs a path", mutate: func(c *authclient.Config) { c.StorePath = "" }, wantErr: true},
		{name: "missing identity url", mutate: func(c *authclient.Config) { c.IdentityURL = "" }, wantErr: true},
		{name: "bad policy url", mutate: func(c *authclient.Config) { c.PolicyURL = "not a url" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *authclient.Config) { c.HTTPTimeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigPolicyURLOverride(t *testing.T) {
	cfg := authclient.Config{IdentityURL: "https://auth.example.com", PolicyURL: "https://policy.example.com"}
	assert.Equal(t, "https://policy.example.com", cfg.GetPolicyURL())
	assert.Len(t, cfg.ControllerOptions(), 2)
}
