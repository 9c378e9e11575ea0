package devserver

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

var (
	errTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(goerrors.CodeUnauthorized)
	errTokenMalformed = goerrors.New("token is invalid", goerrors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(goerrors.CodeUnauthorized)
	errRefreshRejected = goerrors.New("refresh token is invalid or revoked", goerrors.CategoryAuth).
				WithTextCode("REFRESH_TOKEN_INVALID").
				WithCode(goerrors.CodeUnauthorized)
)

// AccessClaims are the claims carried by issued access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email          string   `json:"email"`
	OrganizationID int64    `json:"org"`
	Roles          []string `json:"roles,omitempty"`
}

// UserID returns the numeric subject.
func (c *AccessClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

type refreshGrant struct {
	userID    int64
	expiresAt time.Time
}

// tokenIssuer signs access tokens and tracks opaque refresh tokens. Refresh
// tokens rotate: each one can be exchanged once.
type tokenIssuer struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	refresh map[string]refreshGrant
}

func newTokenIssuer(signingKey []byte, issuer string, accessTTL, refreshTTL time.Duration, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		signingKey: signingKey,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		refresh:    map[string]refreshGrant{},
	}
}

// issue mints a new access token and refresh token for account.
func (ti *tokenIssuer) issue(acct *account) (string, string, error) {
	now := ti.now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   strconv.FormatInt(acct.id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
		},
		Email:          acct.email,
		OrganizationID: acct.organizationID,
		Roles:          acct.roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	access, err := token.SignedString(ti.signingKey)
	if err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	refresh := uuid.NewString()
	ti.mu.Lock()
	ti.refresh[refresh] = refreshGrant{userID: acct.id, expiresAt: now.Add(ti.refreshTTL)}
	ti.mu.Unlock()

	return access, refresh, nil
}

// validate parses and validates an access token.
func (ti *tokenIssuer) validate(raw string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ti.signingKey, nil
	},
		jwt.WithIssuer(ti.issuer),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, goerrors.Wrap(err, errTokenMalformed.Category, errTokenMalformed.Message).
			WithTextCode(errTokenMalformed.TextCode).
			WithCode(errTokenMalformed.Code)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, errTokenMalformed
	}
	return claims, nil
}

// consume redeems a refresh token, removing it.
func (ti *tokenIssuer) consume(refresh string) (int64, error) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	grant, ok := ti.refresh[refresh]
	if !ok {
		return 0, errRefreshRejected
	}
	delete(ti.refresh, refresh)

	if !ti.now().Before(grant.expiresAt) {
		return 0, errRefreshRejected
	}
	return grant.userID, nil
}

// revoke drops a refresh token. Unknown tokens are ignored.
func (ti *tokenIssuer) revoke(refresh string) bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	_, ok := ti.refresh[refresh]
	delete(ti.refresh, refresh)
	return ok
}

func (ti *tokenIssuer) outstanding() int {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return len(ti.refresh)
}
