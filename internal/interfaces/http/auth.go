package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/reportdesk/internal/application/apperr"
	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/internal/domain/entity"
)

const identityKey = "identity"

var (
	// ErrInvalidToken is returned for tokens that fail verification
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnknownUser is returned when a valid token names a missing user
	ErrUnknownUser = errors.New("user not found")
)

// Claims is the token body shared with the auth service
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens and loads the caller
type Authenticator struct {
	secret    []byte
	directory port.DirectoryRepository
	logger    Logger
}

// NewAuthenticator creates an Authenticator for HS256 tokens signed with secret
func NewAuthenticator(secret string, directory port.DirectoryRepository, logger Logger) *Authenticator {
	return &Authenticator{
		secret:    []byte(secret),
		directory: directory,
		logger:    logger,
	}
}

// Issue signs a token for userID. The auth service issues production
// tokens; this serves local tooling and tests.
func (a *Authenticator) Issue(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify parses token and returns its claims
func (a *Authenticator) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identify verifies token and loads the user it names
func (a *Authenticator) Identify(ctx context.Context, token string) (*entity.Identity, error) {
	claims, err := a.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := a.directory.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", claims.UserID, err)
	}
	if user == nil {
		return nil, ErrUnknownUser
	}

	return &entity.Identity{
		UserID:       user.ID,
		Role:         strings.ToLower(strings.TrimSpace(user.Role)),
		DepartmentID: user.DepartmentID,
		Email:        user.Email,
		FullName:     user.DisplayName(""),
	}, nil
}

// RequireAuth rejects requests without a valid bearer token
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			abort(c, apperr.Authentication("Unauthorized"))
			return
		}
		if !a.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth loads the caller when a token is present. A present but
// invalid token is still rejected.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c.Request); token != "" && !a.authenticate(c, token) {
			return
		}
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context, token string) bool {
	identity, err := a.Identify(c.Request.Context(), token)
	switch {
	case err == nil:
		c.Set(identityKey, identity)
		return true
	case errors.Is(err, ErrUnknownUser):
		abort(c, apperr.Authentication("User not found"))
	case errors.Is(err, ErrInvalidToken):
		abort(c, apperr.Authentication("Invalid token"))
	default:
		a.logger.Error("Failed to authenticate request", "error", err)
		abort(c, apperr.Internal(err))
	}
	return false
}

// RequireRoles rejects authenticated callers holding none of roles
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := currentIdentity(c)
		if identity == nil {
			abort(c, apperr.Authentication("Unauthorized"))
			return
		}
		if !identity.HasRole(roles...) {
			abort(c, apperr.Authorization("Forbidden"))
			return
		}
		c.Next()
	}
}

// currentIdentity returns the caller loaded by the auth middleware, or nil
func currentIdentity(c *gin.Context) *entity.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*entity.Identity)
	return identity
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
