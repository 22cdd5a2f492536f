package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/rest/render"
	"github.com/wheresmywater/backend/internal/rest/types"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

const (
	errNoToken      = "No token provided"
	errInvalidToken = "Invalid token"
)

var (
	// ErrMissingSecret indicates the access token secret is not configured.
	ErrMissingSecret = errors.New("access token secret is not configured")
	// ErrInvalidUserID indicates a token whose userId claim is not a UUID.
	ErrInvalidUserID = errors.New("token userId is not a valid id")
)

type identityCtxKey struct{}

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	User   string
}

// Claims are the access token claims.
type Claims struct {
	UserID string `json:"userId"`
	User   string `json:"user,omitempty"`
	jwt.RegisteredClaims
}

// FromContext returns the authenticated identity stored by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(Identity)
	return identity, ok
}

// WithIdentity returns a context carrying identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// Middleware verifies bearer access tokens.
type Middleware struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

// New creates a new auth middleware.
func New(cfg *config.Auth, logger *zap.Logger) (*Middleware, error) {
	if cfg.AccessTokenSecret == "" {
		return nil, ErrMissingSecret
	}

	return &Middleware{
		secret: []byte(cfg.AccessTokenSecret),
		issuer: cfg.Issuer,
		logger: logger.Named("auth_middleware"),
	}, nil
}

// AsRESTMiddleware returns a bunrouter middleware handler that rejects
// requests without a valid access token.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		token := bearerToken(req.Header.Get("Authorization"))
		if token == "" {
			return render.JSON(w, http.StatusUnauthorized, types.ErrorResponse{Error: errNoToken})
		}

		identity, err := m.Verify(token)
		if err != nil {
			m.logger.Debug("Rejected access token", zap.Error(err))
			return render.JSON(w, http.StatusForbidden, types.ErrorResponse{Error: errInvalidToken})
		}

		return next(w, req.WithContext(WithIdentity(req.Context(), identity)))
	}
}

// Verify parses and validates an access token.
func (m *Middleware) Verify(token string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...); err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidUserID, err)
	}

	return Identity{UserID: userID, User: claims.User}, nil
}

// Issue signs an access token for identity that expires after ttl.
func Issue(cfg *config.Auth, identity Identity, ttl time.Duration) (string, error) {
	if cfg.AccessTokenSecret == "" {
		return "", ErrMissingSecret
	}

	now := time.Now()
	claims := Claims{
		UserID: identity.UserID.String(),
		User:   identity.User,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessTokenSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
