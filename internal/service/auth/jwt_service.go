package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

// Claims represents the custom JWT claims used by the application.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// UserID parses the subject back into a user identifier.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return uint(id), nil
}

// JWTService handles generation, validation, and revocation of JWT tokens.
type JWTService struct {
	secret         string
	issuer         string
	accessDuration time.Duration
	cache          ports.Cache
	log            *zap.Logger
	now            func() time.Time
}

// NewJWTService creates a new JWTService instance. cache may be nil, in
// which case tokens cannot be revoked before they expire.
func NewJWTService(secret, issuer string, accessDuration time.Duration, cache ports.Cache, log *zap.Logger) *JWTService {
	log.Info("JWT service initialized",
		zap.Duration("access_duration", accessDuration),
		zap.String("issuer", issuer),
	)

	return &JWTService{
		secret:         secret,
		issuer:         issuer,
		accessDuration: accessDuration,
		cache:          cache,
		log:            log,
		now:            time.Now,
	}
}

// GenerateAccessToken creates a signed HS256 token carrying sub, roles, exp
// and a unique jti.
func (s *JWTService) GenerateAccessToken(user *domain.User) (string, error) {
	jti := uuid.New().String()
	now := s.now()

	roles := make([]string, 0)
	for _, r := range user.RoleList() {
		roles = append(roles, string(r))
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.secret))
	if err != nil {
		s.log.Error("failed to sign access token",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	s.log.Debug("access token generated",
		zap.Uint("user_id", user.ID),
		zap.String("jti", jti),
	)

	return signedToken, nil
}

// ValidateToken parses and validates a JWT token string.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	}, opts...)
	if err != nil {
		s.log.Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// RevokeToken blacklists the token id until the token would have expired.
func (s *JWTService) RevokeToken(ctx context.Context, claims *Claims) error {
	if s.cache == nil {
		return nil
	}

	ttl := s.accessDuration
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.cache.Set(ctx, revokedKey(claims.ID), "revoked", ttl); err != nil {
		s.log.Error("failed to revoke token",
			zap.String("token_id", claims.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.log.Info("token revoked", zap.String("token_id", claims.ID))
	return nil
}

// IsTokenRevoked treats cache failures as not revoked.
func (s *JWTService) IsTokenRevoked(ctx context.Context, tokenID string) bool {
	if s.cache == nil {
		return false
	}
	val, err := s.cache.Get(ctx, revokedKey(tokenID))
	if err != nil {
		return false
	}
	return val == "revoked"
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("fuel:revoked_token:%s", tokenID)
}
