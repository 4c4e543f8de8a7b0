package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

const minPasswordLength = 8

type Service struct {
	userRepo ports.UserRepository
	jwt      *JWTService
	log      *zap.Logger
}

func NewService(userRepo ports.UserRepository, jwt *JWTService, log *zap.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		jwt:      jwt,
		log:      log,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if user == nil || !user.Active {
		return "", domain.ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.Info("Login rejected", zap.Uint("user_id", user.ID))
		return "", domain.ErrUnauthenticated
	}

	return s.jwt.GenerateAccessToken(user)
}

// Register creates a user account. Only administrators may add users.
func (s *Service) Register(ctx context.Context, actor *domain.User, user *domain.User, password string) error {
	if !actor.IsAdmin() {
		return &domain.AuthorizationError{Action: "user.register"}
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	v := &domain.ValidationError{}
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		v.Add("email", "must be a valid address")
	}
	if len(password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("must have at least %d characters", minPasswordLength))
	}
	for _, r := range user.RoleList() {
		if !r.Valid() {
			v.Add("roles", fmt.Sprintf("unknown role %q", r))
		}
	}
	if err := v.OrNil(); err != nil {
		return err
	}

	existing, err := s.userRepo.FindByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return &domain.ConflictError{Message: "a user with this email already exists"}
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPwd)
	user.Active = true

	if err := s.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.log.Info("User registered",
		zap.Uint("user_id", user.ID),
		zap.String("roles", user.Roles),
		zap.Uint("actor_id", actor.ID),
	)
	return nil
}

// ValidateToken resolves a bearer token to an active user. Roles come from
// the database, not the token, so revocations of a role apply at once.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	if s.jwt.IsTokenRevoked(ctx, claims.ID) {
		return nil, domain.ErrUnauthenticated
	}

	id, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return domain.ErrUnauthenticated
	}
	return s.jwt.RevokeToken(ctx, claims)
}

// EnsureAdmin creates an administrator with the given credentials unless
// the address is already registered. Used once at startup.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil
	}

	bootstrap := &domain.User{Name: "bootstrap"}
	bootstrap.SetRoles(domain.UserRoleAdmin)

	admin := &domain.User{Name: "Administrator", Email: email}
	admin.SetRoles(domain.UserRoleAdmin)
	if err := s.Register(ctx, bootstrap, admin, password); err != nil {
		return err
	}
	s.log.Info("Bootstrap administrator created", zap.String("email", email))
	return nil
}
