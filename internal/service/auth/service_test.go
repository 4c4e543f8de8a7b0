package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/mocks"
)

const testSecret = "test-secret-key"

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestService(repo *mocks.MockUserRepository, cache *mocks.MockCache) *Service {
	jwtService := NewJWTService(testSecret, "fuel-control", 15*time.Minute, cache, newTestLogger())
	return NewService(repo, jwtService, newTestLogger())
}

func activeUser(t *testing.T, password string, roles ...domain.UserRole) *domain.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{ID: 7, Name: "Ana", Email: "ana@fleet.test", Password: string(hashed), Active: true}
	u.SetRoles(roles...)
	return u
}

func TestLogin_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	user := activeUser(t, "password123", domain.UserRoleAnalyst)

	mockRepo := &mocks.MockUserRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			if email == "ana@fleet.test" {
				return user, nil
			}
			return nil, nil
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())

	// Act
	token, err := service.Login(ctx, "ana@fleet.test", "password123")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	claims, err := service.jwt.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected a valid token, got %v", err)
	}
	if claims.Subject != "7" {
		t.Errorf("expected subject 7, got %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "analyst" {
		t.Errorf("expected analyst role, got %v", claims.Roles)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}
}

func TestLogin_InvalidEmail(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service := newTestService(&mocks.MockUserRepository{}, mocks.NewMockCache())

	// Act
	_, err := service.Login(ctx, "notfound@fleet.test", "password")

	// Assert
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLogin_InvalidPassword(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "correctpassword")
	mockRepo := &mocks.MockUserRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return user, nil
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())

	_, err := service.Login(ctx, "ana@fleet.test", "wrongpassword")

	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	ctx := context.Background()
	user := activeUser(t, "password123")
	user.Active = false
	mockRepo := &mocks.MockUserRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return user, nil
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())

	_, err := service.Login(ctx, "ana@fleet.test", "password123")

	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	ctx := context.Background()
	mockRepo := &mocks.MockUserRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return nil, errors.New("database error")
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())

	_, err := service.Login(ctx, "ana@fleet.test", "password")

	if err == nil || errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected the repository error to surface, got %v", err)
	}
}

func TestRegister_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	var saved *domain.User
	mockRepo := &mocks.MockUserRepository{
		SaveFunc: func(ctx context.Context, user *domain.User) error {
			user.ID = 12
			saved = user
			return nil
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())
	admin := &domain.User{ID: 1, Roles: "admin"}
	user := &domain.User{Name: "Bruno", Email: " Bruno@Fleet.test "}
	user.SetRoles(domain.UserRoleOperator)

	// Act
	err := service.Register(ctx, admin, user, "s3cret-pass")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if saved == nil {
		t.Fatal("expected user to be saved")
	}
	if saved.Email != "bruno@fleet.test" {
		t.Errorf("expected normalized email, got %q", saved.Email)
	}
	if saved.Password == "s3cret-pass" {
		t.Error("password must be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("s3cret-pass")); err != nil {
		t.Errorf("stored hash does not match: %v", err)
	}
	if !saved.Active {
		t.Error("expected new user to be active")
	}
}

func TestRegister_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	mockRepo := &mocks.MockUserRepository{
		SaveFunc: func(ctx context.Context, user *domain.User) error {
			t.Fatal("must not save")
			return nil
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())

	err := service.Register(ctx, &domain.User{ID: 2, Roles: "operator"}, &domain.User{Email: "x@fleet.test"}, "s3cret-pass")

	var authErr *domain.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&mocks.MockUserRepository{}, mocks.NewMockCache())
	user := &domain.User{Email: "not-an-email", Roles: "driver"}

	err := service.Register(ctx, &domain.User{ID: 1, Roles: "admin"}, user, "short")

	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(valErr.Fields) != 3 {
		t.Errorf("expected email, password and roles failures, got %+v", valErr.Fields)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	mockRepo := &mocks.MockUserRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 3, Email: email}, nil
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())

	err := service.Register(ctx, &domain.User{ID: 1, Roles: "admin"}, &domain.User{Email: "dup@fleet.test"}, "s3cret-pass")

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestValidateToken_Success(t *testing.T) {
	// Arrange
	ctx := context.Background()
	user := activeUser(t, "password123", domain.UserRoleOperator)
	mockRepo := &mocks.MockUserRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, domain.ErrNotFound
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())
	token, err := service.jwt.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	// Act
	got, err := service.ValidateToken(ctx, token)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, got.ID)
	}
}

func TestValidateToken_InvalidToken(t *testing.T) {
	service := newTestService(&mocks.MockUserRepository{}, mocks.NewMockCache())

	_, err := service.ValidateToken(context.Background(), "invalid-token")

	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	// Arrange
	ctx := context.Background()
	service := newTestService(&mocks.MockUserRepository{}, mocks.NewMockCache())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"iss": "fuel-control",
		"exp": time.Now().Add(-1 * time.Hour).Unix(),
	})
	tokenStr, _ := token.SignedString([]byte(testSecret))

	// Act
	_, err := service.ValidateToken(ctx, tokenStr)

	// Assert
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired token, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	service := newTestService(&mocks.MockUserRepository{}, mocks.NewMockCache())
	other := NewJWTService("another-secret", "fuel-control", time.Minute, nil, newTestLogger())
	token, _ := other.GenerateAccessToken(&domain.User{ID: 7})

	_, err := service.ValidateToken(context.Background(), token)

	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	// Arrange
	ctx := context.Background()
	user := activeUser(t, "password123", domain.UserRoleOperator)
	mockRepo := &mocks.MockUserRepository{
		FindByIDFunc: func(ctx context.Context, id uint) (*domain.User, error) {
			return user, nil
		},
	}
	cache := mocks.NewMockCache()
	service := newTestService(mockRepo, cache)
	token, _ := service.jwt.GenerateAccessToken(user)

	// Act
	if err := service.Logout(ctx, token); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	_, err := service.ValidateToken(ctx, token)

	// Assert
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
	if len(cache.Keys()) != 1 {
		t.Errorf("expected one revocation entry, got %v", cache.Keys())
	}
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	var saved []*domain.User
	existing := map[string]*domain.User{}
	mockRepo := &mocks.MockUserRepository{
		FindByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return existing[email], nil
		},
		SaveFunc: func(ctx context.Context, user *domain.User) error {
			saved = append(saved, user)
			existing[user.Email] = user
			return nil
		},
	}
	service := newTestService(mockRepo, mocks.NewMockCache())

	if err := service.EnsureAdmin(ctx, " Admin@Fleet.test ", "bootstrap-pass"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := service.EnsureAdmin(ctx, "admin@fleet.test", "bootstrap-pass"); err != nil {
		t.Fatalf("Expected no error on second call, got %v", err)
	}

	if len(saved) != 1 {
		t.Fatalf("Expected one saved user, got %d", len(saved))
	}
	if saved[0].Email != "admin@fleet.test" || !saved[0].IsAdmin() || !saved[0].Active {
		t.Errorf("Unexpected admin %+v", saved[0])
	}
}
