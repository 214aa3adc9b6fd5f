package auth

import (
	"context"
	"testing"
	"time"

	"github.com/gelatokw/scoops-backend/pkg/auth/session"
	"github.com/gelatokw/scoops-backend/pkg/config"
	"github.com/gelatokw/scoops-backend/pkg/db/models"
	"github.com/gelatokw/scoops-backend/pkg/enums"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	lastLogin    map[uuid.UUID]time.Time
}

func newStubUserRepo(users ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		lastLogin:    make(map[uuid.UUID]time.Time),
	}
	for _, u := range users {
		repo.usersByEmail[u.Email] = u
		repo.usersByID[u.ID] = u
	}
	return repo
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := r.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.usersByID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.lastLogin[id] = at
	return nil
}

type stubSessionManager struct {
	tokensByAccessID map[string]string
	revoked          []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{tokensByAccessID: make(map[string]string)}
}

func (m *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	m.tokensByAccessID[accessID] = token
	return token, nil
}

func (m *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := m.tokensByAccessID[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.tokensByAccessID, oldAccessID)
	newAccessID := uuid.NewString()
	newToken := "refresh-" + newAccessID
	m.tokensByAccessID[newAccessID] = newToken
	return newAccessID, newToken, nil
}

func (m *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	m.revoked = append(m.revoked, accessID)
	delete(m.tokensByAccessID, accessID)
	return nil
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return ""
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "scoops", ExpirationMinutes: 15}
}

func testUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Noor",
		LastName:     "Ali",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	user := testUser(t, "noor@example.com", "s3cret-pass")
	repo := newStubUserRepo(user)
	sessions := newStubSessionManager()

	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: jwtTestConfig()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Noor@Example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Fatal("expected user in response")
	}
	if _, ok := repo.lastLogin[user.ID]; !ok {
		t.Fatal("expected last login recorded")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	user := testUser(t, "noor@example.com", "s3cret-pass")
	svc, err := NewService(ServiceParams{
		UserRepo:       newStubUserRepo(user),
		SessionManager: newStubSessionManager(),
		JWTConfig:      jwtTestConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "noor@example.com", Password: "wrong"})
	if codeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := testUser(t, "noor@example.com", "s3cret-pass")
	user.IsActive = false
	svc, err := NewService(ServiceParams{
		UserRepo:       newStubUserRepo(user),
		SessionManager: newStubSessionManager(),
		JWTConfig:      jwtTestConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "noor@example.com", Password: "s3cret-pass"})
	if codeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	user := testUser(t, "noor@example.com", "s3cret-pass")
	repo := newStubUserRepo(user)
	sessions := newStubSessionManager()

	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: jwtTestConfig()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	login, err := svc.Login(context.Background(), LoginRequest{Email: "noor@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected rotated token pair")
	}
	if resp.RefreshToken == login.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// old refresh token must be dead after rotation
	if _, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	}); codeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized on replay, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	user := testUser(t, "noor@example.com", "s3cret-pass")
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       newStubUserRepo(user),
		SessionManager: sessions,
		JWTConfig:      jwtTestConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.Logout(context.Background(), "access-123"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-123" {
		t.Fatalf("expected revoke call, got %v", sessions.revoked)
	}
}
