package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/community-soap/user-service/internal/core/domain"
	"github.com/community-soap/user-service/internal/infra/idgen"
	redisrepo "github.com/community-soap/user-service/internal/repository/redis"
)

type userFixture struct {
	service      *UserService
	sessions     *SessionService
	verification *VerificationService
	store        *redisrepo.EmailVerificationRepository
	users        *stubUserRepository
	sender       *stubEmailSender
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	client, _ := newTestRedis(t)
	users := newStubUserRepository()
	sender := &stubEmailSender{}
	hasher := newTestTokenHasher(t)
	provider := newTestTokenProvider(t)

	tokens := redisrepo.NewTokenRepository(client, "user-service")
	store := redisrepo.NewEmailVerificationRepository(client, "EV")

	sessions := NewSessionService(users, stubPasswordVerifier{}, tokens, provider, hasher, nil, nil)
	verification := NewVerificationService(store, users, sender, hasher, testEmailPolicy(), nil, nil)

	ids, err := idgen.NewSnowflake(0)
	if err != nil {
		t.Fatalf("NewSnowflake returned error: %v", err)
	}

	service := NewUserService(users, stubPasswordVerifier{}, verification, sessions, ids, nil)

	return &userFixture{
		service:      service,
		sessions:     sessions,
		verification: verification,
		store:        store,
		users:        users,
		sender:       sender,
	}
}

func (f *userFixture) verifyEmail(t *testing.T, email string) {
	t.Helper()

	ctx := context.Background()
	if _, err := f.verification.RequestCode(ctx, email); err != nil {
		t.Fatalf("RequestCode returned error: %v", err)
	}
	if err := f.verification.VerifyCode(ctx, email, f.sender.lastCode); err != nil {
		t.Fatalf("VerifyCode returned error: %v", err)
	}
}

func TestUserService_SignUpRequiresVerifiedEmail(t *testing.T) {
	f := newUserFixture(t)

	if _, err := f.service.SignUp(context.Background(), "new@example.com", "secret", "nick"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestUserService_SignUp(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	f.verifyEmail(t, "new@example.com")

	user, err := f.service.SignUp(ctx, "new@example.com", "secret", "nick")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected a generated user id")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected role USER, got %s", user.Role)
	}
	if user.PasswordHash != "" {
		t.Fatalf("expected the returned profile to omit the password hash")
	}

	saved := f.users.users[user.ID]
	if saved.PasswordHash != "hashed:secret" {
		t.Fatalf("expected the stored hash, got %q", saved.PasswordHash)
	}

	// The account can sign in right away.
	if _, err := f.sessions.SignIn(ctx, "new@example.com", "secret"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	// The email is claimed now.
	if _, err := f.service.SignUp(ctx, "new@example.com", "other", "nick2"); !errors.Is(err, ErrEmailDuplicated) {
		t.Fatalf("expected ErrEmailDuplicated, got %v", err)
	}
}

func TestUserService_Me(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	f.users.users[77] = domain.User{
		ID:           77,
		Email:        "user@example.com",
		PasswordHash: "hashed:secret",
		Nickname:     "nick",
		Role:         domain.RoleUser,
	}

	user, err := f.service.Me(ctx, 77)
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if user.PasswordHash != "" {
		t.Fatalf("expected the profile to omit the password hash")
	}
	if user.Nickname != "nick" {
		t.Fatalf("expected nickname nick, got %s", user.Nickname)
	}

	if _, err := f.service.Me(ctx, 404); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserService_DeleteMe(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	f.users.users[88] = domain.User{
		ID:           88,
		Email:        "user@example.com",
		PasswordHash: "hashed:secret",
		Role:         domain.RoleUser,
	}

	pair, err := f.sessions.SignIn(ctx, "user@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if err := f.service.DeleteMe(ctx, "Bearer "+pair.AccessToken, 88); err != nil {
		t.Fatalf("DeleteMe returned error: %v", err)
	}

	if _, err := f.sessions.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected the refresh session to be revoked, got %v", err)
	}
	if _, err := f.service.Me(ctx, 88); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after deletion, got %v", err)
	}
	if _, err := f.sessions.SignIn(ctx, "user@example.com", "secret"); !errors.Is(err, ErrEmailNotFound) {
		t.Fatalf("expected a deleted account to reject sign-in, got %v", err)
	}

	// Deleting a deleted account reports not found.
	if err := f.service.DeleteMe(ctx, "", 88); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for a repeated delete, got %v", err)
	}
}

func TestUserService_DeleteUserAsAdmin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	f.users.users[99] = domain.User{
		ID:           99,
		Email:        "target@example.com",
		PasswordHash: "hashed:secret",
		Role:         domain.RoleUser,
	}

	pair, err := f.sessions.SignIn(ctx, "target@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if err := f.service.DeleteUserAsAdmin(ctx, 99); err != nil {
		t.Fatalf("DeleteUserAsAdmin returned error: %v", err)
	}
	if _, err := f.sessions.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected the refresh session to be revoked, got %v", err)
	}
	if _, err := f.service.Me(ctx, 99); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after deactivation, got %v", err)
	}
}
