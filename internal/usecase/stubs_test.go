package usecase

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/community-soap/user-service/internal/core/domain"
	"github.com/community-soap/user-service/internal/infra/config"
	"github.com/community-soap/user-service/internal/infra/security"
	"github.com/community-soap/user-service/internal/repository"
	redisrepo "github.com/community-soap/user-service/internal/repository/redis"
)

type stubUserRepository struct {
	users map[int64]domain.User
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{users: make(map[int64]domain.User)}
}

func (r *stubUserRepository) FindByID(_ context.Context, userID int64) (*domain.User, error) {
	if user, ok := r.users[userID]; ok {
		userCopy := user
		return &userCopy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			userCopy := user
			return &userCopy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, user := range r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepository) Save(_ context.Context, user domain.User) error {
	r.users[user.ID] = user
	return nil
}

type stubPasswordVerifier struct{}

func (stubPasswordVerifier) Hash(rawPassword string) (string, error) {
	return "hashed:" + rawPassword, nil
}

func (stubPasswordVerifier) Verify(rawPassword, passwordHash string) (bool, error) {
	return passwordHash == "hashed:"+rawPassword, nil
}

type stubEmailSender struct {
	calls    int
	lastCode string
}

func (s *stubEmailSender) SendVerificationCode(_ context.Context, _ string, code string, _ time.Duration, _ string) error {
	s.calls++
	s.lastCode = code
	return nil
}

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func newTestTokenProvider(t *testing.T) *security.TokenProvider {
	t.Helper()

	provider, err := security.NewTokenProvider(config.JWTSettings{
		AccessSecret:    base64.StdEncoding.EncodeToString([]byte("access-secret-key-for-tests-0001")),
		RefreshSecret:   base64.StdEncoding.EncodeToString([]byte("refresh-secret-key-for-tests-001")),
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 336 * time.Hour,
		ClockSkew:       120 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewTokenProvider returned error: %v", err)
	}
	return provider
}

func newTestTokenHasher(t *testing.T) *security.TokenHasher {
	t.Helper()

	hasher, err := security.NewTokenHasher("test-pepper")
	if err != nil {
		t.Fatalf("NewTokenHasher returned error: %v", err)
	}
	return hasher
}

type sessionFixture struct {
	service  *SessionService
	users    *stubUserRepository
	tokens   *redisrepo.TokenRepository
	provider *security.TokenProvider
	hasher   *security.TokenHasher
	server   *miniredis.Miniredis
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	client, server := newTestRedis(t)
	users := newStubUserRepository()
	tokens := redisrepo.NewTokenRepository(client, "user-service")
	provider := newTestTokenProvider(t)
	hasher := newTestTokenHasher(t)

	service := NewSessionService(users, stubPasswordVerifier{}, tokens, provider, hasher, nil, nil)

	return &sessionFixture{
		service:  service,
		users:    users,
		tokens:   tokens,
		provider: provider,
		hasher:   hasher,
		server:   server,
	}
}

func (f *sessionFixture) addUser(t *testing.T, id int64, email, password string) {
	t.Helper()

	f.users.users[id] = domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "hashed:" + password,
		Nickname:     "tester",
		Role:         domain.RoleUser,
	}
}
