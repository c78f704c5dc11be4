package users

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/exthub-go/apperror"
	"github.com/user/exthub-go/auth"
	"github.com/user/exthub-go/config"
)

// memoryRepository is an in-memory Repository for service tests. It enforces
// the same uniqueness rules as the real schema.
type memoryRepository struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: make(map[string]*User)}
}

func (r *memoryRepository) clone(u *User) *User {
	copied := *u
	return &copied
}

func (r *memoryRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	r.users[user.ID] = r.clone(user)
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		return r.clone(user), nil
	}
	return nil, ErrNotFound
}

func (r *memoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return r.clone(user), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return r.clone(user), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepository) FindConflict(ctx context.Context, excludeID string, email, username *string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == excludeID {
			continue
		}
		if email != nil && user.Email == *email {
			return r.clone(user), nil
		}
		if username != nil && user.Username == *username {
			return r.clone(user), nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	for _, existing := range r.users {
		if existing.ID == user.ID {
			continue
		}
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	r.users[user.ID] = r.clone(user)
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryRepository) List(ctx context.Context, limit, offset int) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]User, 0, len(r.users))
	for _, user := range r.users {
		all = append(all, *user)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *memoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func newTestService(t *testing.T) (*Service, *memoryRepository) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(&config.AuthConfig{
		JWTSecret:     "test-secret",
		TokenDuration: time.Hour,
	})
	require.NoError(t, err)
	repo := newMemoryRepository()
	return NewService(repo, issuer), repo
}

func registerUser(t *testing.T, svc *Service, email, username string) *User {
	t.Helper()
	resp, err := svc.Register(context.Background(), CreateUserRequest{
		Email:    email,
		Username: username,
		Password: "password123",
	})
	require.NoError(t, err)
	return resp.User
}

func TestRegister(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	resp, err := svc.Register(context.Background(), CreateUserRequest{
		Email:    "Alice@Example.COM",
		Username: "alice",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.User.ID)
	assert.Equal(t, "alice@example.com", resp.User.Email, "email is normalized to lowercase")
	assert.Equal(t, RoleUser, resp.User.Role)
	assert.NotEqual(t, "password123", resp.User.Password, "password is stored hashed")
	assert.True(t, auth.CheckPassword("password123", resp.User.Password))
	assert.NotEmpty(t, resp.Token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	registerUser(t, svc, "a@x.com", "alice")

	_, err := svc.Register(context.Background(), CreateUserRequest{
		Email:    "a@x.com",
		Username: "bob",
		Password: "password123",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflictError(err))

	appErr, _ := apperror.FromError(err)
	assert.Equal(t, "User with this email already exists", appErr.Message)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	registerUser(t, svc, "a@x.com", "alice")

	_, err := svc.Register(context.Background(), CreateUserRequest{
		Email:    "b@x.com",
		Username: "alice",
		Password: "password123",
	})
	require.Error(t, err)

	appErr, _ := apperror.FromError(err)
	assert.Equal(t, "User with this username already exists", appErr.Message)
}

// When both the email and the username collide, the email conflict wins.
func TestRegister_EmailConflictTakesPriority(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	registerUser(t, svc, "a@x.com", "alice")

	_, err := svc.Register(context.Background(), CreateUserRequest{
		Email:    "a@x.com",
		Username: "alice",
		Password: "password123",
	})
	require.Error(t, err)

	appErr, _ := apperror.FromError(err)
	assert.Equal(t, "User with this email already exists", appErr.Message)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	registerUser(t, svc, "a@x.com", "alice")

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "A@X.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.Token)
}

// An unknown email and a wrong password produce the same error, so login
// failures do not reveal which emails are registered.
func TestLogin_FailuresIndistinguishable(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	registerUser(t, svc, "a@x.com", "alice")

	_, wrongPassword := svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "nope"})
	_, unknownEmail := svc.Login(context.Background(), LoginRequest{Email: "nobody@x.com", Password: "password123"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)

	wrongErr, _ := apperror.FromError(wrongPassword)
	unknownErr, _ := apperror.FromError(unknownEmail)
	assert.Equal(t, apperror.AuthError, wrongErr.Type)
	assert.Equal(t, wrongErr.Message, unknownErr.Message)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdate_Partial(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	first := "Alice"
	updated, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{FirstName: &first})
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", updated.Email, "untouched fields are preserved")
	assert.Equal(t, "alice", updated.Username)
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Alice", *updated.FirstName)
}

func TestUpdate_EmailNormalizedAndChanged(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	email := "New@X.com"
	updated, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", updated.Email)
}

func TestUpdate_ConflictWithOtherUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	registerUser(t, svc, "a@x.com", "alice")
	bob := registerUser(t, svc, "b@x.com", "bob")

	email := "a@x.com"
	_, err := svc.Update(context.Background(), bob.ID, UpdateUserRequest{Email: &email})
	require.Error(t, err)

	appErr, _ := apperror.FromError(err)
	assert.Equal(t, apperror.ConflictError, appErr.Type)
	assert.Equal(t, "User with this email already exists", appErr.Message)

	username := "alice"
	_, err = svc.Update(context.Background(), bob.ID, UpdateUserRequest{Username: &username})
	require.Error(t, err)

	appErr, _ = apperror.FromError(err)
	assert.Equal(t, "User with this username already exists", appErr.Message)
}

// Re-submitting a user's own current values is not a conflict.
func TestUpdate_OwnValuesAreNotAConflict(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	email := "a@x.com"
	username := "alice"
	_, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{Email: &email, Username: &username})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	err := svc.ChangePassword(context.Background(), user.ID, "password123", "newpassword")
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, auth.CheckPassword("password123", stored.Password))
	assert.True(t, auth.CheckPassword("newpassword", stored.Password))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "newpassword"})
	assert.NoError(t, err)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	err := svc.ChangePassword(context.Background(), user.ID, "wrong", "newpassword")
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))

	// The stored hash is untouched.
	stored, err := repo.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("password123", stored.Password))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	require.NoError(t, svc.Delete(context.Background(), user.ID))

	err := svc.Delete(context.Background(), user.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAssignRole(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	updated, err := svc.AssignRole(context.Background(), user.ID, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)

	role, err := svc.RoleByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", role)
}

func TestAssignRole_InvalidRole(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	user := registerUser(t, svc, "a@x.com", "alice")

	_, err := svc.AssignRole(context.Background(), user.ID, Role("SUPERUSER"))
	require.Error(t, err)

	appErr, _ := apperror.FromError(err)
	assert.Equal(t, apperror.BadRequestError, appErr.Type)
}

func TestRoleByID_DeletedUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.RoleByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
}

func TestList_Pagination(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)

	// Seed directly so creation times are deterministic.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		user := &User{
			ID:        string(rune('a' + i)),
			Email:     string(rune('a'+i)) + "@x.com",
			Username:  "user-" + string(rune('a'+i)),
			Password:  "hash",
			Role:      RoleUser,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(context.Background(), user))
	}

	page1, total, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "e", page1[0].ID, "newest first")
	assert.Equal(t, "d", page1[1].ID)

	page3, total, err := svc.List(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page3, 1)
	assert.Equal(t, "a", page3[0].ID)

	empty, _, err := svc.List(context.Background(), 4, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
