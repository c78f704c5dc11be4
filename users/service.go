package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/exthub-go/apperror"
	"github.com/user/exthub-go/auth"
)

// Service implements the business rules for user accounts: uniqueness
// policy, credential verification and role management. All persistence goes
// through the injected Repository.
type Service struct {
	repo   Repository
	issuer *auth.TokenIssuer
}

// NewService creates a new user service.
func NewService(repo Repository, issuer *auth.TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

// mapRepoError translates repository sentinels into apperror values.
func mapRepoError(err error, fallback string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperror.NewNotFoundError("User not found", nil)
	case errors.Is(err, ErrDuplicateEmail):
		return apperror.NewConflictError("User with this email already exists", nil)
	case errors.Is(err, ErrDuplicateUsername):
		return apperror.NewConflictError("User with this username already exists", nil)
	default:
		return apperror.NewDatabaseError(fallback, err)
	}
}

// issueToken signs a bearer token for the given user.
func (s *Service) issueToken(user *User) (string, error) {
	token, err := s.issuer.Issue(user.ID, user.Email, user.Username, string(user.Role))
	if err != nil {
		return "", apperror.NewInternalError("failed to issue token", err)
	}
	return token, nil
}

// Register creates a new user account and returns it with a fresh token.
// Email is checked before username, so when both collide the conflict
// reported is the email one. The pre-checks are best-effort: the unique
// indexes remain the authoritative guard, and a constraint violation on
// insert maps to the same Conflict errors.
func (s *Service) Register(ctx context.Context, req CreateUserRequest) (*LoginResponse, error) {
	email := strings.ToLower(req.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.NewConflictError("User with this email already exists", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apperror.NewDatabaseError("failed to check email uniqueness", err)
	}
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperror.NewConflictError("User with this username already exists", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apperror.NewDatabaseError("failed to check username uniqueness", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.NewInternalError("failed to hash password", err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Username:  req.Username,
		Password:  hash,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "failed to create user")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user, Token: token}, nil
}

// Login verifies credentials and returns the user with a fresh token.
// A missing user and a wrong password are deliberately indistinguishable to
// the caller, to avoid leaking which emails are registered.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewAuthError("Invalid credentials", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get user", err)
	}

	if !auth.CheckPassword(req.Password, user.Password) {
		return nil, apperror.NewAuthError("Invalid credentials", nil)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user, Token: token}, nil
}

// Get retrieves a user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "failed to get user")
	}
	return user, nil
}

// Update applies a partial update to a user. When email or username change,
// another user already holding the new value is a Conflict; email conflicts
// take priority over username conflicts.
func (s *Service) Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "failed to get user")
	}

	var newEmail *string
	if req.Email != nil {
		lowered := strings.ToLower(*req.Email)
		newEmail = &lowered
	}

	if newEmail != nil || req.Username != nil {
		conflict, err := s.repo.FindConflict(ctx, id, newEmail, req.Username)
		if err != nil {
			return nil, apperror.NewDatabaseError("failed to check uniqueness", err)
		}
		if conflict != nil {
			if newEmail != nil && conflict.Email == *newEmail {
				return nil, apperror.NewConflictError("User with this email already exists", nil)
			}
			return nil, apperror.NewConflictError("User with this username already exists", nil)
		}
	}

	if newEmail != nil {
		user.Email = *newEmail
	}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "failed to update user")
	}
	return user, nil
}

// ChangePassword verifies the current password and replaces the stored hash.
// A wrong current password leaves the stored hash unchanged.
func (s *Service) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err, "failed to get user")
	}

	if !auth.CheckPassword(currentPassword, user.Password) {
		return apperror.NewAuthError("Current password is incorrect", nil)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperror.NewInternalError("failed to hash password", err)
	}

	user.Password = hash
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return mapRepoError(err, "failed to update password")
	}
	return nil
}

// Delete permanently removes a user account.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "failed to delete user")
	}
	return nil
}

// AssignRole sets a user's role. Any admin-gated caller may change any
// user's role, including their own; there is no sole-admin guard.
func (s *Service) AssignRole(ctx context.Context, userID string, role Role) (*User, error) {
	if !role.Valid() {
		return nil, apperror.NewBadRequestError("invalid role", nil)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "failed to get user")
	}

	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "failed to update role")
	}
	return user, nil
}

// List returns one page of users ordered by creation time descending,
// together with the total count.
func (s *Service) List(ctx context.Context, page, limit int) ([]User, int, error) {
	offset := (page - 1) * limit
	list, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewDatabaseError("failed to list users", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperror.NewDatabaseError("failed to count users", err)
	}
	return list, total, nil
}

// RoleByID implements auth.RoleSource. The admin gate calls this on every
// request because a role may have changed after token issuance. A vanished
// user means the token no longer identifies anyone, which is an
// authentication failure.
func (s *Service) RoleByID(ctx context.Context, id string) (string, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", apperror.NewAuthError("user no longer exists", nil)
		}
		return "", apperror.NewDatabaseError("failed to look up role", err)
	}
	return string(user.Role), nil
}
