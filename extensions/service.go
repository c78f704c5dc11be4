package extensions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/user/exthub-go/apperror"
)

// Service implements the business rules for extension build records.
type Service struct {
	repo Repository
}

// NewService creates a new extension service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a new build record. A build number that already exists is
// a Conflict, regardless of the other fields. The pre-check is best-effort;
// the unique index on build_number catches concurrent duplicates.
func (s *Service) Create(ctx context.Context, req CreateExtensionRequest) (*Extension, error) {
	if _, err := s.repo.GetByBuildNumber(ctx, req.BuildNumber); err == nil {
		return nil, apperror.NewConflictError("Extension with this build number already exists", nil)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, apperror.NewDatabaseError("failed to check build number uniqueness", err)
	}

	ext := &Extension{
		ID:                   uuid.NewString(),
		BuildNumber:          req.BuildNumber,
		BuildDescription:     req.BuildDescription,
		Author:               req.Author,
		CommitID:             req.CommitID,
		PackedExtensionURL:   req.PackedExtensionURL,
		UnpackedExtensionURL: req.UnpackedExtensionURL,
		CreatedAt:            time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, ext); err != nil {
		if errors.Is(err, ErrDuplicateBuildNumber) {
			return nil, apperror.NewConflictError("Extension with this build number already exists", nil)
		}
		return nil, apperror.NewDatabaseError("failed to create extension", err)
	}
	return ext, nil
}

// GetByID retrieves one build record by id.
func (s *Service) GetByID(ctx context.Context, id string) (*Extension, error) {
	ext, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFoundError("Extension not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get extension", err)
	}
	return ext, nil
}

// GetByBuildNumber retrieves one build record by its build number.
func (s *Service) GetByBuildNumber(ctx context.Context, buildNumber string) (*Extension, error) {
	ext, err := s.repo.GetByBuildNumber(ctx, buildNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFoundError("Extension not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get extension", err)
	}
	return ext, nil
}

// Latest retrieves the most recently created build record.
func (s *Service) Latest(ctx context.Context) (*Extension, error) {
	ext, err := s.repo.Latest(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NewNotFoundError("No extensions found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to get latest extension", err)
	}
	return ext, nil
}

// List returns one page of build records ordered by creation time
// descending, together with the total count. An empty page is a valid
// result, not an error.
func (s *Service) List(ctx context.Context, page, limit int) ([]Extension, int, error) {
	offset := (page - 1) * limit
	list, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperror.NewDatabaseError("failed to list extensions", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, apperror.NewDatabaseError("failed to count extensions", err)
	}
	return list, total, nil
}

// Delete permanently removes a build record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.NewNotFoundError("Extension not found", nil)
		}
		return apperror.NewDatabaseError("failed to delete extension", err)
	}
	return nil
}
