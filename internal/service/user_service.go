package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
)

type lawyerDirectory interface {
	FindLawyer(ctx context.Context, id string) (*models.LawyerProfile, error)
	ListLawyers(ctx context.Context, filter models.LawyerFilter) ([]models.LawyerProfile, int, error)
}

// UserService serves the public lawyer directory.
type UserService struct {
	repo   lawyerDirectory
	logger *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo lawyerDirectory, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger}
}

// ListLawyers returns active lawyers and pagination metadata.
func (s *UserService) ListLawyers(ctx context.Context, query dto.LawyerDirectoryQuery) ([]models.LawyerProfile, *models.Pagination, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	lawyers, total, err := s.repo.ListLawyers(ctx, models.LawyerFilter{
		Search:         strings.TrimSpace(query.Search),
		Specialization: strings.TrimSpace(query.Specialization),
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list lawyers")
	}
	return lawyers, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetLawyer returns one lawyer profile.
func (s *UserService) GetLawyer(ctx context.Context, id string) (*models.LawyerProfile, error) {
	lawyer, err := s.repo.FindLawyer(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lawyer not found")
		}
		return nil, appErrors.Internal(err, "failed to load lawyer")
	}
	return lawyer, nil
}
