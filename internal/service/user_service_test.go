package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okil-ai/consult-api/internal/dto"
	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
)

type lawyerDirectoryStub struct {
	lawyers    map[string]*models.LawyerProfile
	lastFilter models.LawyerFilter
}

func newLawyerDirectory(ids ...string) *lawyerDirectoryStub {
	stub := &lawyerDirectoryStub{lawyers: map[string]*models.LawyerProfile{}}
	for _, id := range ids {
		stub.lawyers[id] = &models.LawyerProfile{ID: id, FullName: "Lawyer " + id}
	}
	return stub
}

func (s *lawyerDirectoryStub) FindLawyer(ctx context.Context, id string) (*models.LawyerProfile, error) {
	if l, ok := s.lawyers[id]; ok {
		return l, nil
	}
	return nil, sql.ErrNoRows
}

func (s *lawyerDirectoryStub) ListLawyers(ctx context.Context, filter models.LawyerFilter) ([]models.LawyerProfile, int, error) {
	s.lastFilter = filter
	out := make([]models.LawyerProfile, 0, len(s.lawyers))
	for _, l := range s.lawyers {
		out = append(out, *l)
	}
	return out, len(out), nil
}

func TestUserServiceListLawyersDefaultsPaging(t *testing.T) {
	repo := newLawyerDirectory("l1", "l2")
	svc := NewUserService(repo, nil)

	lawyers, pagination, err := svc.ListLawyers(context.Background(), dto.LawyerDirectoryQuery{Search: " family ", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, lawyers, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, "family", repo.lastFilter.Search)
}

func TestUserServiceGetLawyerNotFound(t *testing.T) {
	svc := NewUserService(newLawyerDirectory(), nil)
	_, err := svc.GetLawyer(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
