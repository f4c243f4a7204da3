package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/localpro/backend/internal/models"
	"github.com/localpro/backend/internal/services"
)

// ProviderRepo is the provider persistence surface the registry needs.
type ProviderRepo interface {
	Create(ctx context.Context, p *models.Provider) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Provider, error)
	Update(ctx context.Context, p *models.Provider) error
	ListVerifiedByCategory(ctx context.Context, categoryID uuid.UUID) ([]*models.Provider, error)
}

type RegisterParams struct {
	CategoryID      uuid.UUID
	HourlyRateCents int64
	Latitude        *float64
	Longitude       *float64
}

type Service interface {
	Register(ctx context.Context, accountID uuid.UUID, p RegisterParams) (*models.Provider, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Provider, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, p RegisterParams) (*models.Provider, error)
	ListVerified(ctx context.Context, categoryID uuid.UUID) ([]*models.Provider, error)
}

type service struct {
	repo ProviderRepo
}

func NewService(repo ProviderRepo) *service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

// Register creates the provider profile for an account. New profiles start
// unverified; the verification gate promotes them once documents clear review.
func (s *service) Register(ctx context.Context, accountID uuid.UUID, p RegisterParams) (*models.Provider, error) {
	if p.HourlyRateCents <= 0 {
		return nil, fmt.Errorf("%w: hourly rate must be positive", services.ErrValidation)
	}
	provider := &models.Provider{
		ID:                 uuid.New(),
		AccountID:          accountID,
		CategoryID:         p.CategoryID,
		HourlyRateCents:    p.HourlyRateCents,
		Latitude:           p.Latitude,
		Longitude:          p.Longitude,
		VerificationStatus: models.VerificationUnverified,
	}
	if err := s.repo.Create(ctx, provider); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: account already has a provider profile", services.ErrConflict)
		}
		return nil, err
	}
	return provider, nil
}

func (s *service) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Provider, error) {
	provider, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return provider, nil
}

// UpdateProfile changes rate, category or location. Verification status is
// untouched: a verified provider stays verified across profile edits.
func (s *service) UpdateProfile(ctx context.Context, accountID uuid.UUID, p RegisterParams) (*models.Provider, error) {
	provider, err := s.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if p.HourlyRateCents > 0 {
		provider.HourlyRateCents = p.HourlyRateCents
	}
	if p.CategoryID != uuid.Nil {
		provider.CategoryID = p.CategoryID
	}
	if p.Latitude != nil {
		provider.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		provider.Longitude = p.Longitude
	}
	if err := s.repo.Update(ctx, provider); err != nil {
		return nil, err
	}
	return provider, nil
}

func (s *service) ListVerified(ctx context.Context, categoryID uuid.UUID) ([]*models.Provider, error) {
	return s.repo.ListVerifiedByCategory(ctx, categoryID)
}
