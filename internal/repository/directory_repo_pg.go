package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/jackc/pgx/v5"
)

// DirectoryRepository reads the users and services owned by the catalog side
// of the marketplace. The booking core never writes them.
type DirectoryRepository interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

type PGDirectoryRepository struct {
	db DB
}

func NewDirectoryRepository(db DB) DirectoryRepository {
	return &PGDirectoryRepository{db: db}
}

func (r *PGDirectoryRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, `SELECT id, role, name FROM users WHERE id=$1`, id).Scan(&u.ID, &u.Role, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "user %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PGDirectoryRepository) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	var s domain.Service
	err := r.db.QueryRow(ctx, `SELECT id, provider_id, title, price, price_type FROM services WHERE id=$1`, id).
		Scan(&s.ID, &s.ProviderID, &s.Title, &s.UnitPrice, &s.PriceType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Errorf(domain.KindNotFound, "service %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

var _ DirectoryRepository = (*PGDirectoryRepository)(nil)
