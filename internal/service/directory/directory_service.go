package directory

import (
	"context"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/repository"
	"go.uber.org/zap"
)

type DirectoryUseCase interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

// Cache returns nil, nil on a miss.
type Cache interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SetUser(ctx context.Context, u *domain.User) error
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	SetService(ctx context.Context, s *domain.Service) error
}

// DirectoryService reads users and services through an optional cache.
// Cache failures degrade to a repository read.
type DirectoryService struct {
	repo   repository.DirectoryRepository
	cache  Cache
	logger *zap.Logger
}

func NewDirectoryService(repo repository.DirectoryRepository, cache Cache, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{repo: repo, cache: cache, logger: logger}
}

func (s *DirectoryService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	if s.cache != nil {
		cached, err := s.cache.GetUser(ctx, id)
		if err != nil {
			s.logger.Warn("user cache read failed", zap.Int64("user_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetUser(ctx, u); err != nil {
			s.logger.Warn("user cache write failed", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	return u, nil
}

func (s *DirectoryService) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	if s.cache != nil {
		cached, err := s.cache.GetService(ctx, id)
		if err != nil {
			s.logger.Warn("service cache read failed", zap.Int64("service_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetService(ctx, svc); err != nil {
			s.logger.Warn("service cache write failed", zap.Int64("service_id", id), zap.Error(err))
		}
	}
	return svc, nil
}

var (
	_ DirectoryUseCase               = (*DirectoryService)(nil)
	_ repository.DirectoryRepository = (*DirectoryService)(nil)
)
