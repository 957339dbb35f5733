package earnings

import (
	"context"

	"github.com/Domenick1991/servicehub/internal/domain"
	"github.com/Domenick1991/servicehub/internal/obs"
	"github.com/Domenick1991/servicehub/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type EarningsUseCase interface {
	GetProviderEarnings(ctx context.Context, providerID int64) (*domain.ProviderEarnings, error)
}

// EarningsService is a read-only view over confirmed payments. Pending and
// failed payments never contribute.
type EarningsService struct {
	payments    repository.PaymentRepository
	directory   repository.DirectoryRepository
	recentLimit int
	tracer      trace.Tracer
}

func NewEarningsService(payments repository.PaymentRepository, directory repository.DirectoryRepository, recentLimit int) *EarningsService {
	return &EarningsService{
		payments:    payments,
		directory:   directory,
		recentLimit: recentLimit,
		tracer:      otel.Tracer("servicehub/earnings"),
	}
}

func (s *EarningsService) GetProviderEarnings(ctx context.Context, providerID int64) (_ *domain.ProviderEarnings, err error) {
	ctx, span := s.tracer.Start(ctx, "earnings.Provider", trace.WithAttributes(attribute.Int64("provider.id", providerID)))
	defer func() { obs.End(span, err) }()

	user, err := s.directory.GetUser(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleProvider {
		return nil, domain.Errorf(domain.KindForbidden, "user %d is not a provider", providerID)
	}

	totals, err := s.payments.ProviderTotals(ctx, providerID)
	if err != nil {
		return nil, err
	}
	recent, err := s.payments.ListConfirmedByProvider(ctx, providerID, s.recentLimit)
	if err != nil {
		return nil, err
	}

	return &domain.ProviderEarnings{
		ProviderID:     providerID,
		EarningsTotals: totals,
		RecentPayments: recent,
	}, nil
}

var _ EarningsUseCase = (*EarningsService)(nil)
