package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Faitltd/FAIT-sub003/services/booking-service/internal/domain"
)

func (r *BookingRepo) CreatePackage(ctx context.Context, p *domain.ServicePackage) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *BookingRepo) PackageByID(ctx context.Context, id string) (*domain.ServicePackage, error) {
	var p domain.ServicePackage
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *BookingRepo) ListPackages(ctx context.Context, agentID string, activeOnly bool) ([]domain.ServicePackage, error) {
	qb := r.db.WithContext(ctx).Model(&domain.ServicePackage{})
	if agentID != "" {
		qb = qb.Where("service_agent_id = ?", agentID)
	}
	if activeOnly {
		qb = qb.Where("active = ?", true)
	}
	var out []domain.ServicePackage
	err := qb.Order("title ASC").Find(&out).Error
	return out, err
}
