// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormBacklogMetricsProvider implements BacklogMetricsProvider using GORM.
// It queries the invoices table directly for aggregated counts.
type GormBacklogMetricsProvider struct {
	db *gorm.DB
}

// NewGormBacklogMetricsProvider creates a new GormBacklogMetricsProvider.
func NewGormBacklogMetricsProvider(db *gorm.DB) *GormBacklogMetricsProvider {
	return &GormBacklogMetricsProvider{db: db}
}

// CountOverdue returns the number of invoices past due that are neither
// paid nor cancelled.
func (p *GormBacklogMetricsProvider) CountOverdue(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("invoices").
		Where("due_date < NOW()").
		Where("status NOT IN ?", []string{"PAID", "CANCELLED"}).
		Count(&count).Error

	return count, err
}

// CountOpen returns the number of invoices that are neither paid nor cancelled.
func (p *GormBacklogMetricsProvider) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("invoices").
		Where("status NOT IN ?", []string{"PAID", "CANCELLED"}).
		Count(&count).Error

	return count, err
}
