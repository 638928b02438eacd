package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormLateFeeRepository implements LateFeeRepository using GORM
type GormLateFeeRepository struct {
	db *gorm.DB
}

// NewGormLateFeeRepository creates a new GormLateFeeRepository
func NewGormLateFeeRepository(db *gorm.DB) *GormLateFeeRepository {
	return &GormLateFeeRepository{db: db}
}

// FindByID finds a late fee by its ID
func (r *GormLateFeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.LateFee, error) {
	var model models.LateFeeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceID finds all late fees for an invoice, ordered by ID ascending
func (r *GormLateFeeRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LateFee, error) {
	var feeModels []models.LateFeeModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&feeModels).Error; err != nil {
		return nil, err
	}

	fees := make([]invoicing.LateFee, len(feeModels))
	for i, model := range feeModels {
		fees[i] = *model.ToDomain()
	}
	return fees, nil
}

// Save creates or updates a late fee
func (r *GormLateFeeRepository) Save(ctx context.Context, fee *invoicing.LateFee) error {
	model := models.LateFeeModelFromDomain(fee)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a late fee
func (r *GormLateFeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.LateFeeModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
