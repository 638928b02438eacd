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

// GormReminderRepository implements ReminderRepository using GORM
type GormReminderRepository struct {
	db *gorm.DB
}

// NewGormReminderRepository creates a new GormReminderRepository
func NewGormReminderRepository(db *gorm.DB) *GormReminderRepository {
	return &GormReminderRepository{db: db}
}

// FindByID finds a reminder by its ID
func (r *GormReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Reminder, error) {
	var model models.ReminderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceID finds all reminders for an invoice, ordered by ID ascending
func (r *GormReminderRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Reminder, error) {
	var reminderModels []models.ReminderModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("id ASC").
		Find(&reminderModels).Error; err != nil {
		return nil, err
	}

	reminders := make([]invoicing.Reminder, len(reminderModels))
	for i, model := range reminderModels {
		reminders[i] = *model.ToDomain()
	}
	return reminders, nil
}

// Save creates or updates a reminder
func (r *GormReminderRepository) Save(ctx context.Context, reminder *invoicing.Reminder) error {
	model := models.ReminderModelFromDomain(reminder)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a reminder
func (r *GormReminderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ReminderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
