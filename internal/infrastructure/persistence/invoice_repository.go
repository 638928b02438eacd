package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormInvoiceRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an invoice by its ID without associations
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDWithDetails finds an invoice with payments, late fees and reminders loaded
func (r *GormInvoiceRepository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Preload("LateFees").
		Preload("Reminders").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "invoice_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all invoices matching the filter, with a total count for pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	var invoiceModels []models.InvoiceModel

	var total int64
	countQuery := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, total, nil
}

// FindOverdue finds invoices whose due date falls before the given
// instant's calendar date and whose status is not PAID. Payments are
// preloaded so callers can derive the remaining amount.
func (r *GormInvoiceRepository) FindOverdue(ctx context.Context, now time.Time) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("due_date < ? AND status <> ?", startOfDay(now), invoicing.InvoiceStatusPaid).
		Order("id ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindDueWithin finds unpaid invoices due between the given instant's
// calendar date and days from it, inclusive. Payments are preloaded.
func (r *GormInvoiceRepository) FindDueWithin(ctx context.Context, now time.Time, days int) ([]invoicing.Invoice, error) {
	from := startOfDay(now)
	until := from.AddDate(0, 0, days+1)

	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("due_date >= ? AND due_date < ? AND status <> ?", from, until, invoicing.InvoiceStatusPaid).
		Order("id ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice. Pending domain events are written
// to the outbox in the same transaction, then cleared from the aggregate.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	events := invoice.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Payments", "LateFees", "Reminders").Save(model).Error; err != nil {
			return err
		}
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	invoice.ClearDomainEvents()
	return nil
}

// SaveWithLock updates an invoice with optimistic locking (version check).
// Returns ErrConcurrencyConflict if the version has changed. Pending domain
// events are written to the outbox in the same transaction.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	events := invoice.GetDomainEvents()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(model).
			Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
			Updates(model)

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	invoice.ClearDomainEvents()
	return nil
}

// Delete deletes an invoice. Payments, late fees and reminders are
// removed by the ON DELETE CASCADE foreign keys.
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// applyFilter applies filter options including pagination and ordering
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			if s, ok := value.(string); ok {
				query = query.Where("status = ?", strings.ToUpper(s))
			} else {
				query = query.Where("status = ?", value)
			}
		case "customer_name":
			query = query.Where("customer_name = ?", value)
		}
	}

	return query
}

// startOfDay truncates an instant to midnight in its location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
