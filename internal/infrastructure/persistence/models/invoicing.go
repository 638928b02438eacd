package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerName  string                  `gorm:"type:varchar(200);not null"`
	Description   string                  `gorm:"type:text"`
	Amount        decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	DueDate       time.Time               `gorm:"not null;index"`
	Status        invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`

	Payments  []PaymentModel  `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	LateFees  []LateFeeModel  `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Reminders []ReminderModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
// Loaded associations are carried over.
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		InvoiceNumber: m.InvoiceNumber,
		CustomerName:  m.CustomerName,
		Description:   m.Description,
		Amount:        m.Amount,
		DueDate:       m.DueDate,
		Status:        m.Status,
	}

	if len(m.Payments) > 0 {
		inv.Payments = make([]invoicing.Payment, len(m.Payments))
		for i, p := range m.Payments {
			inv.Payments[i] = *p.ToDomain()
		}
	}
	if len(m.LateFees) > 0 {
		inv.LateFees = make([]invoicing.LateFee, len(m.LateFees))
		for i, f := range m.LateFees {
			inv.LateFees[i] = *f.ToDomain()
		}
	}
	if len(m.Reminders) > 0 {
		inv.Reminders = make([]invoicing.Reminder, len(m.Reminders))
		for i, rem := range m.Reminders {
			inv.Reminders[i] = *rem.ToDomain()
		}
	}

	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
// Associations are persisted through their own repositories, not here.
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerName = inv.CustomerName
	m.Description = inv.Description
	m.Amount = inv.Amount
	m.DueDate = inv.DueDate
	m.Status = inv.Status
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for Payment entities.
type PaymentModel struct {
	BaseModel
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaymentDate time.Time       `gorm:"not null"`
	Method      string          `gorm:"type:varchar(50)"`
	Reference   string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *invoicing.Payment {
	return &invoicing.Payment{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		Amount:      m.Amount,
		PaymentDate: m.PaymentDate,
		Method:      m.Method,
		Reference:   m.Reference,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *invoicing.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.PaymentDate = p.PaymentDate
	m.Method = p.Method
	m.Reference = p.Reference
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *invoicing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// LateFeeModel is the persistence model for LateFee entities.
type LateFeeModel struct {
	BaseModel
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AppliedDate time.Time       `gorm:"not null;index"`
	Description string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (LateFeeModel) TableName() string {
	return "late_fees"
}

// ToDomain converts the persistence model to a domain LateFee entity.
func (m *LateFeeModel) ToDomain() *invoicing.LateFee {
	return &invoicing.LateFee{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		Amount:      m.Amount,
		AppliedDate: m.AppliedDate,
		Description: m.Description,
	}
}

// FromDomain populates the persistence model from a domain LateFee entity.
func (m *LateFeeModel) FromDomain(f *invoicing.LateFee) {
	m.FromDomainBaseEntity(f.BaseEntity)
	m.InvoiceID = f.InvoiceID
	m.Amount = f.Amount
	m.AppliedDate = f.AppliedDate
	m.Description = f.Description
}

// LateFeeModelFromDomain creates a new persistence model from a domain LateFee.
func LateFeeModelFromDomain(f *invoicing.LateFee) *LateFeeModel {
	m := &LateFeeModel{}
	m.FromDomain(f)
	return m
}

// ReminderModel is the persistence model for Reminder entities.
type ReminderModel struct {
	BaseModel
	InvoiceID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Type      invoicing.ReminderType `gorm:"type:varchar(20);not null"`
	SentDate  time.Time              `gorm:"not null;index"`
	Message   string                 `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ReminderModel) TableName() string {
	return "reminders"
}

// ToDomain converts the persistence model to a domain Reminder entity.
func (m *ReminderModel) ToDomain() *invoicing.Reminder {
	return &invoicing.Reminder{
		BaseEntity: m.BaseModel.ToDomain(),
		InvoiceID:  m.InvoiceID,
		Type:       m.Type,
		SentDate:   m.SentDate,
		Message:    m.Message,
	}
}

// FromDomain populates the persistence model from a domain Reminder entity.
func (m *ReminderModel) FromDomain(rem *invoicing.Reminder) {
	m.FromDomainBaseEntity(rem.BaseEntity)
	m.InvoiceID = rem.InvoiceID
	m.Type = rem.Type
	m.SentDate = rem.SentDate
	m.Message = rem.Message
}

// ReminderModelFromDomain creates a new persistence model from a domain Reminder.
func ReminderModelFromDomain(rem *invoicing.Reminder) *ReminderModel {
	m := &ReminderModel{}
	m.FromDomain(rem)
	return m
}

// AllModels returns every persistence model for schema auto-migration.
func AllModels() []any {
	return []any{
		&InvoiceModel{},
		&PaymentModel{},
		&LateFeeModel{},
		&ReminderModel{},
		&OutboxEntryModel{},
	}
}
