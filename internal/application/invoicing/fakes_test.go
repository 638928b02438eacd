package invoicing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
)

// In-memory repository fakes mirroring the persistence contracts:
// not-found maps to shared.ErrNotFound, scans order by ID ascending,
// FindOverdue and FindDueWithin compare calendar dates and preload
// payments.

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]invoicing.Invoice
	payments *fakePaymentRepo
	fees     *fakeLateFeeRepo
	reminders *fakeReminderRepo

	saveErr error
}

func newFakeInvoiceRepo(payments *fakePaymentRepo, fees *fakeLateFeeRepo, reminders *fakeReminderRepo) *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices:  make(map[uuid.UUID]invoicing.Invoice),
		payments:  payments,
		fees:      fees,
		reminders: reminders,
	}
}

func (r *fakeInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := inv
	return &copied, nil
}

func (r *fakeInvoiceRepo) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Payments, _ = r.payments.FindByInvoiceID(ctx, id)
	if r.fees != nil {
		inv.LateFees, _ = r.fees.FindByInvoiceID(ctx, id)
	}
	if r.reminders != nil {
		inv.Reminders, _ = r.reminders.FindByInvoiceID(ctx, id)
	}
	return inv, nil
}

func (r *fakeInvoiceRepo) FindByNumber(ctx context.Context, number string) (*invoicing.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			copied := inv
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	all := r.sorted()
	return all, int64(len(all)), nil
}

func (r *fakeInvoiceRepo) FindOverdue(ctx context.Context, now time.Time) ([]invoicing.Invoice, error) {
	var result []invoicing.Invoice
	for _, inv := range r.sorted() {
		if inv.DueDate.Before(startOfDay(now)) && inv.Status != invoicing.InvoiceStatusPaid {
			inv.Payments, _ = r.payments.FindByInvoiceID(ctx, inv.ID)
			result = append(result, inv)
		}
	}
	return result, nil
}

func (r *fakeInvoiceRepo) FindDueWithin(ctx context.Context, now time.Time, days int) ([]invoicing.Invoice, error) {
	from := startOfDay(now)
	to := from.AddDate(0, 0, days+1)
	var result []invoicing.Invoice
	for _, inv := range r.sorted() {
		if !inv.DueDate.Before(from) && inv.DueDate.Before(to) && inv.Status != invoicing.InvoiceStatusPaid {
			inv.Payments, _ = r.payments.FindByInvoiceID(ctx, inv.ID)
			result = append(result, inv)
		}
	}
	return result, nil
}

func (r *fakeInvoiceRepo) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.invoices, id)
	r.payments.deleteByInvoice(id)
	if r.fees != nil {
		r.fees.deleteByInvoice(id)
	}
	if r.reminders != nil {
		r.reminders.deleteByInvoice(id)
	}
	return nil
}

func (r *fakeInvoiceRepo) sorted() []invoicing.Invoice {
	all := make([]invoicing.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		all = append(all, inv)
	}
	sort.Slice(all, func(a, b int) bool {
		return all[a].ID.String() < all[b].ID.String()
	})
	return all
}

type fakePaymentRepo struct {
	payments map[uuid.UUID]invoicing.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]invoicing.Payment)}
}

func (r *fakePaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (r *fakePaymentRepo) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	var result []invoicing.Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID.String() < result[b].ID.String()
	})
	return result, nil
}

func (r *fakePaymentRepo) Save(ctx context.Context, payment *invoicing.Payment) error {
	r.payments[payment.ID] = *payment
	return nil
}

func (r *fakePaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.payments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *fakePaymentRepo) deleteByInvoice(invoiceID uuid.UUID) {
	for id, p := range r.payments {
		if p.InvoiceID == invoiceID {
			delete(r.payments, id)
		}
	}
}

type fakeLateFeeRepo struct {
	fees    map[uuid.UUID]invoicing.LateFee
	saveErr error
}

func newFakeLateFeeRepo() *fakeLateFeeRepo {
	return &fakeLateFeeRepo{fees: make(map[uuid.UUID]invoicing.LateFee)}
}

func (r *fakeLateFeeRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.LateFee, error) {
	f, ok := r.fees[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := f
	return &copied, nil
}

func (r *fakeLateFeeRepo) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LateFee, error) {
	var result []invoicing.LateFee
	for _, f := range r.fees {
		if f.InvoiceID == invoiceID {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID.String() < result[b].ID.String()
	})
	return result, nil
}

func (r *fakeLateFeeRepo) Save(ctx context.Context, fee *invoicing.LateFee) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.fees[fee.ID] = *fee
	return nil
}

func (r *fakeLateFeeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.fees[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.fees, id)
	return nil
}

func (r *fakeLateFeeRepo) deleteByInvoice(invoiceID uuid.UUID) {
	for id, f := range r.fees {
		if f.InvoiceID == invoiceID {
			delete(r.fees, id)
		}
	}
}

type fakeReminderRepo struct {
	reminders map[uuid.UUID]invoicing.Reminder
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{reminders: make(map[uuid.UUID]invoicing.Reminder)}
}

func (r *fakeReminderRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Reminder, error) {
	rem, ok := r.reminders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := rem
	return &copied, nil
}

func (r *fakeReminderRepo) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Reminder, error) {
	var result []invoicing.Reminder
	for _, rem := range r.reminders {
		if rem.InvoiceID == invoiceID {
			result = append(result, rem)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID.String() < result[b].ID.String()
	})
	return result, nil
}

func (r *fakeReminderRepo) Save(ctx context.Context, reminder *invoicing.Reminder) error {
	r.reminders[reminder.ID] = *reminder
	return nil
}

func (r *fakeReminderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.reminders[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.reminders, id)
	return nil
}

func (r *fakeReminderRepo) deleteByInvoice(invoiceID uuid.UUID) {
	for id, rem := range r.reminders {
		if rem.InvoiceID == invoiceID {
			delete(r.reminders, id)
		}
	}
}

var (
	_ invoicing.InvoiceRepository  = (*fakeInvoiceRepo)(nil)
	_ invoicing.PaymentRepository  = (*fakePaymentRepo)(nil)
	_ invoicing.LateFeeRepository  = (*fakeLateFeeRepo)(nil)
	_ invoicing.ReminderRepository = (*fakeReminderRepo)(nil)
)
