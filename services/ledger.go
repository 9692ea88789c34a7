package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var hundred = decimal.NewFromInt(100)

// LedgerStore persists ledger entries. Append must reject a second spend or
// refund for the same (student, session) with models.ErrDuplicateLedgerEntry.
type LedgerStore interface {
	Append(ctx context.Context, entry *models.LedgerEntry) error
	FindForSession(ctx context.Context, kind models.LedgerKind, studentID, sessionID uuid.UUID) (*models.LedgerEntry, error)
	SessionEntries(ctx context.Context, kind models.LedgerKind, sessionID uuid.UUID) ([]models.LedgerEntry, error)
	Entries(ctx context.Context, holder models.Holder, classTypeID *uuid.UUID) ([]models.LedgerEntry, error)
	HolderClassTypes(ctx context.Context) ([]models.HolderClassType, error)
}

type ClassTypeResolver interface {
	ClassType(ctx context.Context, id uuid.UUID) (*models.ClassType, error)
}

type IntegrityReporter interface {
	ReportNegativeBalance(balance models.CreditBalance)
}

type Ledger struct {
	store       LedgerStore
	classTypes  ClassTypeResolver
	reporter    IntegrityReporter
	invalidator Invalidator
	now         func() time.Time
}

func NewLedger(store LedgerStore, classTypes ClassTypeResolver, reporter IntegrityReporter, invalidator Invalidator) *Ledger {
	return &Ledger{
		store:       store,
		classTypes:  classTypes,
		reporter:    reporter,
		invalidator: invalidator,
		now:         time.Now,
	}
}

type PriceQuote struct {
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	FinalPrice      decimal.Decimal `json:"final_price"`
}

// Quote prices a purchase. Money is informational; credits drive consumption.
func Quote(unitPrice decimal.Decimal, quantity int, discountPercent decimal.Decimal) PriceQuote {
	original := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	discount := original.Mul(discountPercent).Div(hundred).Round(2)
	return PriceQuote{
		UnitPrice:       unitPrice,
		Quantity:        quantity,
		OriginalPrice:   original,
		DiscountPercent: discountPercent,
		Discount:        discount,
		FinalPrice:      original.Sub(discount),
	}
}

type PurchaseInput struct {
	Holder          models.Holder
	StudentID       *uuid.UUID
	ClassTypeID     uuid.UUID
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	RecordedBy      uuid.UUID
}

func (l *Ledger) Purchase(ctx context.Context, in PurchaseInput) ([]models.LedgerEntry, error) {
	if in.Quantity < 1 {
		return nil, Validation("Invalid quantity", "At least one credit must be purchased.")
	}
	if !in.Holder.Valid() {
		return nil, Validation("Invalid holder", "A family or student is required.")
	}
	if in.UnitPrice.IsNegative() {
		return nil, Validation("Invalid price", "Unit price cannot be negative.")
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return nil, Validation("Invalid discount", "Discount must be between 0 and 100 percent.")
	}
	if err := l.resolveClassType(ctx, in.ClassTypeID); err != nil {
		return nil, err
	}

	quote := Quote(in.UnitPrice, in.Quantity, in.DiscountPercent)
	pricing, err := json.Marshal(quote)
	if err != nil {
		return nil, err
	}

	entry := l.newEntry(in.Holder, in.ClassTypeID, models.KindPurchase, in.Quantity)
	if in.StudentID != nil && in.Holder.Kind == models.HolderFamily {
		entry.StudentID = in.StudentID
	}
	entry.Amount = quote.FinalPrice
	entry.Pricing = datatypes.JSON(pricing)
	entry.RecordedBy = nonNil(in.RecordedBy)

	if err := l.store.Append(ctx, &entry); err != nil {
		return nil, err
	}
	log.Printf("✅ Recorded purchase of %d credit(s) for %s %s (final price %s)", in.Quantity, in.Holder.Kind, in.Holder.ID, quote.FinalPrice)
	l.ledgerChanged(holdersOf(entry)...)
	return []models.LedgerEntry{entry}, nil
}

type SpendInput struct {
	StudentID   uuid.UUID
	FamilyID    *uuid.UUID
	ClassTypeID uuid.UUID
	SessionID   uuid.UUID
}

// Spend consumes one credit for a completed session. The credit comes from
// the student's family when one is given, otherwise from the student.
// Repeating it for the same (student, session) returns the original entry.
func (l *Ledger) Spend(ctx context.Context, in SpendInput) (*models.LedgerEntry, error) {
	if in.StudentID == uuid.Nil || in.SessionID == uuid.Nil || in.ClassTypeID == uuid.Nil {
		return nil, Validation("Invalid spend", "Student, session and class type are required.")
	}
	existing, err := l.store.FindForSession(ctx, models.KindSpend, in.StudentID, in.SessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	payer := models.StudentHolder(in.StudentID)
	if in.FamilyID != nil && *in.FamilyID != uuid.Nil {
		payer = models.FamilyHolder(*in.FamilyID)
	}
	entry := l.newEntry(payer, in.ClassTypeID, models.KindSpend, -1)
	student := in.StudentID
	entry.StudentID = &student
	sessionID := in.SessionID
	entry.RelatedSessionID = &sessionID

	if err := l.store.Append(ctx, &entry); err != nil {
		if errors.Is(err, models.ErrDuplicateLedgerEntry) {
			return l.store.FindForSession(ctx, models.KindSpend, in.StudentID, in.SessionID)
		}
		return nil, err
	}
	l.ledgerChanged(holdersOf(entry)...)
	return &entry, nil
}

// Refund reverses every spend recorded for the session that has not been
// reversed yet. A session that was never consumed yields no entries.
func (l *Ledger) Refund(ctx context.Context, sessionID uuid.UUID) ([]models.LedgerEntry, error) {
	spends, err := l.store.SessionEntries(ctx, models.KindSpend, sessionID)
	if err != nil {
		return nil, err
	}

	var refunds []models.LedgerEntry
	for _, spend := range spends {
		if spend.StudentID == nil {
			continue
		}
		prior, err := l.store.FindForSession(ctx, models.KindRefund, *spend.StudentID, sessionID)
		if err != nil {
			return refunds, err
		}
		if prior != nil {
			continue
		}

		payer, ok := spend.Holder()
		if !ok {
			log.Printf("⚠️ Spend %s for session %s names no holder, skipping refund", spend.ID, sessionID)
			continue
		}
		refund := l.newEntry(payer, spend.ClassTypeID, models.KindRefund, -spend.Delta)
		refund.StudentID = spend.StudentID
		refund.FamilyID = spend.FamilyID
		sid := sessionID
		refund.RelatedSessionID = &sid

		if err := l.store.Append(ctx, &refund); err != nil {
			if errors.Is(err, models.ErrDuplicateLedgerEntry) {
				continue
			}
			return refunds, err
		}
		refunds = append(refunds, refund)
		l.ledgerChanged(holdersOf(refund)...)
	}
	if len(refunds) > 0 {
		log.Printf("✅ Refunded %d credit(s) for session %s", len(refunds), sessionID)
	}
	return refunds, nil
}

type BonusInput struct {
	Holder      models.Holder
	ClassTypeID uuid.UUID
	Quantity    int
	Note        string
	RecordedBy  uuid.UUID
}

func (l *Ledger) Bonus(ctx context.Context, in BonusInput) (*models.LedgerEntry, error) {
	if in.Quantity < 1 {
		return nil, Validation("Invalid quantity", "A bonus must grant at least one credit.")
	}
	if !in.Holder.Valid() {
		return nil, Validation("Invalid holder", "A family or student is required.")
	}
	if err := l.resolveClassType(ctx, in.ClassTypeID); err != nil {
		return nil, err
	}

	entry := l.newEntry(in.Holder, in.ClassTypeID, models.KindBonus, in.Quantity)
	if in.Note != "" {
		note := in.Note
		entry.Note = &note
	}
	entry.RecordedBy = nonNil(in.RecordedBy)
	if err := l.store.Append(ctx, &entry); err != nil {
		return nil, err
	}
	l.ledgerChanged(holdersOf(entry)...)
	return &entry, nil
}

// Balance folds the holder's entries for one class type. A negative result
// is reported, never clamped.
func (l *Ledger) Balance(ctx context.Context, holder models.Holder, classTypeID uuid.UUID) (models.CreditBalance, error) {
	entries, err := l.store.Entries(ctx, holder, &classTypeID)
	if err != nil {
		return models.CreditBalance{}, err
	}
	b := Fold(holder, classTypeID, entries)
	l.checkIntegrity(b)
	return b, nil
}

// Overview folds every class type the holder has entries for.
func (l *Ledger) Overview(ctx context.Context, holder models.Holder) ([]models.CreditBalance, error) {
	entries, err := l.store.Entries(ctx, holder, nil)
	if err != nil {
		return nil, err
	}
	byType := make(map[uuid.UUID][]models.LedgerEntry)
	var order []uuid.UUID
	for _, e := range entries {
		if _, seen := byType[e.ClassTypeID]; !seen {
			order = append(order, e.ClassTypeID)
		}
		byType[e.ClassTypeID] = append(byType[e.ClassTypeID], e)
	}

	out := make([]models.CreditBalance, 0, len(order))
	for _, ct := range order {
		b := Fold(holder, ct, byType[ct])
		l.checkIntegrity(b)
		out = append(out, b)
	}
	return out, nil
}

func (l *Ledger) History(ctx context.Context, holder models.Holder, classTypeID *uuid.UUID) ([]models.LedgerEntry, error) {
	return l.store.Entries(ctx, holder, classTypeID)
}

// NegativeBalances folds every (holder, class type) in the ledger and
// returns the ones below zero.
func (l *Ledger) NegativeBalances(ctx context.Context) ([]models.CreditBalance, error) {
	pairs, err := l.store.HolderClassTypes(ctx)
	if err != nil {
		return nil, err
	}
	var negative []models.CreditBalance
	for _, p := range pairs {
		b, err := l.Balance(ctx, p.Holder, p.ClassTypeID)
		if err != nil {
			return negative, err
		}
		if b.Negative() {
			negative = append(negative, b)
		}
	}
	return negative, nil
}

// Fold is the only way a balance is derived.
func Fold(holder models.Holder, classTypeID uuid.UUID, entries []models.LedgerEntry) models.CreditBalance {
	b := models.CreditBalance{Holder: holder, ClassTypeID: classTypeID}
	for _, e := range entries {
		if e.ClassTypeID != classTypeID {
			continue
		}
		if e.Delta > 0 {
			b.Purchased += e.Delta
		} else {
			b.Spent += -e.Delta
		}
	}
	b.Balance = b.Purchased - b.Spent
	return b
}

func (l *Ledger) checkIntegrity(b models.CreditBalance) {
	if !b.Negative() {
		return
	}
	log.Printf("[INTEGRITY] negative credit balance %d for %s %s class type %s", b.Balance, b.Holder.Kind, b.Holder.ID, b.ClassTypeID)
	if l.reporter != nil {
		l.reporter.ReportNegativeBalance(b)
	}
}

func (l *Ledger) resolveClassType(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return Validation("Class type required", "Select a class type.")
	}
	if l.classTypes == nil {
		return nil
	}
	ct, err := l.classTypes.ClassType(ctx, id)
	if err != nil {
		return err
	}
	if ct == nil {
		return Validation("Unknown class type", "The selected class type does not exist.")
	}
	return nil
}

func (l *Ledger) newEntry(holder models.Holder, classTypeID uuid.UUID, kind models.LedgerKind, delta int) models.LedgerEntry {
	e := models.LedgerEntry{
		ID:          uuid.New(),
		ClassTypeID: classTypeID,
		Delta:       delta,
		Kind:        kind,
		HolderKind:  holder.Kind,
		Timestamp:   l.now().UTC(),
	}
	id := holder.ID
	if holder.Kind == models.HolderFamily {
		e.FamilyID = &id
	} else {
		e.StudentID = &id
	}
	return e
}

func (l *Ledger) ledgerChanged(holders ...models.Holder) {
	if l.invalidator != nil {
		l.invalidator.LedgerChanged(holders...)
	}
}

func holdersOf(e models.LedgerEntry) []models.Holder {
	var hs []models.Holder
	if e.StudentID != nil {
		hs = append(hs, models.StudentHolder(*e.StudentID))
	}
	if e.FamilyID != nil {
		hs = append(hs, models.FamilyHolder(*e.FamilyID))
	}
	return hs
}

func nonNil(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
