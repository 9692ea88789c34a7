package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrLedgerImmutable      = errors.New("ledger entries are append-only")
	ErrDuplicateLedgerEntry = errors.New("ledger entry already recorded")
	ErrLedgerHolderMissing  = errors.New("ledger entry must name the holder it is charged to")
)

type LedgerKind string

const (
	KindPurchase LedgerKind = "purchase"
	KindSpend    LedgerKind = "spend"
	KindRefund   LedgerKind = "refund"
	KindBonus    LedgerKind = "bonus"
)

// LedgerEntry is charged to exactly one holder, named by HolderKind. A
// family-funded spend still carries the student who attended, but only the
// family's fold counts it.
type LedgerEntry struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	HolderKind       HolderKind      `gorm:"size:10;not null;index" json:"holder_kind"`
	FamilyID         *uuid.UUID      `gorm:"type:uuid;index" json:"family_id,omitempty"`
	StudentID        *uuid.UUID      `gorm:"type:uuid;index" json:"student_id,omitempty"`
	ClassTypeID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"class_type_id"`
	Delta            int             `gorm:"not null" json:"delta"`
	Kind             LedgerKind      `gorm:"size:20;not null" json:"kind"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	Pricing          datatypes.JSON  `json:"pricing,omitempty"`
	RelatedSessionID *uuid.UUID      `gorm:"type:uuid;index" json:"related_session_id,omitempty"`
	Note             *string         `gorm:"type:text" json:"note,omitempty"`
	RecordedBy       *uuid.UUID      `gorm:"type:uuid" json:"recorded_by,omitempty"`
	Timestamp        time.Time       `gorm:"not null;index" json:"timestamp"`
}

func (LedgerEntry) TableName() string { return "credit_ledger_entries" }

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if _, ok := e.Holder(); !ok {
		return ErrLedgerHolderMissing
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Holder returns the account the entry is charged to.
func (e LedgerEntry) Holder() (Holder, bool) {
	switch {
	case e.HolderKind == HolderFamily && e.FamilyID != nil:
		return FamilyHolder(*e.FamilyID), true
	case e.HolderKind == HolderStudent && e.StudentID != nil:
		return StudentHolder(*e.StudentID), true
	}
	return Holder{}, false
}

func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error { return ErrLedgerImmutable }

func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error { return ErrLedgerImmutable }

type HolderKind string

const (
	HolderFamily  HolderKind = "family"
	HolderStudent HolderKind = "student"
)

// Holder identifies whose credits a balance describes.
type Holder struct {
	Kind HolderKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

func FamilyHolder(id uuid.UUID) Holder  { return Holder{Kind: HolderFamily, ID: id} }
func StudentHolder(id uuid.UUID) Holder { return Holder{Kind: HolderStudent, ID: id} }

func (h Holder) Valid() bool {
	return (h.Kind == HolderFamily || h.Kind == HolderStudent) && h.ID != uuid.Nil
}

type CreditBalance struct {
	Holder      Holder    `json:"holder"`
	ClassTypeID uuid.UUID `json:"class_type_id"`
	Purchased   int       `json:"purchased"`
	Spent       int       `json:"spent"`
	Balance     int       `json:"balance"`
}

func (b CreditBalance) Negative() bool { return b.Balance < 0 }

// HolderClassType is one (holder, class type) pair present in the ledger.
type HolderClassType struct {
	Holder      Holder
	ClassTypeID uuid.UUID
}
