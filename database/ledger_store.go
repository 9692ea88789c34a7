package database

import (
	"context"
	"errors"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore keeps credit ledger entries in the portal database. It only
// ever inserts and reads; the model hooks refuse updates and deletes.
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Append inserts entry. A second spend or refund for the same student and
// session hits the partial unique index and reports ErrDuplicateLedgerEntry.
func (s *LedgerStore) Append(ctx context.Context, entry *models.LedgerEntry) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateLedgerEntry
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrDuplicateLedgerEntry
	}
	return nil
}

func (s *LedgerStore) FindForSession(ctx context.Context, kind models.LedgerKind, studentID, sessionID uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("kind = ? AND student_id = ? AND related_session_id = ?", kind, studentID, sessionID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *LedgerStore) SessionEntries(ctx context.Context, kind models.LedgerKind, sessionID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("kind = ? AND related_session_id = ?", kind, sessionID).
		Order("timestamp ASC").
		Find(&entries).Error
	return entries, err
}

// Entries lists the entries charged to holder, newest first, optionally for
// one class type. Entries that only mention the holder are left out.
func (s *LedgerStore) Entries(ctx context.Context, holder models.Holder, classTypeID *uuid.UUID) ([]models.LedgerEntry, error) {
	q := s.db.WithContext(ctx).Model(&models.LedgerEntry{})
	switch holder.Kind {
	case models.HolderFamily:
		q = q.Where("holder_kind = ? AND family_id = ?", holder.Kind, holder.ID)
	case models.HolderStudent:
		q = q.Where("holder_kind = ? AND student_id = ?", holder.Kind, holder.ID)
	default:
		return nil, errors.New("unknown holder kind")
	}
	if classTypeID != nil {
		q = q.Where("class_type_id = ?", *classTypeID)
	}

	var entries []models.LedgerEntry
	if err := q.Order("timestamp DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *LedgerStore) HolderClassTypes(ctx context.Context) ([]models.HolderClassType, error) {
	type pair struct {
		HolderID    uuid.UUID
		ClassTypeID uuid.UUID
	}

	var out []models.HolderClassType
	for _, col := range []struct {
		column string
		kind   models.HolderKind
	}{
		{"family_id", models.HolderFamily},
		{"student_id", models.HolderStudent},
	} {
		var rows []pair
		err := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).
			Select("DISTINCT " + col.column + " AS holder_id, class_type_id").
			Where("holder_kind = ? AND "+col.column+" IS NOT NULL", col.kind).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, models.HolderClassType{
				Holder:      models.Holder{Kind: col.kind, ID: r.HolderID},
				ClassTypeID: r.ClassTypeID,
			})
		}
	}
	return out, nil
}
