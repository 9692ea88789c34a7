package services

import (
	"context"
	"sort"
	"sync"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

type memLedgerStore struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
	appends int
}

func (s *memLedgerStore) Append(_ context.Context, entry *models.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := entry.Holder(); !ok {
		return models.ErrLedgerHolderMissing
	}
	if (entry.Kind == models.KindSpend || entry.Kind == models.KindRefund) && entry.StudentID != nil && entry.RelatedSessionID != nil {
		for _, e := range s.entries {
			if e.Kind == entry.Kind && e.StudentID != nil && *e.StudentID == *entry.StudentID &&
				e.RelatedSessionID != nil && *e.RelatedSessionID == *entry.RelatedSessionID {
				return models.ErrDuplicateLedgerEntry
			}
		}
	}
	s.entries = append(s.entries, *entry)
	s.appends++
	return nil
}

func (s *memLedgerStore) FindForSession(_ context.Context, kind models.LedgerKind, studentID, sessionID uuid.UUID) (*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Kind == kind && e.StudentID != nil && *e.StudentID == studentID &&
			e.RelatedSessionID != nil && *e.RelatedSessionID == sessionID {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memLedgerStore) SessionEntries(_ context.Context, kind models.LedgerKind, sessionID uuid.UUID) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.Kind == kind && e.RelatedSessionID != nil && *e.RelatedSessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memLedgerStore) Entries(_ context.Context, holder models.Holder, classTypeID *uuid.UUID) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if classTypeID != nil && e.ClassTypeID != *classTypeID {
			continue
		}
		if payer, ok := e.Holder(); !ok || payer != holder {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *memLedgerStore) HolderClassTypes(_ context.Context) ([]models.HolderClassType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[models.HolderClassType]bool)
	var out []models.HolderClassType
	for _, e := range s.entries {
		payer, ok := e.Holder()
		if !ok {
			continue
		}
		p := models.HolderClassType{Holder: payer, ClassTypeID: e.ClassTypeID}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memLedgerStore) count(kind models.LedgerKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type fakeClassAPI struct {
	mu            sync.Mutex
	patches       []models.SchedulePatch
	patchErr      error
	attendance    chan models.AttendanceMark
	attendanceErr error
	slots         []models.AvailabilitySlot
	slotsErr      error
	slotCalls     int
	schedule      *models.ClassSchedule
	scheduleCalls int
}

func newFakeClassAPI() *fakeClassAPI {
	return &fakeClassAPI{attendance: make(chan models.AttendanceMark, 4)}
}

func (f *fakeClassAPI) UpdateClassSchedule(_ context.Context, _ uuid.UUID, patch models.SchedulePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return f.patchErr
}

func (f *fakeClassAPI) MarkAttendance(_ context.Context, _ uuid.UUID, mark models.AttendanceMark) error {
	f.attendance <- mark
	return f.attendanceErr
}

func (f *fakeClassAPI) AvailableSlots(_ context.Context, _ uuid.UUID, _ string, _ uuid.UUID) ([]models.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slotCalls++
	return f.slots, f.slotsErr
}

func (f *fakeClassAPI) ClassSchedule(_ context.Context) (*models.ClassSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleCalls++
	return f.schedule, nil
}

func (f *fakeClassAPI) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

type recordingInvalidator struct {
	mu       sync.Mutex
	sessions int
	holders  []models.Holder
}

func (r *recordingInvalidator) SessionsChanged() {
	r.mu.Lock()
	r.sessions++
	r.mu.Unlock()
}

func (r *recordingInvalidator) LedgerChanged(holders ...models.Holder) {
	r.mu.Lock()
	r.holders = append(r.holders, holders...)
	r.mu.Unlock()
}

type staticClassTypes map[uuid.UUID]models.ClassType

func (s staticClassTypes) ClassType(_ context.Context, id uuid.UUID) (*models.ClassType, error) {
	ct, ok := s[id]
	if !ok {
		return nil, nil
	}
	return &ct, nil
}

type recordingReporter struct {
	mu       sync.Mutex
	balances []models.CreditBalance
}

func (r *recordingReporter) ReportNegativeBalance(b models.CreditBalance) {
	r.mu.Lock()
	r.balances = append(r.balances, b)
	r.mu.Unlock()
}

func scheduledSession(flags models.Permissions) *models.Session {
	student := uuid.New()
	link := "https://meet.example.com/abc"
	return &models.Session{
		ID:                  uuid.New(),
		StartDate:           "2026-10-20",
		StartTime:           "10:00",
		EndTime:             "11:00",
		PrimaryInstructorID: uuid.New(),
		Participant:         models.Participant{StudentID: &student},
		ClassTypeID:         uuid.New(),
		CourseID:            uuid.New(),
		MeetingLink:         &link,
		State:               models.Scheduled{Flags: flags},
	}
}

var allFlags = models.Permissions{CanJoin: true, CanCancel: true, CanReschedule: true}
