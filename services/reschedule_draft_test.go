package services

import (
	"errors"
	"testing"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

const today = "2026-10-15"

func TestChangingDateClearsSlot(t *testing.T) {
	session := scheduledSession(allFlags)
	d := NewRescheduleDraft(session, Actor{ID: uuid.New(), Role: RoleAdmin}, today)

	if err := d.SetDate("2026-10-16"); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	if err := d.SelectSlot(models.AvailabilitySlot{StartTime: "10:00", EndTime: "11:00", IsActive: true}); err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if d.Slot == nil {
		t.Fatalf("expected slot to be selected")
	}

	if err := d.SetDate("2026-10-17"); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	if d.Slot != nil {
		t.Fatalf("expected slot cleared after date change, got %+v", d.Slot)
	}

	if err := d.SelectSlot(models.AvailabilitySlot{StartTime: "10:00", EndTime: "11:00", IsActive: true}); err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if err := d.SetDate("2026-10-17"); err != nil {
		t.Fatalf("SetDate: %v", err)
	}
	if d.Slot != nil {
		t.Fatalf("expected slot cleared when the date is picked again")
	}
}

func TestDraftRejectsPastDateAndInactiveSlot(t *testing.T) {
	d := NewRescheduleDraft(scheduledSession(allFlags), Actor{ID: uuid.New(), Role: RoleParent}, today)

	if err := d.SetDate("2026-10-14"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for past date, got %v", err)
	}
	if err := d.SetDate("2026-10-15"); err != nil {
		t.Fatalf("today should be allowed: %v", err)
	}
	if err := d.SelectSlot(models.AvailabilitySlot{StartTime: "10:00", EndTime: "11:00"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for inactive slot, got %v", err)
	}
	if err := d.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected incomplete draft to fail validation, got %v", err)
	}
}

func TestInstructorDraftIsLocked(t *testing.T) {
	session := scheduledSession(allFlags)
	instructor := Actor{ID: session.PrimaryInstructorID, Role: RoleInstructor}
	d := NewRescheduleDraft(session, instructor, today)

	if !d.InstructorLocked() {
		t.Fatalf("expected instructor selector to be locked")
	}
	if err := d.SetInstructor(uuid.New()); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected locked instructor to reject substitution, got %v", err)
	}
	if d.InstructorID != instructor.ID {
		t.Fatalf("instructor changed to %s", d.InstructorID)
	}

	secondary := uuid.New()
	session.SecondaryInstructorID = &secondary
	assistant := NewRescheduleDraft(session, Actor{ID: secondary, Role: RoleInstructor}, today)
	if !assistant.InstructorLocked() || assistant.InstructorID != session.PrimaryInstructorID {
		t.Fatalf("secondary instructor draft must stay on the primary, got %s", assistant.InstructorID)
	}

	admin := NewRescheduleDraft(session, Actor{ID: uuid.New(), Role: RoleAdmin}, today)
	other := uuid.New()
	if err := admin.SetInstructor(other); err != nil {
		t.Fatalf("admin should pick any instructor: %v", err)
	}
	if admin.InstructorID != other {
		t.Fatalf("expected instructor %s, got %s", other, admin.InstructorID)
	}
}
