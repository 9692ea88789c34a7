package services

import (
	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

// RescheduleDraft holds the reschedule selection for one session. The slot
// selection only ever belongs to the current date and instructor.
type RescheduleDraft struct {
	SessionID    uuid.UUID
	ReasonID     uuid.UUID
	Date         string
	InstructorID uuid.UUID
	Slot         *models.AvailabilitySlot

	locked bool
	today  string
}

// NewRescheduleDraft starts a draft on the session's primary instructor. An
// instructor acting on their own class, as primary or secondary, cannot move
// it to anyone else.
func NewRescheduleDraft(session *models.Session, actor Actor, today string) *RescheduleDraft {
	return &RescheduleDraft{
		SessionID:    session.ID,
		InstructorID: session.PrimaryInstructorID,
		locked:       actor.Role == RoleInstructor,
		today:        today,
	}
}

func (d *RescheduleDraft) InstructorLocked() bool { return d.locked }

func (d *RescheduleDraft) SetReason(id uuid.UUID) error {
	if id == uuid.Nil {
		return Validation("Reason required", "Select a reason for rescheduling.")
	}
	d.ReasonID = id
	return nil
}

// SetDate picks a new date and always clears the chosen slot.
func (d *RescheduleDraft) SetDate(date string) error {
	d.Slot = nil
	if err := ValidateFutureDate(date, d.today); err != nil {
		return err
	}
	d.Date = date
	return nil
}

func (d *RescheduleDraft) SetInstructor(id uuid.UUID) error {
	if id == uuid.Nil || id == d.InstructorID {
		return nil
	}
	if d.locked {
		return Validation("Instructor is fixed", "You can only reschedule your own class to one of your own slots.")
	}
	d.InstructorID = id
	d.Slot = nil
	return nil
}

func (d *RescheduleDraft) SelectSlot(slot models.AvailabilitySlot) error {
	if d.Date == "" {
		return Validation("Date required", "Pick a date before choosing a time.")
	}
	if !slot.IsActive {
		return Validation("Time slot unavailable", "The selected time is not available. Choose an active slot.")
	}
	if _, err := models.NormalizeClock(slot.StartTime); err != nil {
		return Validation("Invalid time", err.Error())
	}
	if _, err := models.NormalizeClock(slot.EndTime); err != nil {
		return Validation("Invalid time", err.Error())
	}
	d.Slot = &slot
	return nil
}

// Validate checks the draft is complete before anything is sent.
func (d *RescheduleDraft) Validate() error {
	if d.ReasonID == uuid.Nil {
		return Validation("Reason required", "Select a reason for rescheduling.")
	}
	if d.Date == "" {
		return Validation("Date required", "Pick a new date for the class.")
	}
	if d.Slot == nil {
		return Validation("Time required", "Pick a new time slot for the class.")
	}
	if !d.Slot.IsActive {
		return Validation("Time slot unavailable", "The selected time is not available. Choose an active slot.")
	}
	return nil
}

// ValidateFutureDate rejects malformed dates and dates before today.
func ValidateFutureDate(date, today string) error {
	if _, err := models.ParseDate(date); err != nil {
		return Validation("Invalid date", "Dates must look like 2006-01-02.")
	}
	if date < today {
		return Validation("Date in the past", "Pick today or a later date.")
	}
	return nil
}
