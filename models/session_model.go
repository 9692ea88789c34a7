package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

type SessionStatus string

const (
	StatusScheduled   SessionStatus = "scheduled"
	StatusOngoing     SessionStatus = "ongoing"
	StatusCompleted   SessionStatus = "completed"
	StatusCancelled   SessionStatus = "cancelled"
	StatusRescheduled SessionStatus = "rescheduled"
)

// Permissions are the server-computed action flags carried on a session.
type Permissions struct {
	CanJoin       bool `json:"can_join"`
	CanCancel     bool `json:"can_cancel"`
	CanReschedule bool `json:"can_reschedule"`
}

// SessionState is one of Scheduled, Ongoing, Completed, Cancelled or
// Rescheduled. Only live states carry permission flags.
type SessionState interface {
	Status() SessionStatus
	Permissions() Permissions
	sessionState()
}

type Scheduled struct {
	Flags              Permissions
	RescheduleReasonID *uuid.UUID
}

type Ongoing struct {
	Flags              Permissions
	RescheduleReasonID *uuid.UUID
}

type Completed struct{}

type Cancelled struct {
	CancellationReasonID uuid.UUID
}

// Rescheduled marks a retired session; its replacement has a new id.
type Rescheduled struct{}

func (Scheduled) Status() SessionStatus   { return StatusScheduled }
func (Ongoing) Status() SessionStatus     { return StatusOngoing }
func (Completed) Status() SessionStatus   { return StatusCompleted }
func (Cancelled) Status() SessionStatus   { return StatusCancelled }
func (Rescheduled) Status() SessionStatus { return StatusRescheduled }

func (s Scheduled) Permissions() Permissions { return s.Flags }
func (s Ongoing) Permissions() Permissions   { return s.Flags }
func (Completed) Permissions() Permissions   { return Permissions{} }
func (Cancelled) Permissions() Permissions   { return Permissions{} }
func (Rescheduled) Permissions() Permissions { return Permissions{} }

func (Scheduled) sessionState()   {}
func (Ongoing) sessionState()     {}
func (Completed) sessionState()   {}
func (Cancelled) sessionState()   {}
func (Rescheduled) sessionState() {}

// Member is one student attending a session and the family that pays for
// their classes, if any.
type Member struct {
	StudentID uuid.UUID  `json:"student_id"`
	FamilyID  *uuid.UUID `json:"family_id,omitempty"`
}

// Participant is either a single student or a group, never both. FamilyID
// belongs to the single student; group members carry their own.
type Participant struct {
	StudentID *uuid.UUID `json:"student_id,omitempty"`
	GroupID   *uuid.UUID `json:"group_id,omitempty"`
	Members   []Member   `json:"members,omitempty"`
	FamilyID  *uuid.UUID `json:"family_id,omitempty"`
}

func (p Participant) IsGroup() bool { return p.GroupID != nil }

// Attendees lists the students that consume credit for the session, each
// with their own paying family.
func (p Participant) Attendees() []Member {
	if p.StudentID != nil {
		return []Member{{StudentID: *p.StudentID, FamilyID: p.FamilyID}}
	}
	return p.Members
}

type Session struct {
	ID                    uuid.UUID
	StartDate             string
	StartTime             string
	EndTime               string
	PrimaryInstructorID   uuid.UUID
	SecondaryInstructorID *uuid.UUID
	Participant           Participant
	ClassTypeID           uuid.UUID
	CourseID              uuid.UUID
	MeetingLink           *string
	State                 SessionState
}

func (s *Session) Status() SessionStatus {
	if s == nil || s.State == nil {
		return ""
	}
	return s.State.Status()
}

func (s *Session) Permissions() Permissions {
	if s == nil || s.State == nil {
		return Permissions{}
	}
	return s.State.Permissions()
}

func (s *Session) IsTerminal() bool {
	switch s.Status() {
	case StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

func (s *Session) HasInstructor(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	if s.PrimaryInstructorID == id {
		return true
	}
	return s.SecondaryInstructorID != nil && *s.SecondaryInstructorID == id
}

func (s *Session) Validate() error {
	if s.ID == uuid.Nil {
		return errors.New("session id is required")
	}
	if s.State == nil {
		return errors.New("session status is required")
	}
	if (s.Participant.StudentID == nil) == (s.Participant.GroupID == nil) {
		return errors.New("session must have exactly one of student or group")
	}
	if _, err := ParseDate(s.StartDate); err != nil {
		return err
	}
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("end time %s must be after start time %s", s.EndTime, s.StartTime)
	}
	return nil
}

type ClassSchedule struct {
	Today    []Session
	Upcoming []Session
}

func (cs *ClassSchedule) Find(id uuid.UUID) (*Session, bool) {
	if cs == nil {
		return nil, false
	}
	for _, list := range [][]Session{cs.Today, cs.Upcoming} {
		for i := range list {
			if list[i].ID == id {
				s := list[i]
				return &s, true
			}
		}
	}
	return nil, false
}

func (cs *ClassSchedule) All() []Session {
	if cs == nil {
		return nil
	}
	out := make([]Session, 0, len(cs.Today)+len(cs.Upcoming))
	out = append(out, cs.Today...)
	return append(out, cs.Upcoming...)
}

// SchedulePatch is the body of PATCH classes/class-schedule/{id}.
type SchedulePatch struct {
	Reason            uuid.UUID  `json:"reason"`
	Status            string     `json:"status"`
	StartDate         string     `json:"start_date,omitempty"`
	StartTime         string     `json:"start_time,omitempty"`
	EndTime           string     `json:"end_time,omitempty"`
	PrimaryInstructor *uuid.UUID `json:"primary_instructor,omitempty"`
}

const (
	PatchStatusCancelled  = "cancelled"
	PatchStatusReschedule = "reschedule"
)

func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return d, nil
}

// ParseClock accepts "15:04" and "15:04:05" wall-clock values.
func ParseClock(value string) (time.Time, error) {
	if t, err := time.Parse(ClockLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("15:04:05", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", value)
	}
	return t, nil
}

// NormalizeClock rewrites a wall-clock value as HH:MM.
func NormalizeClock(value string) (string, error) {
	t, err := ParseClock(value)
	if err != nil {
		return "", err
	}
	return t.Format(ClockLayout), nil
}
