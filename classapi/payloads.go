package classapi

import (
	"log"
	"strings"

	"github.com/anjiri1684/class_portal/models"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

type schedulePayload struct {
	Today    []sessionPayload `json:"today_classes"`
	Upcoming []sessionPayload `json:"upcoming_classes"`
}

type sessionPayload struct {
	ID                  uuid.UUID       `json:"id"`
	StartDate           string          `json:"start_date"`
	StartTime           string          `json:"start_time"`
	EndTime             string          `json:"end_time"`
	PrimaryInstructor   uuid.UUID       `json:"primary_instructor"`
	SecondaryInstructor *uuid.UUID      `json:"secondary_instructor"`
	Student             *uuid.UUID      `json:"student"`
	Group               *uuid.UUID      `json:"group"`
	GroupMembers        []memberPayload `json:"group_members"`
	Family              *uuid.UUID      `json:"family"`
	ClassType           uuid.UUID       `json:"class_type"`
	Course              uuid.UUID       `json:"course"`
	MeetingLink         *string         `json:"meeting_link"`
	Status              string          `json:"status"`
	CanJoin             bool            `json:"can_join"`
	CanCancel           bool            `json:"can_cancel"`
	CanReschedule       bool            `json:"can_reschedule"`
	CancellationReason  *uuid.UUID      `json:"cancellation_reason"`
	RescheduleReason    *uuid.UUID      `json:"reschedule_reason"`
}

// memberPayload is one group member. Older backends send a bare student id;
// newer ones send the student with the family paying for them.
type memberPayload struct {
	Student uuid.UUID  `json:"student"`
	Family  *uuid.UUID `json:"family"`
}

func (m *memberPayload) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id uuid.UUID
		if err := sonic.Unmarshal(data, &id); err != nil {
			return err
		}
		*m = memberPayload{Student: id}
		return nil
	}
	type plain memberPayload
	var p plain
	if err := sonic.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = memberPayload(p)
	return nil
}

func toMembers(in []memberPayload) []models.Member {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Member, 0, len(in))
	for _, m := range in {
		if m.Student == uuid.Nil {
			continue
		}
		out = append(out, models.Member{StudentID: m.Student, FamilyID: m.Family})
	}
	return out
}

type slotPayload struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	IsActive  bool   `json:"isActive"`
}

type slotsPayload struct {
	TimeSlots []slotPayload `json:"timeSlots"`
}

// toSessions keeps only records that form a valid session. A record the
// portal cannot type is dropped rather than shown with guessed flags.
func toSessions(in []sessionPayload) []models.Session {
	out := make([]models.Session, 0, len(in))
	for _, p := range in {
		s, ok := p.toSession()
		if !ok {
			continue
		}
		if err := s.Validate(); err != nil {
			log.Printf("⚠️ Dropping session %s: %v", p.ID, err)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (p sessionPayload) toSession() (models.Session, bool) {
	flags := models.Permissions{CanJoin: p.CanJoin, CanCancel: p.CanCancel, CanReschedule: p.CanReschedule}

	var state models.SessionState
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "scheduled":
		state = models.Scheduled{Flags: flags, RescheduleReasonID: p.RescheduleReason}
	case "ongoing":
		state = models.Ongoing{Flags: flags, RescheduleReasonID: p.RescheduleReason}
	case "completed":
		state = models.Completed{}
	case "cancelled", "canceled":
		c := models.Cancelled{}
		if p.CancellationReason != nil {
			c.CancellationReasonID = *p.CancellationReason
		}
		state = c
	case "rescheduled":
		state = models.Rescheduled{}
	default:
		log.Printf("⚠️ Dropping session %s with unknown status %q", p.ID, p.Status)
		return models.Session{}, false
	}

	return models.Session{
		ID:                    p.ID,
		StartDate:             p.StartDate,
		StartTime:             p.StartTime,
		EndTime:               p.EndTime,
		PrimaryInstructorID:   p.PrimaryInstructor,
		SecondaryInstructorID: p.SecondaryInstructor,
		Participant: models.Participant{
			StudentID: p.Student,
			GroupID:   p.Group,
			Members:   toMembers(p.GroupMembers),
			FamilyID:  p.Family,
		},
		ClassTypeID: p.ClassType,
		CourseID:    p.Course,
		MeetingLink: p.MeetingLink,
		State:       state,
	}, true
}
