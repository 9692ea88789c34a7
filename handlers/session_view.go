package handlers

import (
	"github.com/anjiri1684/class_portal/models"
	"github.com/anjiri1684/class_portal/services"
	"github.com/google/uuid"
)

// sessionView is a session as one actor sees it. The permission flags are
// the gate's answer for that actor, not the raw backend flags.
type sessionView struct {
	ID                    uuid.UUID            `json:"id"`
	StartDate             string               `json:"start_date"`
	StartTime             string               `json:"start_time"`
	EndTime               string               `json:"end_time"`
	PrimaryInstructorID   uuid.UUID            `json:"primary_instructor_id"`
	SecondaryInstructorID *uuid.UUID           `json:"secondary_instructor_id,omitempty"`
	Participant           models.Participant   `json:"participant"`
	ClassTypeID           uuid.UUID            `json:"class_type_id"`
	CourseID              uuid.UUID            `json:"course_id"`
	MeetingLink           *string              `json:"meeting_link,omitempty"`
	Status                models.SessionStatus `json:"status"`
	CanJoin               bool                 `json:"can_join"`
	CanCancel             bool                 `json:"can_cancel"`
	CanReschedule         bool                 `json:"can_reschedule"`
	CancellationReasonID  *uuid.UUID           `json:"cancellation_reason_id,omitempty"`
	RescheduleReasonID    *uuid.UUID           `json:"reschedule_reason_id,omitempty"`
}

func newSessionView(s *models.Session, actor services.Actor) sessionView {
	v := sessionView{
		ID:                    s.ID,
		StartDate:             s.StartDate,
		StartTime:             s.StartTime,
		EndTime:               s.EndTime,
		PrimaryInstructorID:   s.PrimaryInstructorID,
		SecondaryInstructorID: s.SecondaryInstructorID,
		Participant:           s.Participant,
		ClassTypeID:           s.ClassTypeID,
		CourseID:              s.CourseID,
		MeetingLink:           s.MeetingLink,
		Status:                s.Status(),
		CanJoin:               services.CanAct(s, actor, services.ActionJoin),
		CanCancel:             services.CanAct(s, actor, services.ActionCancel),
		CanReschedule:         services.CanAct(s, actor, services.ActionReschedule),
	}
	switch st := s.State.(type) {
	case models.Cancelled:
		id := st.CancellationReasonID
		v.CancellationReasonID = &id
	case models.Scheduled:
		v.RescheduleReasonID = st.RescheduleReasonID
	case models.Ongoing:
		v.RescheduleReasonID = st.RescheduleReasonID
	}
	return v
}

func sessionViews(sessions []models.Session, actor services.Actor) []sessionView {
	out := make([]sessionView, 0, len(sessions))
	for i := range sessions {
		out = append(out, newSessionView(&sessions[i], actor))
	}
	return out
}
