package services

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

// ClassAPI is the slice of the class backend the lifecycle drives.
type ClassAPI interface {
	UpdateClassSchedule(ctx context.Context, sessionID uuid.UUID, patch models.SchedulePatch) error
	MarkAttendance(ctx context.Context, sessionID uuid.UUID, mark models.AttendanceMark) error
}

type SessionReader interface {
	Schedule(ctx context.Context, actor Actor) (*models.ClassSchedule, error)
}

type SessionRefunder interface {
	Refund(ctx context.Context, sessionID uuid.UUID) ([]models.LedgerEntry, error)
}

// Lifecycle applies cancel, reschedule and join to class sessions. It never
// edits a session locally: it sends the command, waits for the backend, and
// drops cached reads so the next read is fresh.
type Lifecycle struct {
	api         ClassAPI
	reader      SessionReader
	slots       *AvailabilityResolver
	ledger      SessionRefunder
	invalidator Invalidator
	now         func() time.Time

	AttendanceTimeout time.Duration

	mu       sync.Mutex
	inflight map[uuid.UUID]Action
	pending  sync.WaitGroup
}

func NewLifecycle(api ClassAPI, reader SessionReader, slots *AvailabilityResolver, ledger SessionRefunder, invalidator Invalidator) *Lifecycle {
	return &Lifecycle{
		api:               api,
		reader:            reader,
		slots:             slots,
		ledger:            ledger,
		invalidator:       invalidator,
		now:               time.Now,
		AttendanceTimeout: 10 * time.Second,
		inflight:          make(map[uuid.UUID]Action),
	}
}

func (l *Lifecycle) Schedule(ctx context.Context, actor Actor) (*models.ClassSchedule, error) {
	return l.reader.Schedule(ctx, actor)
}

func (l *Lifecycle) Session(ctx context.Context, actor Actor, sessionID uuid.UUID) (*models.Session, error) {
	schedule, err := l.reader.Schedule(ctx, actor)
	if err != nil {
		return nil, err
	}
	session, ok := schedule.Find(sessionID)
	if !ok {
		return nil, NotFound("Class not found", "This class is not in your schedule.")
	}
	return session, nil
}

// Today is the calendar date reschedules are measured against.
func (l *Lifecycle) Today() string {
	return l.now().Format(models.DateLayout)
}

type CancelResult struct {
	SessionID uuid.UUID            `json:"session_id"`
	ReasonID  uuid.UUID            `json:"reason_id"`
	Refunds   []models.LedgerEntry `json:"refunds"`
}

func (l *Lifecycle) Cancel(ctx context.Context, actor Actor, sessionID, reasonID uuid.UUID) (*CancelResult, error) {
	session, err := l.Session(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	return l.CancelSession(ctx, actor, session, reasonID)
}

func (l *Lifecycle) CancelSession(ctx context.Context, actor Actor, session *models.Session, reasonID uuid.UUID) (*CancelResult, error) {
	if d := Decide(session, actor, ActionCancel); !d.Allowed {
		return nil, deniedError(ActionCancel, d)
	}
	if reasonID == uuid.Nil {
		return nil, Validation("Reason required", "Select a reason for cancelling.")
	}

	release, err := l.begin(session.ID, ActionCancel)
	if err != nil {
		return nil, err
	}
	defer release()

	patch := models.SchedulePatch{Reason: reasonID, Status: models.PatchStatusCancelled}
	if err := l.api.UpdateClassSchedule(ctx, session.ID, patch); err != nil {
		log.Printf("🔥 Cancel of session %s rejected: %v", session.ID, err)
		return nil, err
	}
	log.Printf("✅ Session %s cancelled by %s %s", session.ID, actor.Role, actor.ID)
	l.invalidator.SessionsChanged()

	result := &CancelResult{SessionID: session.ID, ReasonID: reasonID}
	refunds, err := l.ledger.Refund(ctx, session.ID)
	if err != nil {
		// The cancellation is confirmed; the reconciler retries the refund.
		log.Printf("🔥 Refund after cancelling session %s failed: %v", session.ID, err)
		return result, nil
	}
	result.Refunds = refunds
	return result, nil
}

type RescheduleRequest struct {
	ReasonID     uuid.UUID
	Date         string
	Slot         models.AvailabilitySlot
	InstructorID uuid.UUID
}

type RescheduleResult struct {
	SessionID    uuid.UUID `json:"session_id"`
	ReasonID     uuid.UUID `json:"reason_id"`
	Date         string    `json:"start_date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	InstructorID uuid.UUID `json:"instructor_id"`
}

func (l *Lifecycle) Reschedule(ctx context.Context, actor Actor, sessionID uuid.UUID, req RescheduleRequest) (*RescheduleResult, error) {
	session, err := l.Session(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	return l.RescheduleSession(ctx, actor, session, req)
}

func (l *Lifecycle) RescheduleSession(ctx context.Context, actor Actor, session *models.Session, req RescheduleRequest) (*RescheduleResult, error) {
	if d := Decide(session, actor, ActionReschedule); !d.Allowed {
		return nil, deniedError(ActionReschedule, d)
	}

	draft := NewRescheduleDraft(session, actor, l.Today())
	if err := draft.SetReason(req.ReasonID); err != nil {
		return nil, err
	}
	if err := draft.SetInstructor(req.InstructorID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Date) == "" {
		return nil, Validation("Date required", "Pick a new date for the class.")
	}
	if err := draft.SetDate(req.Date); err != nil {
		return nil, err
	}
	if err := draft.SelectSlot(req.Slot); err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	release, err := l.begin(session.ID, ActionReschedule)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := l.slots.Revalidate(ctx, draft.InstructorID, draft.Date, session.ID, *draft.Slot); err != nil {
		return nil, err
	}

	start, _ := models.NormalizeClock(draft.Slot.StartTime)
	end, _ := models.NormalizeClock(draft.Slot.EndTime)
	instructor := draft.InstructorID
	patch := models.SchedulePatch{
		Reason:    draft.ReasonID,
		Status:    models.PatchStatusReschedule,
		StartDate: draft.Date,
		StartTime: start,
		EndTime:   end,
	}
	if instructor != session.PrimaryInstructorID {
		patch.PrimaryInstructor = &instructor
	}
	if err := l.api.UpdateClassSchedule(ctx, session.ID, patch); err != nil {
		log.Printf("🔥 Reschedule of session %s rejected: %v", session.ID, err)
		return nil, err
	}
	log.Printf("✅ Session %s rescheduled to %s %s-%s by %s %s", session.ID, draft.Date, start, end, actor.Role, actor.ID)
	l.invalidator.SessionsChanged()

	return &RescheduleResult{
		SessionID:    session.ID,
		ReasonID:     draft.ReasonID,
		Date:         draft.Date,
		StartTime:    start,
		EndTime:      end,
		InstructorID: instructor,
	}, nil
}

func (l *Lifecycle) Join(ctx context.Context, actor Actor, sessionID uuid.UUID) (string, error) {
	session, err := l.Session(ctx, actor, sessionID)
	if err != nil {
		return "", err
	}
	return l.JoinSession(ctx, actor, session)
}

// JoinSession returns the meeting link and records attendance in the
// background. The attendance write never delays or blocks the join.
func (l *Lifecycle) JoinSession(ctx context.Context, actor Actor, session *models.Session) (string, error) {
	if d := Decide(session, actor, ActionJoin); !d.Allowed {
		return "", deniedError(ActionJoin, d)
	}
	if session.MeetingLink == nil || strings.TrimSpace(*session.MeetingLink) == "" {
		return "", Validation("No meeting link", "This class does not have a meeting link yet.")
	}

	mark := models.AttendanceMark{UserID: actor.ID, Present: true, JoinTime: l.now().UTC()}
	bg := context.WithoutCancel(ctx)
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		actx, cancel := context.WithTimeout(bg, l.AttendanceTimeout)
		defer cancel()
		if err := l.api.MarkAttendance(actx, session.ID, mark); err != nil {
			log.Printf("⚠️ Attendance for %s in session %s not recorded: %v", actor.ID, session.ID, err)
		}
	}()

	return *session.MeetingLink, nil
}

// Wait blocks until background attendance writes have finished.
func (l *Lifecycle) Wait() {
	l.pending.Wait()
}

func (l *Lifecycle) begin(sessionID uuid.UUID, action Action) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if current, busy := l.inflight[sessionID]; busy {
		return nil, Conflict("Request already in progress", "A "+string(current)+" request for this class is still being processed.")
	}
	l.inflight[sessionID] = action
	return func() {
		l.mu.Lock()
		delete(l.inflight, sessionID)
		l.mu.Unlock()
	}, nil
}
