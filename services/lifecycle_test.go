package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

type lifecycleFixture struct {
	lc          *Lifecycle
	api         *fakeClassAPI
	ledger      *Ledger
	store       *memLedgerStore
	invalidator *recordingInvalidator
	session     *models.Session
}

func newLifecycleFixture(flags models.Permissions) *lifecycleFixture {
	session := scheduledSession(flags)
	api := newFakeClassAPI()
	api.schedule = &models.ClassSchedule{Upcoming: []models.Session{*session}}

	store := &memLedgerStore{}
	inv := &recordingInvalidator{}
	ledger := NewLedger(store, staticClassTypes{session.ClassTypeID: {ID: session.ClassTypeID}}, nil, inv)
	reads := NewReadModels(api, time.Minute)

	lc := NewLifecycle(api, reads, NewAvailabilityResolver(api), ledger, inv)
	lc.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }

	return &lifecycleFixture{lc: lc, api: api, ledger: ledger, store: store, invalidator: inv, session: session}
}

func TestCancelWithoutFlagSendsNothing(t *testing.T) {
	f := newLifecycleFixture(models.Permissions{CanJoin: true, CanReschedule: true})

	_, err := f.lc.Cancel(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, uuid.New())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if f.api.patchCount() != 0 {
		t.Fatalf("expected no PATCH, got %d", f.api.patchCount())
	}
}

func TestCancelRequiresReason(t *testing.T) {
	f := newLifecycleFixture(allFlags)

	_, err := f.lc.Cancel(context.Background(), Actor{ID: uuid.New(), Role: RoleParent}, f.session.ID, uuid.Nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.api.patchCount() != 0 {
		t.Fatalf("expected no PATCH, got %d", f.api.patchCount())
	}
}

func TestCancelRefundsConsumedCredit(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	ctx := context.Background()
	student := *f.session.Participant.StudentID

	if _, err := f.ledger.Spend(ctx, SpendInput{StudentID: student, ClassTypeID: f.session.ClassTypeID, SessionID: f.session.ID}); err != nil {
		t.Fatalf("Spend: %v", err)
	}

	reason := uuid.New()
	res, err := f.lc.Cancel(ctx, Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, reason)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if f.api.patchCount() != 1 {
		t.Fatalf("expected one PATCH, got %d", f.api.patchCount())
	}
	patch := f.api.patches[0]
	if patch.Status != models.PatchStatusCancelled || patch.Reason != reason {
		t.Fatalf("unexpected patch: %+v", patch)
	}
	if f.invalidator.sessions != 1 {
		t.Fatalf("expected sessions invalidated once, got %d", f.invalidator.sessions)
	}
	if len(res.Refunds) != 1 || res.Refunds[0].Delta != 1 {
		t.Fatalf("expected a single +1 refund, got %+v", res.Refunds)
	}

	b, _ := f.ledger.Balance(ctx, models.StudentHolder(student), f.session.ClassTypeID)
	if b.Balance != 0 {
		t.Fatalf("expected net zero after refund, got %+v", b)
	}
}

func TestCancelRejectedByBackendIsNotConfirmed(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	f.api.patchErr = &Error{Kind: KindValidation, Title: "Not allowed", FromServer: true}

	_, err := f.lc.Cancel(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, uuid.New())
	var perr *Error
	if !errors.As(err, &perr) || !perr.FromServer {
		t.Fatalf("expected server-sourced error, got %v", err)
	}
	if f.invalidator.sessions != 0 {
		t.Fatalf("cache must not be dropped for a rejected command")
	}
}

func TestSecondCancelOnCancelledSessionIsDenied(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	cancelled := *f.session
	cancelled.State = models.Cancelled{CancellationReasonID: uuid.New()}

	_, err := f.lc.CancelSession(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, &cancelled, uuid.New())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if f.api.patchCount() != 0 {
		t.Fatalf("expected no PATCH, got %d", f.api.patchCount())
	}
}

func TestRescheduleSendsNormalizedPatch(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	f.api.slots = []models.AvailabilitySlot{{StartTime: "14:00:00", EndTime: "15:00:00", IsActive: true}}
	reason := uuid.New()

	res, err := f.lc.Reschedule(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, RescheduleRequest{
		ReasonID: reason,
		Date:     "2026-10-21",
		Slot:     models.AvailabilitySlot{StartTime: "14:00", EndTime: "15:00", IsActive: true},
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if f.api.patchCount() != 1 {
		t.Fatalf("expected one PATCH, got %d", f.api.patchCount())
	}
	patch := f.api.patches[0]
	if patch.Status != models.PatchStatusReschedule || patch.StartDate != "2026-10-21" {
		t.Fatalf("unexpected patch: %+v", patch)
	}
	if patch.StartTime != "14:00" || patch.EndTime != "15:00" {
		t.Fatalf("expected HH:MM times, got %s-%s", patch.StartTime, patch.EndTime)
	}
	if patch.PrimaryInstructor != nil {
		t.Fatalf("unchanged instructor must not be sent, got %v", *patch.PrimaryInstructor)
	}
	if res.InstructorID != f.session.PrimaryInstructorID || f.invalidator.sessions != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRescheduleRejectsInactiveSlotLocally(t *testing.T) {
	f := newLifecycleFixture(allFlags)

	_, err := f.lc.Reschedule(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, RescheduleRequest{
		ReasonID: uuid.New(),
		Date:     "2026-10-21",
		Slot:     models.AvailabilitySlot{StartTime: "14:00", EndTime: "15:00", IsActive: false},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.api.patchCount() != 0 || f.api.slotCalls != 0 {
		t.Fatalf("expected nothing sent, patches=%d slot calls=%d", f.api.patchCount(), f.api.slotCalls)
	}
}

func TestRescheduleSlotTakenSinceSelection(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	f.api.slots = []models.AvailabilitySlot{{StartTime: "14:00", EndTime: "15:00", IsActive: false}}

	_, err := f.lc.Reschedule(context.Background(), Actor{ID: uuid.New(), Role: RoleParent}, f.session.ID, RescheduleRequest{
		ReasonID: uuid.New(),
		Date:     "2026-10-21",
		Slot:     models.AvailabilitySlot{StartTime: "14:00", EndTime: "15:00", IsActive: true},
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if f.api.patchCount() != 0 {
		t.Fatalf("expected no PATCH, got %d", f.api.patchCount())
	}
}

func TestRescheduleRejectsPastDate(t *testing.T) {
	f := newLifecycleFixture(allFlags)

	_, err := f.lc.Reschedule(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, RescheduleRequest{
		ReasonID: uuid.New(),
		Date:     "2026-10-01",
		Slot:     models.AvailabilitySlot{StartTime: "14:00", EndTime: "15:00", IsActive: true},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInstructorCannotRescheduleToAnotherInstructor(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	f.api.slots = []models.AvailabilitySlot{{StartTime: "14:00", EndTime: "15:00", IsActive: true}}
	instructor := Actor{ID: f.session.PrimaryInstructorID, Role: RoleInstructor}

	_, err := f.lc.Reschedule(context.Background(), instructor, f.session.ID, RescheduleRequest{
		ReasonID:     uuid.New(),
		Date:         "2026-10-21",
		Slot:         models.AvailabilitySlot{StartTime: "14:00", EndTime: "15:00", IsActive: true},
		InstructorID: uuid.New(),
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.api.patchCount() != 0 {
		t.Fatalf("expected no PATCH, got %d", f.api.patchCount())
	}
}

func TestRescheduleToAnotherInstructorSendsPrimaryInstructor(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	f.api.slots = []models.AvailabilitySlot{{StartTime: "14:00", EndTime: "15:00", IsActive: true}}
	substitute := uuid.New()

	res, err := f.lc.Reschedule(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, RescheduleRequest{
		ReasonID:     uuid.New(),
		Date:         "2026-10-21",
		Slot:         models.AvailabilitySlot{StartTime: "14:00", EndTime: "15:00", IsActive: true},
		InstructorID: substitute,
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	patch := f.api.patches[0]
	if patch.PrimaryInstructor == nil || *patch.PrimaryInstructor != substitute {
		t.Fatalf("expected primary instructor %s, got %v", substitute, patch.PrimaryInstructor)
	}
	if res.InstructorID != substitute {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSecondaryInstructorRescheduleKeepsPrimary(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	secondary := uuid.New()
	f.session.SecondaryInstructorID = &secondary
	f.api.schedule = &models.ClassSchedule{Upcoming: []models.Session{*f.session}}
	f.api.slots = []models.AvailabilitySlot{{StartTime: "14:00", EndTime: "15:00", IsActive: true}}

	res, err := f.lc.Reschedule(context.Background(), Actor{ID: secondary, Role: RoleInstructor}, f.session.ID, RescheduleRequest{
		ReasonID: uuid.New(),
		Date:     "2026-10-21",
		Slot:     models.AvailabilitySlot{StartTime: "14:00", EndTime: "15:00", IsActive: true},
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if patch := f.api.patches[0]; patch.PrimaryInstructor != nil {
		t.Fatalf("secondary instructor must not take over the class, sent %v", *patch.PrimaryInstructor)
	}
	if res.InstructorID != f.session.PrimaryInstructorID {
		t.Fatalf("expected primary instructor kept, got %s", res.InstructorID)
	}
}

func TestJoinReturnsLinkAndMarksAttendance(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	student := Actor{ID: *f.session.Participant.StudentID, Role: RoleStudent}

	link, err := f.lc.Join(context.Background(), student, f.session.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if link != *f.session.MeetingLink {
		t.Fatalf("expected %s, got %s", *f.session.MeetingLink, link)
	}

	select {
	case mark := <-f.api.attendance:
		if mark.UserID != student.ID || !mark.Present {
			t.Fatalf("unexpected attendance mark: %+v", mark)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("attendance was never sent")
	}
	f.lc.Wait()
}

func TestJoinSucceedsWhenAttendanceFails(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	f.api.attendanceErr = errors.New("backend down")

	link, err := f.lc.Join(context.Background(), Actor{ID: uuid.New(), Role: RoleParent}, f.session.ID)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if link == "" {
		t.Fatalf("expected meeting link")
	}
	f.lc.Wait()
}

func TestJoinWithoutLink(t *testing.T) {
	f := newLifecycleFixture(allFlags)
	s := *f.session
	s.MeetingLink = nil

	if _, err := f.lc.JoinSession(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, &s); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	f := newLifecycleFixture(allFlags)

	if _, err := f.lc.Join(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInFlightGuardRejectsDuplicateSubmission(t *testing.T) {
	f := newLifecycleFixture(allFlags)

	release, err := f.lc.begin(f.session.ID, ActionCancel)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err = f.lc.Cancel(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, uuid.New())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict while in flight, got %v", err)
	}
	if f.api.patchCount() != 0 {
		t.Fatalf("expected no PATCH while in flight")
	}

	release()
	if _, err := f.lc.Cancel(context.Background(), Actor{ID: uuid.New(), Role: RoleAdmin}, f.session.ID, uuid.New()); err != nil {
		t.Fatalf("Cancel after release: %v", err)
	}
}
