package services

import (
	"testing"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

func TestTerminalStatesCarryNoPermissions(t *testing.T) {
	states := []models.SessionState{
		models.Completed{},
		models.Cancelled{CancellationReasonID: uuid.New()},
		models.Rescheduled{},
	}
	for _, st := range states {
		if st.Permissions() != (models.Permissions{}) {
			t.Fatalf("%s carries permissions %+v", st.Status(), st.Permissions())
		}
	}
}

func TestDecide(t *testing.T) {
	admin := Actor{ID: uuid.New(), Role: RoleAdmin}

	tests := []struct {
		name    string
		session func() *models.Session
		actor   func(s *models.Session) Actor
		action  Action
		allowed bool
		reason  string
	}{
		{
			name:    "scheduled with flag",
			session: func() *models.Session { return scheduledSession(allFlags) },
			actor:   func(*models.Session) Actor { return admin },
			action:  ActionCancel,
			allowed: true,
		},
		{
			name:    "flag not set",
			session: func() *models.Session { return scheduledSession(models.Permissions{CanJoin: true}) },
			actor:   func(*models.Session) Actor { return admin },
			action:  ActionCancel,
			reason:  DeniedFlagNotSet,
		},
		{
			name: "cancelled session",
			session: func() *models.Session {
				s := scheduledSession(allFlags)
				s.State = models.Cancelled{CancellationReasonID: uuid.New()}
				return s
			},
			actor:  func(*models.Session) Actor { return admin },
			action: ActionCancel,
			reason: DeniedTerminal,
		},
		{
			name: "completed session join",
			session: func() *models.Session {
				s := scheduledSession(allFlags)
				s.State = models.Completed{}
				return s
			},
			actor:  func(*models.Session) Actor { return admin },
			action: ActionJoin,
			reason: DeniedTerminal,
		},
		{
			name: "ongoing join",
			session: func() *models.Session {
				s := scheduledSession(allFlags)
				s.State = models.Ongoing{Flags: models.Permissions{CanJoin: true}}
				return s
			},
			actor:   func(*models.Session) Actor { return admin },
			action:  ActionJoin,
			allowed: true,
		},
		{
			name:    "unknown role fails closed",
			session: func() *models.Session { return scheduledSession(allFlags) },
			actor:   func(*models.Session) Actor { return Actor{ID: uuid.New(), Role: "guest"} },
			action:  ActionJoin,
			reason:  DeniedUnknownRole,
		},
		{
			name:    "instructor of another class",
			session: func() *models.Session { return scheduledSession(allFlags) },
			actor:   func(*models.Session) Actor { return Actor{ID: uuid.New(), Role: RoleInstructor} },
			action:  ActionReschedule,
			reason:  DeniedNotOwnClass,
		},
		{
			name:    "secondary instructor",
			session: func() *models.Session { return scheduledSession(allFlags) },
			actor: func(s *models.Session) Actor {
				id := uuid.New()
				s.SecondaryInstructorID = &id
				return Actor{ID: id, Role: RoleInstructor}
			},
			action:  ActionReschedule,
			allowed: true,
		},
		{
			name:    "unknown action",
			session: func() *models.Session { return scheduledSession(allFlags) },
			actor:   func(*models.Session) Actor { return admin },
			action:  "delete",
			reason:  DeniedUnknownAction,
		},
		{
			name:    "nil session",
			session: func() *models.Session { return nil },
			actor:   func(*models.Session) Actor { return admin },
			action:  ActionJoin,
			reason:  DeniedNoSession,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.session()
			d := Decide(s, tc.actor(s), tc.action)
			if d.Allowed != tc.allowed {
				t.Fatalf("expected allowed=%v, got %+v", tc.allowed, d)
			}
			if !tc.allowed && d.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, d.Reason)
			}
		})
	}
}
