package services

import (
	"github.com/anjiri1684/class_portal/models"
)

type Action string

const (
	ActionJoin       Action = "join"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
)

const (
	DeniedNoSession     = "no_session"
	DeniedUnknownAction = "unknown_action"
	DeniedUnknownRole   = "unknown_role"
	DeniedTerminal      = "terminal_status"
	DeniedFlagNotSet    = "flag_not_set"
	DeniedNotOwnClass   = "not_assigned_instructor"
	DeniedUnknownStatus = "unknown_status"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r string) Decision { return Decision{Reason: r} }

// statusGuard lists, per status, which actions the status alone permits.
// Anything missing from the table is denied.
var statusGuard = map[models.SessionStatus]map[Action]bool{
	models.StatusScheduled:   {ActionJoin: true, ActionCancel: true, ActionReschedule: true},
	models.StatusOngoing:     {ActionJoin: true, ActionCancel: true, ActionReschedule: true},
	models.StatusCompleted:   {},
	models.StatusCancelled:   {},
	models.StatusRescheduled: {},
}

// Decide is the action gate. The session's own flag, the status guard and
// the role rule must all pass.
func Decide(session *models.Session, actor Actor, action Action) Decision {
	if session == nil || session.State == nil {
		return deny(DeniedNoSession)
	}
	guard, ok := statusGuard[session.Status()]
	if !ok {
		return deny(DeniedUnknownStatus)
	}

	flags := session.Permissions()
	var flag bool
	switch action {
	case ActionJoin:
		flag = flags.CanJoin
	case ActionCancel:
		flag = flags.CanCancel
	case ActionReschedule:
		flag = flags.CanReschedule
	default:
		return deny(DeniedUnknownAction)
	}

	if !guard[action] {
		return deny(DeniedTerminal)
	}
	if !flag {
		return deny(DeniedFlagNotSet)
	}
	if !actor.Role.Known() {
		return deny(DeniedUnknownRole)
	}
	if actor.Role == RoleInstructor && !session.HasInstructor(actor.ID) {
		return deny(DeniedNotOwnClass)
	}
	return allow()
}

func CanAct(session *models.Session, actor Actor, action Action) bool {
	return Decide(session, actor, action).Allowed
}

func deniedError(action Action, d Decision) *Error {
	desc := "This class can no longer be changed."
	switch d.Reason {
	case DeniedFlagNotSet:
		desc = "You are not allowed to " + string(action) + " this class right now."
	case DeniedNotOwnClass:
		desc = "Only the assigned instructor can " + string(action) + " this class."
	case DeniedUnknownRole:
		desc = "Your account role cannot perform this action."
	}
	return &Error{
		Kind:        KindPermissionDenied,
		Title:       "Action not permitted",
		Description: desc,
	}
}
