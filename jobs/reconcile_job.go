package jobs

import (
	"context"
	"log"
	"time"

	"github.com/anjiri1684/class_portal/models"
	"github.com/anjiri1684/class_portal/services"
	"github.com/google/uuid"
)

type CreditLedger interface {
	Spend(ctx context.Context, in services.SpendInput) (*models.LedgerEntry, error)
	Refund(ctx context.Context, sessionID uuid.UUID) ([]models.LedgerEntry, error)
}

// Reconciler applies the ledger side of transitions the backend performs on
// its own: a completed session spends a credit per attending student, from
// that student's own family when they have one, and a cancelled one
// gets its spends refunded. Both ledger operations are idempotent, so every
// run can revisit the whole schedule.
type Reconciler struct {
	Schedule services.ScheduleSource
	Ledger   CreditLedger
	Timeout  time.Duration
}

func NewReconciler(schedule services.ScheduleSource, ledger CreditLedger) *Reconciler {
	return &Reconciler{Schedule: schedule, Ledger: ledger, Timeout: 2 * time.Minute}
}

// Run satisfies cron.Job.
func (r *Reconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()
	r.Reconcile(ctx)
}

type ReconcileReport struct {
	Spent    int
	Refunded int
	Failed   int
}

func (r *Reconciler) Reconcile(ctx context.Context) ReconcileReport {
	log.Println("Running job: ReconcileSessionCredits...")

	var report ReconcileReport
	schedule, err := r.Schedule.ClassSchedule(ctx)
	if err != nil {
		log.Printf("Error reading class schedule: %v", err)
		return report
	}

	for _, session := range schedule.All() {
		switch session.Status() {
		case models.StatusCompleted:
			for _, member := range session.Participant.Attendees() {
				entry, err := r.Ledger.Spend(ctx, services.SpendInput{
					StudentID:   member.StudentID,
					FamilyID:    member.FamilyID,
					ClassTypeID: session.ClassTypeID,
					SessionID:   session.ID,
				})
				if err != nil {
					log.Printf("🔥 Failed to record spend for student %s in session %s: %v", member.StudentID, session.ID, err)
					report.Failed++
					continue
				}
				if entry != nil {
					report.Spent++
				}
			}
		case models.StatusCancelled:
			refunds, err := r.Ledger.Refund(ctx, session.ID)
			if err != nil {
				log.Printf("🔥 Failed to refund session %s: %v", session.ID, err)
				report.Failed++
				continue
			}
			report.Refunded += len(refunds)
		}
	}

	if report.Refunded > 0 || report.Failed > 0 {
		log.Printf("Reconciled credits: %d refunded, %d failed.", report.Refunded, report.Failed)
	}
	return report
}
