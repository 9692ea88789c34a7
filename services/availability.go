package services

import (
	"context"
	"log"
	"sort"

	"github.com/anjiri1684/class_portal/models"
	"github.com/google/uuid"
)

type SlotSource interface {
	AvailableSlots(ctx context.Context, instructorID uuid.UUID, date string, excludeSessionID uuid.UUID) ([]models.AvailabilitySlot, error)
}

// AvailabilityResolver answers "which windows could this session move to"
// for one (instructor, date, excluded session) triple at a time.
type AvailabilityResolver struct {
	source SlotSource
}

func NewAvailabilityResolver(source SlotSource) *AvailabilityResolver {
	return &AvailabilityResolver{source: source}
}

// Slots returns the candidate windows ordered by start time. Backend
// failures come back as an empty list; only the log tells them apart.
func (r *AvailabilityResolver) Slots(ctx context.Context, instructorID uuid.UUID, date string, excludeSessionID uuid.UUID) []models.AvailabilitySlot {
	slots, err := r.fetch(ctx, instructorID, date, excludeSessionID)
	if err != nil {
		log.Printf("[AVAILABILITY] fetch failed instructor=%s date=%s session=%s: %v", instructorID, date, excludeSessionID, err)
		return []models.AvailabilitySlot{}
	}
	if len(slots) == 0 {
		log.Printf("[AVAILABILITY] no slots instructor=%s date=%s session=%s", instructorID, date, excludeSessionID)
	}
	return slots
}

// Revalidate re-reads availability and reports whether the chosen window is
// still offered and active.
func (r *AvailabilityResolver) Revalidate(ctx context.Context, instructorID uuid.UUID, date string, excludeSessionID uuid.UUID, chosen models.AvailabilitySlot) error {
	slots, err := r.fetch(ctx, instructorID, date, excludeSessionID)
	if err != nil {
		return Transient("Could not confirm availability", err)
	}
	for _, slot := range slots {
		if !slot.SameWindow(chosen) {
			continue
		}
		if !slot.IsActive {
			break
		}
		return nil
	}
	return Conflict("Time slot no longer available", "The selected time was taken or withdrawn. Refresh availability and pick another slot.")
}

func (r *AvailabilityResolver) fetch(ctx context.Context, instructorID uuid.UUID, date string, excludeSessionID uuid.UUID) ([]models.AvailabilitySlot, error) {
	raw, err := r.source.AvailableSlots(ctx, instructorID, date, excludeSessionID)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		slot  models.AvailabilitySlot
		start string
	}
	valid := make([]keyed, 0, len(raw))
	for _, slot := range raw {
		start, err := models.ParseClock(slot.StartTime)
		if err != nil {
			log.Printf("⚠️ Dropping slot with bad start time %q", slot.StartTime)
			continue
		}
		end, err := models.ParseClock(slot.EndTime)
		if err != nil || !end.After(start) {
			log.Printf("⚠️ Dropping slot with bad window %s-%s", slot.StartTime, slot.EndTime)
			continue
		}
		valid = append(valid, keyed{slot: slot, start: start.Format("15:04:05")})
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].start < valid[j].start })

	out := make([]models.AvailabilitySlot, len(valid))
	for i, k := range valid {
		out[i] = k.slot
	}
	return out, nil
}
