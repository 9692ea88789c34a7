package models

type AvailabilitySlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

// SameWindow reports whether both slots cover the same wall-clock window.
func (s AvailabilitySlot) SameWindow(other AvailabilitySlot) bool {
	a1, err1 := NormalizeClock(s.StartTime)
	b1, err2 := NormalizeClock(other.StartTime)
	a2, err3 := NormalizeClock(s.EndTime)
	b2, err4 := NormalizeClock(other.EndTime)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return a1 == b1 && a2 == b2
}
