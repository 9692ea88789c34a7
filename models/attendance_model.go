package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceMark struct {
	UserID   uuid.UUID `json:"user_id"`
	Present  bool      `json:"present"`
	JoinTime time.Time `json:"join_time"`
}
