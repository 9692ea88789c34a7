package models

import "github.com/google/uuid"

type Reason struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ReasonCatalog struct {
	Cancellation []Reason `json:"cancellation"`
	Reschedule   []Reason `json:"reschedule"`
}
