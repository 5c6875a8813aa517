package domain

import "time"

// AuditFields holds standard audit information for persisted entities.
type AuditFields struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DateLayout is the calendar-day format used for snapshot dates.
const DateLayout = "2006-01-02"
