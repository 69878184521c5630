package model

import "time"

// QuotaRecord is a user's request allowance under their current plan.
type QuotaRecord struct {
	UserID    int64
	PlanID    int64
	Used      int
	Total     int
	ResetDate time.Time
}

// QuotaSnapshot is the caller-facing view of a QuotaRecord.
type QuotaSnapshot struct {
	Used      int `json:"used"`
	Total     int `json:"total"`
	Remaining int `json:"remaining"`
}

func (q *QuotaRecord) Snapshot() QuotaSnapshot {
	return QuotaSnapshot{Used: q.Used, Total: q.Total, Remaining: q.Total - q.Used}
}
