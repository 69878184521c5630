package model

import "time"

// Plan caps how many analysis requests a subscriber may make per period.
type Plan struct {
	ID            int64
	Name          string
	TotalRequests int
	CreatedAt     time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == 0 }
