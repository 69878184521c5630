package model

import (
	"regexp"
	"time"

	"analysis-gateway/internal/domain"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is a subscriber known to the gateway. IDs come from the identity provider.
type User struct {
	ID           int64
	Email        string
	PlanID       int64
	UsedRequests int
	ResetDate    time.Time
}

// NewUser validates and constructs a user with an empty request counter.
func NewUser(id int64, email string, planID int64, resetDate time.Time) (*User, error) {
	if id <= 0 || planID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if !emailRe.MatchString(email) {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:        id,
		Email:     email,
		PlanID:    planID,
		ResetDate: resetDate,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == 0 }
