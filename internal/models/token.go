package models

import "time"

type AccessToken struct {
	Token         string
	Active        bool
	OwnerID       *string
	CreatedAt     time.Time
	ActivatedAt   *time.Time
	ExpiresInDays int
}

// Redeemed reports whether the token was ever bound to a user.
func (t AccessToken) Redeemed() bool {
	return t.ActivatedAt != nil
}

// DaysSinceActivation counts whole elapsed days, zero for unredeemed tokens.
func (t AccessToken) DaysSinceActivation(now time.Time) int {
	if t.ActivatedAt == nil {
		return 0
	}
	return int(now.Sub(*t.ActivatedAt) / (24 * time.Hour))
}
