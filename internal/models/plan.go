package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan types.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanPro     = "pro"
)

// Plan tracks the remaining creation allowance for a user. Urls and QRCodes
// are consumable counters decremented on successful creation; they never go
// negative.
type Plan struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	PlanType  string    `json:"planType"`
	Urls      int       `json:"urls"`
	QRCodes   int       `json:"qrCodes"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Expired reports whether the plan period has lapsed. Expired plans are
// reset to the free allowance on next use.
func (p *Plan) Expired() bool {
	return p.ExpiresAt.Before(time.Now())
}
