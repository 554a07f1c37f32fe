package models

import (
	"time"

	"github.com/google/uuid"
)

// Link kinds. Short URLs and QR codes share one index space.
const (
	KindShortURL = "short-url"
	KindQRCode   = "qr-code"
)

// Health check statuses for link destinations.
const (
	HealthUnknown   = "unknown"
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// ReservedIndexFloor is the lowest index the allocator ever hands out.
// Decoded identifiers below it are never valid.
const ReservedIndexFloor = 100

// Link represents a short URL or QR code entry. Index is the sole addressing
// key for redirects; the public identifier is its base62 encoding.
type Link struct {
	ID                  uuid.UUID  `json:"id"`
	Index               uint64     `json:"index"`
	UserID              uuid.UUID  `json:"userId"`
	Kind                string     `json:"type"`
	Title               string     `json:"title"`
	OriginalURL         string     `json:"originalUrl"`
	ShortURL            string     `json:"shortUrl,omitempty"`
	QRImageURL          string     `json:"qrCodeLink,omitempty"`
	Clicks              int64      `json:"clicks"`
	IsPasswordProtected bool       `json:"isPasswordProtected"`
	PasswordHash        *string    `json:"-"`
	HealthStatus        string     `json:"healthStatus"`
	HealthCheckedAt     *time.Time `json:"healthCheckedAt,omitempty"`
	HealthError         *string    `json:"healthError,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// OwnedBy reports whether the link belongs to the given user. All mutating
// handlers go through this single predicate before touching the store.
func (l *Link) OwnedBy(userID uuid.UUID) bool {
	return l.UserID == userID
}
