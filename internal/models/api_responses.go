package models

import "time"

// ResolveResponse is returned when a public identifier resolves to an
// unprotected link. The destination is never present when a password is
// required.
type ResolveResponse struct {
	Identifier       string `json:"identifier"`
	OriginalURL      string `json:"originalUrl,omitempty"`
	PasswordRequired bool   `json:"passwordRequired"`
	Title            string `json:"title"`
}

// VerifyPasswordResponse is returned after a successful password check.
type VerifyPasswordResponse struct {
	Success     bool   `json:"success"`
	OriginalURL string `json:"originalUrl"`
}

// LimitResponse reports the remaining creation allowance.
type LimitResponse struct {
	Urls      int       `json:"urls"`
	QRCodes   int       `json:"qrCodes"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionUser is the subset of account data stored in the session and
// returned by the auth verify endpoint.
type SessionUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Picture  string `json:"picture"`
}
