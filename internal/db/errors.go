package db

import "errors"

// Domain-level database error sentinels.
var (
	// Link errors
	ErrLinkNotFound   = errors.New("link not found")
	ErrDuplicateIndex = errors.New("link index already allocated")

	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// Plan errors
	ErrPlanNotFound  = errors.New("plan not found")
	ErrQuotaExceeded = errors.New("creation limit reached")

	// Verification code errors
	ErrCodeNotFound = errors.New("verification code not found or expired")

	// Transient persistence failures (timeouts, connectivity); safe to retry
	// from the caller.
	ErrStoreUnavailable = errors.New("store unavailable")
)
