package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ShareLink is a short public code that resolves to a fundraiser. Links are
// fundraiser-scoped resources: creating one requires editor rights on the
// owning group.
type ShareLink struct {
	ID           string
	FundraiserID string
	Code         string
	CreatedBy    string
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

// Expired reports whether the link is past its optional expiry.
func (l ShareLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// NewShareCode returns a random 12-character hex code.
func NewShareCode() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}
