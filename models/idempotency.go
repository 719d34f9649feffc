package models

import "time"

// Idempotency record statuses. A record is created as "processing" and moves
// to "completed" exactly once; expired records are reaped.
const (
	IdempotencyProcessing = "processing"
	IdempotencyCompleted  = "completed"
)

// IdempotencyRecord stores one claim per client-supplied key. The unique index
// on Key is the atomicity mechanism for the whole guard: concurrent claims
// race on the insert, not on any in-process lock.
type IdempotencyRecord struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Key         string `json:"key" gorm:"size:128;uniqueIndex:idx_idempotency_records_key"`
	Fingerprint string `json:"fingerprint" gorm:"size:64"` // sha256 of method|path|body|user
	Method      string `json:"method" gorm:"size:10"`
	Path        string `json:"path" gorm:"size:255"`
	// Bodies are opaque blobs, not necessarily JSON, so they are stored raw.
	RequestBody []byte `json:"-" gorm:"type:bytea"`
	UserID      string `json:"user_id" gorm:"size:128"`

	Status         string `json:"status" gorm:"size:16;not null"`
	ResponseStatus int    `json:"response_status"` // 0 => not completed yet
	ResponseBody   []byte `json:"-" gorm:"type:bytea"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

// Expired reports whether the record is past its TTL at the given instant.
// Expired records are logically absent: lookups skip them and the reaper
// removes them physically.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
