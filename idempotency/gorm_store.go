package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zahlung-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps idempotency records in the relational database. The unique
// index on idempotency_records.key makes the claim a single atomic statement,
// which is what holds the guarantee across multiple server instances sharing
// one database.
type GormStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewGormStore(db *gorm.DB, ttl time.Duration) *GormStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &GormStore{db: db, ttl: ttl}
}

// TryClaim inserts a processing record if the key is free. An expired row
// counts as free and is taken over in the same statement:
//
//	INSERT ... ON CONFLICT (key) DO UPDATE SET ... WHERE expires_at <= now
//
// RowsAffected > 0 means this caller won (fresh insert or takeover of an
// expired row); 0 means a live record exists and is read back to decide
// between replay and conflict.
func (s *GormStore) TryClaim(ctx context.Context, key string, fp Fingerprint) (Claim, error) {
	now := time.Now().UTC()
	rec := models.IdempotencyRecord{
		Key:         key,
		Fingerprint: fp.Hash,
		Method:      fp.Method,
		Path:        fp.Path,
		RequestBody: fp.Body,
		UserID:      fp.UserID,
		Status:      models.IdempotencyProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("idempotency_records.expires_at <= ?", now),
		}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"fingerprint":     fp.Hash,
			"method":          fp.Method,
			"path":            fp.Path,
			"request_body":    fp.Body,
			"user_id":         fp.UserID,
			"status":          models.IdempotencyProcessing,
			"response_status": 0,
			"response_body":   nil,
			"created_at":      now,
			"updated_at":      now,
			"expires_at":      now.Add(s.ttl),
		}),
	}).Create(&rec)
	if res.Error != nil {
		return Claim{}, fmt.Errorf("idempotency claim failed: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return Claim{State: StateNew}, nil
	}

	// Lost the race or the key is in use: read the live record.
	var existing models.IdempotencyRecord
	err := s.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Swept between the upsert and the read; the caller may retry.
		return Claim{State: StateConflict}, nil
	}
	if err != nil {
		return Claim{}, fmt.Errorf("idempotency lookup failed: %w", err)
	}

	// A non-zero response status marks a cached outcome; the body may well be
	// empty (204, DELETE) and is replayed as-is either way.
	if existing.Status == models.IdempotencyCompleted && existing.ResponseStatus != 0 {
		return Claim{
			State:       StateReplay,
			Fingerprint: existing.Fingerprint,
			Response: &CachedResponse{
				Status: existing.ResponseStatus,
				Body:   existing.ResponseBody,
			},
		}, nil
	}

	// Still processing, or completed without a stored response. Refuse rather
	// than re-execute.
	return Claim{State: StateConflict, Fingerprint: existing.Fingerprint}, nil
}

func (s *GormStore) Complete(ctx context.Context, key string, resp CachedResponse) error {
	res := s.db.WithContext(ctx).
		Model(&models.IdempotencyRecord{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{
			"status":          models.IdempotencyCompleted,
			"response_status": resp.Status,
			"response_body":   resp.Body,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("idempotency complete failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("idempotency complete: no record for key %q", key)
	}
	return nil
}

func (s *GormStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.IdempotencyRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("idempotency sweep failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
