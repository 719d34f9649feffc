package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTTL is how long a claimed key stays reserved (and a completed
// response stays replayable) unless configured otherwise.
const DefaultTTL = 24 * time.Hour

// State is the outcome of a claim attempt.
type State string

const (
	// StateNew: the key was free (or expired) and is now reserved for this
	// caller. Exactly one concurrent caller per key ever sees this.
	StateNew State = "new"
	// StateReplay: a completed response is cached for this key.
	StateReplay State = "replay"
	// StateConflict: the key is claimed and still processing, or this caller
	// lost the claim race.
	StateConflict State = "conflict"
)

// Fingerprint captures the request that claims a key. Only the hash takes
// part in reuse checks; the rest is stored for inspection.
type Fingerprint struct {
	Hash   string
	Method string
	Path   string
	Body   []byte
	UserID string
}

// NewFingerprint builds a deterministic hash over method|path|body|user,
// newline-separated so field boundaries can't be forged by concatenation.
func NewFingerprint(method, path string, body []byte, userID string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(userID))
	return Fingerprint{
		Hash:   hex.EncodeToString(h.Sum(nil)),
		Method: method,
		Path:   path,
		Body:   body,
		UserID: userID,
	}
}

// CachedResponse is the final outcome stored at completion and replayed
// verbatim on later claims of the same key.
type CachedResponse struct {
	Status int
	Body   []byte
}

// Claim is the result of TryClaim.
type Claim struct {
	State State
	// Fingerprint is the hash recorded when the key was first claimed; empty
	// for StateNew. Callers may compare it against the incoming request.
	Fingerprint string
	// Response is set only for StateReplay.
	Response *CachedResponse
}

// Store is the durable keyed storage for idempotency records. All mutual
// exclusion lives here: TryClaim must be atomic across processes sharing the
// same backend, so the guard holds behind a load balancer with no in-process
// locking.
type Store interface {
	// TryClaim reserves key for a new execution if no unexpired record holds
	// it. Under concurrent calls for the same key exactly one caller gets
	// StateNew; the rest get StateConflict (still processing) or StateReplay
	// (completed, response cached). An expired record counts as absent.
	TryClaim(ctx context.Context, key string, fp Fingerprint) (Claim, error)

	// Complete transitions the record for key to completed, storing the
	// response. Call at most once per successful claim; a second call
	// overwrites (last write wins).
	Complete(ctx context.Context, key string, resp CachedResponse) error

	// SweepExpired physically deletes records whose TTL elapsed before now
	// and returns how many were removed. Safe to run concurrently with live
	// claims: expired records are already invisible to TryClaim.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
