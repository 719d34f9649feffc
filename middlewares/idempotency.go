package middlewares

import (
	"log"
	"strings"

	"zahlung-backend/idempotency"

	"github.com/gofiber/fiber/v2"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

// IdempotencyConfig tunes the request gate.
type IdempotencyConfig struct {
	// StrictFingerprint rejects reuse of a key by a request that differs from
	// the one that originally claimed it, instead of replaying the cached
	// response regardless.
	StrictFingerprint bool
}

// Idempotency guards mutating endpoints with at-most-once semantics. Requests
// without an Idempotency-Key header (and read-only methods) bypass the gate
// entirely. For keyed requests the store decides: a fresh claim runs the
// handler and caches its outcome, a cached outcome is replayed verbatim, and
// an in-flight claim is rejected with 409.
func Idempotency(store idempotency.Store, cfg IdempotencyConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			// Unkeyed writes run unconditionally, with no store interaction.
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key too long")
		}

		userID, _ := c.Locals("userID").(string)

		body := make([]byte, len(c.Body()))
		copy(body, c.Body())
		fp := idempotency.NewFingerprint(method, c.OriginalURL(), body, userID)

		claim, err := store.TryClaim(c.UserContext(), key, fp)
		if err != nil {
			// Guarded writes are rejected rather than allowed to bypass the
			// guarantee while the store is down.
			log.Printf("idempotency: claim for key %q failed: %v", key, err)
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}

		switch claim.State {
		case idempotency.StateConflict:
			if cfg.StrictFingerprint && claim.Fingerprint != "" && claim.Fingerprint != fp.Hash {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reuse with different request")
			}
			return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is already being processed")

		case idempotency.StateReplay:
			if cfg.StrictFingerprint && claim.Fingerprint != fp.Hash {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reuse with different request")
			}
			c.Status(claim.Response.Status)
			return c.Send(claim.Response.Body)
		}

		// StateNew: run the handler exactly once. If it errors before
		// producing an outcome the record stays processing until the TTL
		// frees the key, so retries get 409 instead of a second execution.
		if err := c.Next(); err != nil {
			return err
		}

		// Best effort: the client keeps the handler's genuine outcome even if
		// the completion write fails; the guarantee is merely weakened for
		// this one key until its TTL elapses.
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		outcome := idempotency.CachedResponse{Status: c.Response().StatusCode(), Body: blob}
		if err := store.Complete(c.UserContext(), key, outcome); err != nil {
			log.Printf("idempotency: completing key %q failed: %v", key, err)
		}
		return nil
	}
}
