package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	sessionReplayPrefix = "ussd:replay:v1:"
	replayLookupTimeout = 2 * time.Second
)

// SessionReplay caches the rendered response for each (sessionId, text)
// tuple in Redis. The gateway retries a callback when our answer is slow to
// arrive; replaying the cached body keeps a retried step from re-dispatching
// its side effects.
func SessionReplay(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.FormValue("sessionId")
		if sessionID == "" {
			return c.Next()
		}

		sum := sha256.Sum256([]byte(c.FormValue("text")))
		cacheKey := sessionReplayPrefix + sessionID + ":" + hex.EncodeToString(sum[:8])

		ctx, cancel := context.WithTimeout(context.Background(), replayLookupTimeout)
		defer cancel()

		cached, err := cache.Get(ctx, cacheKey).Result()
		if err == nil {
			c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
			return c.SendString(cached)
		}
		if err != redis.Nil {
			// Fail open: a cache outage must not take sessions down.
			logger.Warn("session replay lookup failed", slog.String("session_id", sessionID), slog.Any("error", err))
			return c.Next()
		}

		if err := c.Next(); err != nil {
			return err
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), replayLookupTimeout)
		defer persistCancel()

		body := string(c.Response().Body())
		if err := cache.Set(persistCtx, cacheKey, body, ttl).Err(); err != nil {
			logger.Warn("session replay persist failed", slog.String("session_id", sessionID), slog.Any("error", err))
		}
		return nil
	}
}
