package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/flowrunner/common/ratelimit"
)

// SubmitRateLimit limits workflow submissions. The global counter protects
// the whole service; when the request carries an X-Organization-ID header a
// per-organization counter is checked as well, so one noisy tenant cannot
// consume the global budget alone. Checks fail open: a broken limiter must
// not take down submissions.
func SubmitRateLimit(limiter *ratelimit.Limiter, globalLimit, orgLimit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			result, err := limiter.CheckGlobalLimit(ctx, globalLimit, windowSec)
			if err == nil && !result.Allowed {
				return tooManyRequests(c, result)
			}

			if orgID := c.Request().Header.Get("X-Organization-ID"); orgID != "" {
				result, err = limiter.CheckOrganizationLimit(ctx, orgID, orgLimit, windowSec)
				if err == nil && !result.Allowed {
					return tooManyRequests(c, result)
				}
			}

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, result *ratelimit.Result) error {
	return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
		"error":       "rate limit exceeded",
		"limit":       result.Limit,
		"retry_after": result.RetryAfterSeconds,
	})
}
