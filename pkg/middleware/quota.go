package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/metrics"
	"github.com/mayurbijarniya/nutriai/internal/quota"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewQuotaMiddleware reserves a daily slot for the given feature before
// the handler runs. The reservation is rolled back when the handler
// finishes without setting quotaCommitted, so failed requests don't eat
// into anyone's allowance. Must run after the identity middleware.
func NewQuotaMiddleware(g *quota.Gate, m *metrics.Collector, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)
		scope := c.MustGet("scope").(string)

		d := g.Reserve(c.Request.Context(), scope, feature)
		m.RecordDecision(feature, identity.Tier(scope), d.Outcome.String())

		switch d.Outcome {
		case quota.Rejected:
			if d.Limit <= 0 {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":     "This feature requires signing in",
					"requestID": requestID,
				})
				return
			}

			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			msg := "Daily limit reached. Your quota resets at midnight UTC"
			if identity.IsGuestScope(scope) {
				msg = "Daily limit reached. Sign in to get a higher daily limit"
			}

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       msg,
				"requestID":   requestID,
				"used":        d.Used,
				"limit":       d.Limit,
				"retry_after": retryAfter,
			})
			return

		case quota.Deferred:
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Service temporarily unavailable. Please try again in a moment",
				"requestID": requestID,
			})
			return
		}

		c.Set("quotaDecision", d)

		// The release must happen even if the handler panics. Request
		// context can't be used here, the client may be gone already
		defer func() {
			if !c.GetBool("quotaCommitted") {
				g.Release(context.Background(), scope, d)

				zap.L().Debug("Released unused quota reservation",
					zap.String("scope", scope),
					zap.String("feature", feature),
					zap.String("requestID", requestID))
			}
		}()

		c.Next()
	}
}
