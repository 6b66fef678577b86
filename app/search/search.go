// Package search holds the AI food search endpoint
package search

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/ai"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/quota"
	"github.com/mayurbijarniya/nutriai/internal/service"
	"github.com/mayurbijarniya/nutriai/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const maxQueryLen = 300

type searchBody struct {
	Query    string `json:"query"`
	DietGoal string `json:"diet_goal"`
}

// Search resolves a free-text meal description into nutrition numbers
// through the lighter text model. Gated per day like analyses, and a
// failed lookup doesn't count either
func Search(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	scope := c.MustGet("scope").(string)

	var data searchBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	query := strings.TrimSpace(data.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Query can't be empty",
			"requestID": requestID,
		})
		return
	}

	if len(query) > maxQueryLen {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Query is too long",
			"requestID": requestID,
		})
		return
	}

	done := make(chan error, 1)

	timeout := time.Duration(viper.GetInt("ai.timeout_seconds")) * time.Second
	ctxTimeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ctx, cancelMerged := util.MergeContexts(c.Request.Context(), ctxTimeout)
	defer cancelMerged()

	job := &service.AIJob{
		ID:     util.RandStr(10),
		Scope:  scope,
		Prompt: ai.SearchPrompt(query, strings.ToLower(strings.TrimSpace(data.DietGoal))),
		Ctx:    ctx,
		Done:   done,
	}

	if err := d.JobQueue.Enqueue(job); err != nil {
		// Queue pressure defers the request just like a gate outage would,
		// count it the same way
		d.Metrics.RecordDecision(quota.FeatureAISearch, identity.Tier(scope), quota.Deferred.String())

		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "All analysis workers are busy. Please wait a moment before trying again",
			"requestID": requestID,
		})

		zap.L().Warn("Search job queue is full", zap.String("requestID", requestID))
		return
	}

	start := time.Now()

	select {
	case err := <-done:
		d.Metrics.RecordModelLatency(time.Since(start))

		if err != nil {
			var tooMany ai.TooManyRequestsError
			if errors.As(err, &tooMany) {
				c.Header("Retry-After", strconv.Itoa(int(tooMany.RetryAfter.Seconds())))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"error":     "The search service is overloaded right now, please try again shortly",
					"requestID": requestID,
				})
				return
			}

			c.JSON(http.StatusBadGateway, gin.H{
				"error":     "Search failed and wasn't counted against your daily limit",
				"requestID": requestID,
			})
			return
		}
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, gin.H{
			"error":     "Request was cancelled or timed out",
			"requestID": requestID,
		})

		zap.L().Warn("Request context done before search finished", zap.Error(ctx.Err()), zap.String("requestID", requestID))
		return
	}

	result, err := ai.ParseSearchResult(job.Text)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "The model gave an unusable answer and the request wasn't counted",
			"requestID": requestID,
		})

		zap.L().Warn("Unparseable search result", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Set("quotaCommitted", true)
	d.Metrics.RecordSearch()

	c.JSON(http.StatusOK, result)
}
