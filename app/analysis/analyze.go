// Package analysis holds the meal analysis endpoints: the gated AI
// pipeline itself plus the per-identity history it produces
package analysis

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/ai"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/model"
	"github.com/mayurbijarniya/nutriai/internal/quota"
	"github.com/mayurbijarniya/nutriai/internal/service"
	"github.com/mayurbijarniya/nutriai/internal/storage"
	"github.com/mayurbijarniya/nutriai/pkg/util"
	"github.com/mayurbijarniya/nutriai/pkg/validators"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const maxPreferencesLen = 500

// Analyze runs one meal photo through the vision model. The quota
// middleware already reserved a slot for this request, and the
// reservation is only committed once the analysis is stored, so a
// failed run never costs the caller anything
func Analyze(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	scope := c.MustGet("scope").(string)

	raw, ok := readImage(c, d, requestID)
	if !ok {
		return
	}

	goal := strings.ToLower(strings.TrimSpace(c.PostForm("diet_goal")))
	preferences := strings.TrimSpace(c.PostForm("preferences"))

	if len(preferences) > maxPreferencesLen {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Preferences text is too long",
			"requestID": requestID,
		})
		return
	}

	jpeg, err := service.ProcessImage(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Couldn't read that image, please try another one",
			"requestID": requestID,
		})

		zap.L().Debug("Image processing failed", zap.Error(err), zap.String("requestID", requestID))
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
		Prompt: ai.AnalysisPrompt(goal, preferences),
		Image:  jpeg,
		Ctx:    ctx,
		Done:   done,
	}

	if err := d.JobQueue.Enqueue(job); err != nil {
		// Queue pressure defers the request just like a gate outage would,
		// count it the same way
		d.Metrics.RecordDecision(quota.FeatureAnalyses, identity.Tier(scope), quota.Deferred.String())

		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "All analysis workers are busy. Please wait a moment before trying again",
			"requestID": requestID,
		})

		zap.L().Warn("Analysis job queue is full", zap.String("requestID", requestID))
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
					"error":     "The analysis service is overloaded right now, please try again shortly",
					"requestID": requestID,
				})
				return
			}

			c.JSON(http.StatusBadGateway, gin.H{
				"error":     "Analysis failed and wasn't counted against your daily limit",
				"requestID": requestID,
			})
			return
		}
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, gin.H{
			"error":     "Request was cancelled or timed out",
			"requestID": requestID,
		})

		zap.L().Warn("Request context done before analysis finished", zap.Error(ctx.Err()), zap.String("requestID", requestID))
		return
	}

	id, err := util.NewID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate analysis ID", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	rec := model.Analysis{
		ID:          id,
		DietGoal:    goal,
		Preferences: preferences,
		Analysis:    job.Text,
		Nutrition:   ai.ExtractNutrition(job.Text),
		CreatedAt:   time.Now().Unix(),
	}

	if userID, ok := c.Get("userID"); ok {
		rec.UserID = userID.(string)
	} else {
		rec.GuestID = identity.OwnerID(scope)
	}

	key := "analyses/" + id + ".jpg"

	err = d.Store.Put(c.Request.Context(), key, bytes.NewReader(jpeg), int64(len(jpeg)), "image/jpeg")
	switch {
	case err == nil:
		rec.ImageKey = key
	case errors.Is(err, storage.ErrDisabled):
		// Analyses still persist, just without an image copy
	default:
		zap.L().Warn("Failed to store meal image", zap.Error(err), zap.String("requestID", requestID))
	}

	if err := d.DB.WithContext(c.Request.Context()).Create(&rec).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to store analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Set("quotaCommitted", true)
	d.Metrics.RecordAnalysis()

	c.JSON(http.StatusOK, rec)
}

// readImage takes the meal photo either from the multipart form or from
// a user supplied URL. Both paths end in the same byte sniffing
func readImage(c *gin.Context, d *internal.Deps, requestID string) ([]byte, bool) {
	fh, err := c.FormFile("image")
	if err == nil && fh != nil {
		code, data, err := validators.ImageValidator(fh)
		if err != nil {
			c.JSON(code, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return nil, false
		}

		return data, true
	}

	imageURL := strings.TrimSpace(c.PostForm("image_url"))
	if imageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Provide an image file or an image_url",
			"requestID": requestID,
		})
		return nil, false
	}

	raw, err := service.FetchImageURL(c.Request.Context(), imageURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})

		zap.L().Debug("Image URL fetch failed", zap.Error(err), zap.String("requestID", requestID))
		return nil, false
	}

	code, data, err := validators.ValidateImageBytes(raw)
	if err != nil {
		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return nil, false
	}

	return data, true
}
