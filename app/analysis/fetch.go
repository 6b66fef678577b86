package analysis

import (
	"errors"
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// scoped narrows a query to rows owned by the calling identity. Every
// read and write of analysis history goes through this, a request can
// never see another scope's rows
func scoped(db *gorm.DB, c *gin.Context) *gorm.DB {
	scope := c.MustGet("scope").(string)

	if identity.IsGuestScope(scope) {
		return db.Where("guest_id = ?", identity.OwnerID(scope))
	}

	return db.Where("user_id = ?", identity.OwnerID(scope))
}

func Fetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No analysis ID provided",
			"requestID": requestID,
		})
		return
	}

	var rec model.Analysis

	err := scoped(d.DB.WithContext(c.Request.Context()), c).
		Where("id = ?", id).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Analysis not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, rec)
}
