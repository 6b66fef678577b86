// Package barcode holds the packaged food lookup endpoint
package barcode

import (
	"errors"
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Lookup resolves a product barcode through Open Food Facts. Not quota
// gated, the upstream is free and answers are cached
func Lookup(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	product, cached, err := d.Barcode.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadBarcode):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
		case errors.Is(err, service.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "No product found for that barcode",
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusBadGateway, gin.H{
				"error":     "Barcode lookup is unavailable right now",
				"requestID": requestID,
			})

			zap.L().Error("Barcode lookup failed", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
		"cached":  cached,
	})
}
