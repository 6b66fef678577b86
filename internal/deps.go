package internal

import (
	"github.com/mayurbijarniya/nutriai/internal/ai"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/metrics"
	"github.com/mayurbijarniya/nutriai/internal/quota"
	"github.com/mayurbijarniya/nutriai/internal/service"
	"github.com/mayurbijarniya/nutriai/internal/storage"

	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Gate     *quota.Gate
	Sessions *identity.Sessions
	Google   *identity.GoogleProvider
	AI       *ai.Client
	JobQueue *service.JobQueue
	Store    storage.ImageStore
	Barcode  *service.BarcodeClient
	Metrics  *metrics.Collector
}
