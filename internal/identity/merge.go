package identity

import (
	"context"

	"github.com/mayurbijarniya/nutriai/internal/model"

	"gorm.io/gorm"
)

// MergeGuestHistory re-owns every analysis a guest made to the user they just
// signed in as. Usage counters are left alone on purpose: quota already spent
// as a guest stays spent on the guest scope, the user's own ceilings apply
// from here on
func MergeGuestHistory(ctx context.Context, db *gorm.DB, guestID, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(model.Analysis{}).
		Where("guest_id = ?", guestID).
		Updates(map[string]any{
			"user_id":  userID,
			"guest_id": "",
		})

	return res.RowsAffected, res.Error
}
