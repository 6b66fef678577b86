// Package quota is the admission gate in front of the AI endpoints. Every
// gated request reserves a slot in a per-scope, per-feature daily counter
// before the expensive call runs, and the gate's decision says whether the
// request was admitted, rejected or deferred.
package quota

import (
	"context"
	"time"

	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Feature names tracked by the gate
const (
	FeatureAnalyses   = "analyses"
	FeatureAISearch   = "ai_search"
	FeatureShareLinks = "share_links"
)

// DeferRetryAfter is the pause clients are asked to take when the gate
// itself couldn't decide
const DeferRetryAfter = 30 * time.Second

type Outcome int

const (
	// Admitted means a slot was reserved and the request may run
	Admitted Outcome = iota
	// Rejected means the daily ceiling is spent, or the tier has no
	// access to the feature at all
	Rejected
	// Deferred means the counter store couldn't take the reservation.
	// Nothing was counted and the request must not run
	Deferred
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Rejected:
		return "rejected"
	case Deferred:
		return "deferred"
	}

	return "unknown"
}

type Decision struct {
	Outcome    Outcome
	Feature    string
	Day        string // UTC day the reservation landed on, Release needs it
	Used       int64
	Limit      int64
	RetryAfter time.Duration
}

type Gate struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGate(db *gorm.DB) *Gate {
	return &Gate{
		db:  db,
		now: time.Now,
	}
}

// Limit returns the configured daily ceiling for a scope's tier and feature.
// Zero means the feature is off for that tier
func Limit(scope, feature string) int64 {
	return viper.GetInt64("quota." + identity.Tier(scope) + "." + feature)
}

// Reserve takes one slot of a scope's daily allowance for a feature. The
// increment only happens while count < limit, checked and applied in a single
// statement, so two concurrent requests can never both take the last slot.
// Callers that end up not using an admitted slot must hand the decision back
// to Release.
func (g *Gate) Reserve(ctx context.Context, scope, feature string) Decision {
	now := g.now().UTC()
	day := now.Format("20060102")

	d := Decision{
		Feature: feature,
		Day:     day,
		Limit:   Limit(scope, feature),
	}

	if d.Limit <= 0 {
		d.Outcome = Rejected
		return d
	}

	// Make sure the row exists first. Both statements are atomic on their
	// own and the insert is a no-op when the row is already there
	err := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UsageCounter{Scope: scope, Day: day, Feature: feature}).
		Error
	if err != nil {
		zap.L().Error("Failed to ensure usage counter row", zap.Error(err), zap.String("scope", scope), zap.String("feature", feature))

		d.Outcome = Deferred
		d.RetryAfter = DeferRetryAfter
		return d
	}

	res := g.db.WithContext(ctx).
		Model(model.UsageCounter{}).
		Where("scope = ? AND day = ? AND feature = ? AND count < ?", scope, day, feature, d.Limit).
		Update("count", gorm.Expr("count + 1"))
	if res.Error != nil {
		zap.L().Error("Failed to reserve usage slot", zap.Error(res.Error), zap.String("scope", scope), zap.String("feature", feature))

		d.Outcome = Deferred
		d.RetryAfter = DeferRetryAfter
		return d
	}

	used, err := g.count(ctx, scope, day, feature)
	if err != nil {
		// Reporting only, the reservation itself already settled
		zap.L().Warn("Failed to read usage counter", zap.Error(err), zap.String("scope", scope))
		used = d.Limit
	}
	d.Used = used

	if res.RowsAffected == 0 {
		d.Outcome = Rejected
		d.RetryAfter = untilMidnightUTC(now)
		return d
	}

	d.Outcome = Admitted
	return d
}

// Release refunds an admitted reservation, for example when the AI call
// behind it failed. Decrements floor at zero and always target the day the
// slot was taken on, even if midnight passed since
func (g *Gate) Release(ctx context.Context, scope string, d Decision) {
	if d.Outcome != Admitted {
		return
	}

	err := g.db.WithContext(ctx).
		Model(model.UsageCounter{}).
		Where("scope = ? AND day = ? AND feature = ? AND count > 0", scope, d.Day, d.Feature).
		Update("count", gorm.Expr("count - 1")).
		Error
	if err != nil {
		zap.L().Error("Failed to release usage slot", zap.Error(err), zap.String("scope", scope), zap.String("feature", d.Feature))
	}
}

// Usage is one feature's spent/allowed pair for the current UTC day
type Usage struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// Snapshot reports today's counters of a scope for all daily features
func (g *Gate) Snapshot(ctx context.Context, scope string) (map[string]Usage, error) {
	day := g.now().UTC().Format("20060102")

	var rows []model.UsageCounter

	err := g.db.WithContext(ctx).
		Where("scope = ? AND day = ?", scope, day).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	out := map[string]Usage{
		FeatureAnalyses: {Limit: Limit(scope, FeatureAnalyses)},
		FeatureAISearch: {Limit: Limit(scope, FeatureAISearch)},
	}

	for _, r := range rows {
		u, ok := out[r.Feature]
		if !ok {
			continue
		}

		u.Used = r.Count
		out[r.Feature] = u
	}

	return out, nil
}

func (g *Gate) count(ctx context.Context, scope, day, feature string) (int64, error) {
	var c int64

	err := g.db.WithContext(ctx).
		Model(model.UsageCounter{}).
		Where("scope = ? AND day = ? AND feature = ?", scope, day, feature).
		Select("count").
		First(&c).
		Error
	if err != nil {
		return 0, err
	}

	return c, nil
}

func untilMidnightUTC(now time.Time) time.Duration {
	next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return next.Sub(now)
}
