package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
	appErrors "github.com/michaelkatsweb/Heronix-Scheduler-sub015/pkg/errors"
)

// ScheduleCacheTTL bounds staleness for downstream readers between solves.
const ScheduleCacheTTL = 10 * time.Minute

// ScheduleCache keeps the latest committed schedule per term in Redis.
// A nil client degrades to a permanent miss.
type ScheduleCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewScheduleCache constructs a ScheduleCache.
func NewScheduleCache(client *redis.Client, logger *zap.Logger) *ScheduleCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleCache{client: client, logger: logger}
}

func scheduleKey(termID string) string {
	return fmt.Sprintf("scheduler:schedule:%s", termID)
}

// Get returns the cached schedule or ErrCacheMiss.
func (c *ScheduleCache) Get(ctx context.Context, termID string) (*models.CommittedSchedule, error) {
	if c.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, scheduleKey(termID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get schedule %s: %w", termID, err)
	}
	var schedule models.CommittedSchedule
	if err := json.Unmarshal(raw, &schedule); err != nil {
		return nil, fmt.Errorf("unmarshal cached schedule %s: %w", termID, err)
	}
	return &schedule, nil
}

// Set stores the committed schedule. Cache failures are logged, not raised;
// the database copy remains the source of truth.
func (c *ScheduleCache) Set(ctx context.Context, schedule *models.CommittedSchedule) {
	if c.client == nil || schedule == nil {
		return
	}
	payload, err := json.Marshal(schedule)
	if err != nil {
		c.logger.Warn("marshal schedule for cache failed", zap.String("term_id", schedule.TermID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, scheduleKey(schedule.TermID), payload, ScheduleCacheTTL).Err(); err != nil {
		c.logger.Warn("cache schedule failed", zap.String("term_id", schedule.TermID), zap.Error(err))
	}
}

// Invalidate drops the cached schedule for a term.
func (c *ScheduleCache) Invalidate(ctx context.Context, termID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, scheduleKey(termID)).Err(); err != nil {
		c.logger.Warn("invalidate schedule cache failed", zap.String("term_id", termID), zap.Error(err))
	}
}
