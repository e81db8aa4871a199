// Package events carries allocator and solver outcomes to external
// collaborators over Redis: promotion notifications on a pub/sub channel and
// a short-lived cache of the committed schedule for read-heavy consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// PromotionChannel is the pub/sub channel the notification collaborator
// subscribes to.
const PromotionChannel = "scheduler:promotions"

// PromotionPublisher pushes waitlist promotion events to Redis pub/sub.
// A nil client disables publishing without disabling promotion itself.
type PromotionPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPromotionPublisher constructs a PromotionPublisher.
func NewPromotionPublisher(client *redis.Client, logger *zap.Logger) *PromotionPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionPublisher{client: client, logger: logger}
}

// PublishPromotion serialises the event and publishes it. Failures are
// returned to the caller, which logs and continues; the seat stays granted.
func (p *PromotionPublisher) PublishPromotion(ctx context.Context, event models.PromotionEvent) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal promotion event %s: %w", event.RequestID, err)
	}
	if err := p.client.Publish(ctx, PromotionChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish promotion event %s: %w", event.RequestID, err)
	}
	p.logger.Debug("promotion event published",
		zap.String("request_id", event.RequestID),
		zap.String("section_id", event.SectionID),
	)
	return nil
}
