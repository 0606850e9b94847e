package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mentor-agenda/internal/domain/entity"
)

const (
	pendingScheduleKey = "agenda:pending_schedule"
	deadScheduleKey    = "agenda:pending_schedule:dead"
)

// PendingScheduleQueue is a FIFO Redis list: LPUSH to enqueue, RPOP to dequeue.
type PendingScheduleQueue struct {
	client redis.Cmdable
	logger *zap.Logger
}

func NewPendingScheduleQueue(rc *RedisClient, logger *zap.Logger) *PendingScheduleQueue {
	return &PendingScheduleQueue{
		client: rc.Client,
		logger: logger,
	}
}

func (q *PendingScheduleQueue) Push(ctx context.Context, item entity.PendingSchedule) error {
	return q.push(ctx, pendingScheduleKey, item)
}

func (q *PendingScheduleQueue) Bury(ctx context.Context, item entity.PendingSchedule) error {
	return q.push(ctx, deadScheduleKey, item)
}

func (q *PendingScheduleQueue) Pop(ctx context.Context) (*entity.PendingSchedule, error) {
	payload, err := q.client.RPop(ctx, pendingScheduleKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop pending schedule: %w", err)
	}

	var item entity.PendingSchedule
	if err := json.Unmarshal(payload, &item); err != nil {
		// keep malformed entries for inspection
		q.logger.Error("Moving malformed pending schedule to dead-letter list",
			zap.String("payload", string(payload)),
			zap.Error(err),
		)
		if derr := q.client.LPush(ctx, deadScheduleKey, payload).Err(); derr != nil {
			q.logger.Error("Failed to move malformed pending schedule to dead-letter list",
				zap.String("payload", string(payload)),
				zap.Error(derr),
			)
		}
		return nil, fmt.Errorf("decode pending schedule: %w", err)
	}
	return &item, nil
}

func (q *PendingScheduleQueue) push(ctx context.Context, key string, item entity.PendingSchedule) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal pending schedule: %w", err)
	}
	if err := q.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("push pending schedule to %s: %w", key, err)
	}
	return nil
}
