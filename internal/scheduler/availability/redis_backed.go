package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dolphinlong/timetable-core/internal/scheduler/sched"
)

// RedisClient is the subset of *redis.Client the cache memoization needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
}

// BuildRedisBacked memoizes the built unavailable-slot set under
// timetable:availability:<teacher_id>:<snapshotHash> so repeated runs
// against the same (slowly-changing) timetable skip re-scanning
// Availability records. A cache miss or Redis error falls back to Build
// and is never a hard failure — §5 still treats the resulting Cache as
// read-only and safe to share once returned.
func BuildRedisBacked(ctx context.Context, client RedisClient, snapshotHash string, ttl time.Duration, teacherIDs []string, source Source, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{unavailable: make(map[string]map[sched.Slot]struct{}, len(teacherIDs))}
	for _, id := range teacherIDs {
		key := redisKey(id, snapshotHash)
		if client != nil {
			if blocked, ok := loadFromRedis(ctx, client, key); ok {
				c.unavailable[id] = blocked
				continue
			}
		}
		blocked := make(map[sched.Slot]struct{})
		for _, rec := range source.Availability(id) {
			if !rec.Available {
				blocked[sched.Slot{Day: rec.Day, Period: rec.Period}] = struct{}{}
			}
		}
		c.unavailable[id] = blocked
		if client != nil {
			storeToRedis(ctx, client, key, blocked, ttl, log)
		}
	}
	return c
}

func redisKey(teacherID, snapshotHash string) string {
	return fmt.Sprintf("timetable:availability:%s:%s", teacherID, snapshotHash)
}

func loadFromRedis(ctx context.Context, client RedisClient, key string) (map[sched.Slot]struct{}, bool) {
	raw, err := client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var slots []sched.Slot
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil, false
	}
	blocked := make(map[sched.Slot]struct{}, len(slots))
	for _, s := range slots {
		blocked[s] = struct{}{}
	}
	return blocked, true
}

func storeToRedis(ctx context.Context, client RedisClient, key string, blocked map[sched.Slot]struct{}, ttl time.Duration, log *zap.Logger) {
	slots := make([]sched.Slot, 0, len(blocked))
	for s := range blocked {
		slots = append(slots, s)
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Sugar().Debugw("availability cache memoize skipped", "error", err, "key", key)
	}
}
