package data

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// Sink publishes events onto redis streams, one stream per topic. Consumers
// (the notifier daemon, frontends) read with XREAD.
type Sink struct {
	rdb *redis.Client
}

func NewSink(rdb *redis.Client) Sink {
	return Sink{rdb: rdb}
}

func (s Sink) Emit(ctx context.Context, topic string, payload map[string]any) error {
	payload["event_id"] = uuid.NewString()
	_, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: payload,
	}).Result()
	return err
}
