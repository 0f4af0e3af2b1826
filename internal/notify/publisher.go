package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes a payload to every subscriber of topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// RedisPublisher publishes JSON payloads on redis pub/sub channels.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	if err := p.client.Publish(ctx, topic, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// NopPublisher discards every event. Used when redis is unavailable.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

func SentenceTopic(bookID uint64) string {
	return fmt.Sprintf("sentences:%d", bookID)
}

func VoteTopic(bookID uint64) string {
	return fmt.Sprintf("books:%d:votes", bookID)
}

func CommentTopic(bookID uint64) string {
	return fmt.Sprintf("comments:%d", bookID)
}

func TypingTopic(bookID uint64) string {
	return fmt.Sprintf("books:%d:typing", bookID)
}

func CommentTypingTopic(bookID uint64) string {
	return fmt.Sprintf("comments:%d:typing", bookID)
}
