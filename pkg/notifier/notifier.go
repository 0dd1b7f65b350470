// Package notifier pushes episode change notifications over Redis pub/sub so
// open dashboard sessions refresh without polling.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ChannelPrefix namespaces the per-episode pub/sub channels.
const ChannelPrefix = "chartflow:episode:"

// ChangeMessage is the payload published on an episode channel.
type ChangeMessage struct {
	EpisodeID string    `json:"episode_id"`
	ChangedAt time.Time `json:"changed_at"`
}

// RedisNotifier publishes and subscribes episode change notifications.
type RedisNotifier struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisNotifier connects to Redis from a redis:// URL and verifies the
// connection with a ping.
func NewRedisNotifier(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr)

	return &RedisNotifier{
		client: client,
		logger: logger.With("module", "notifier"),
	}, nil
}

// NotifyEpisode publishes a change message on the episode channel.
func (n *RedisNotifier) NotifyEpisode(ctx context.Context, episodeID string) error {
	payload, err := json.Marshal(ChangeMessage{
		EpisodeID: episodeID,
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change message: %w", err)
	}

	if err := n.client.Publish(ctx, ChannelPrefix+episodeID, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish episode change: %w", err)
	}

	return nil
}

// Subscribe listens for change messages on one episode channel and invokes
// onChange per message until the context is cancelled.
func (n *RedisNotifier) Subscribe(ctx context.Context, episodeID string, onChange func(ChangeMessage)) error {
	sub := n.client.Subscribe(ctx, ChannelPrefix+episodeID)

	go func() {
		defer func() {
			if err := sub.Close(); err != nil {
				n.logger.Error("Error closing episode subscription",
					"episode_id", episodeID, "error", err)
			}
		}()

		channel := sub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-channel:
				if !ok {
					return
				}

				var change ChangeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					n.logger.Error("Malformed change message",
						"episode_id", episodeID, "error", err)

					continue
				}

				onChange(change)
			}
		}
	}()

	return nil
}

// Close releases the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
