package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"custody-capital-go/internal/models"
	"custody-capital-go/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ store.Notifier = LogNotifier{}
	_ store.Notifier = (*RedisNotifier)(nil)
	_ store.Notifier = Multi(nil)
)

// LogNotifier writes notifications to the global logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n models.Notification) error {
	fields := []zap.Field{
		zap.String("id", n.Id),
		zap.String("agent", n.Agent),
		zap.String("action", n.Action),
		zap.String("asset", n.AssetId),
		zap.String("amount", n.Amount.String()),
	}
	if n.Account != "" {
		fields = append(fields, zap.String("account", n.Account))
	}
	if n.ExternalId != nil {
		fields = append(fields, zap.String("external_id", n.ExternalId.String()))
	}
	if n.AllocationId != nil {
		fields = append(fields, zap.Uint64("allocation_id", *n.AllocationId))
	}
	zap.L().Info("Notification", fields...)
	return nil
}

// RedisNotifier publishes notifications as JSON on a Redis channel.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// DialRedis parses url, connects and pings the server.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", opts.Addr))
	return client, nil
}

func (r *RedisNotifier) Notify(ctx context.Context, n models.Notification) error {
	payload, err := encode(n)
	if err != nil {
		return err
	}
	receivers, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("unable to publish notification %s: %w", n.Id, err)
	}
	if receivers == 0 {
		zap.L().Debug("Notification published with no subscribers",
			zap.String("channel", r.channel),
			zap.String("id", n.Id))
	}
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []store.Notifier

func (m Multi) Notify(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func encode(n models.Notification) (string, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("unable to encode notification: %w", err)
	}
	return string(b), nil
}
