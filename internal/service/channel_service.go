package service

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sosengine/databridge/internal/repository"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// ChannelService bridges the Postgres NOTIFY channel fired on every persisted
// option chain snapshot into a Redis channel of the same name. Consumers that
// cannot hold a Postgres connection subscribe to Redis instead.
type ChannelService struct {
	pgDsn       string
	redisClient *redis.Client
}

// NewChannelService creates a new channel service
func NewChannelService(pgDsn string, redisClient *redis.Client) *ChannelService {
	return &ChannelService{
		pgDsn:       pgDsn,
		redisClient: redisClient,
	}
}

// Run listens for snapshot notifications until ctx is cancelled. The pq
// listener reconnects on its own; a ping keeps half-dead connections from
// lingering silently.
func (s *ChannelService) Run(ctx context.Context) {
	listener := pq.NewListener(s.pgDsn, listenerMinReconnect, listenerMaxReconnect,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				zaplogger.Warn("snapshot listener event", zaplogger.Fields{
					"event": int(event),
					"error": err.Error(),
				})
			}
		})
	defer listener.Close()

	if err := listener.Listen(repository.SnapshotChannel); err != nil {
		zaplogger.Error("failed to listen on snapshot channel", zaplogger.Fields{
			"channel": repository.SnapshotChannel,
			"error":   err.Error(),
		})
		return
	}
	zaplogger.Info("listening for snapshot notifications", zaplogger.Fields{
		"channel": repository.SnapshotChannel,
	})

	for {
		select {
		case <-ctx.Done():
			return

		case n := <-listener.Notify:
			if n == nil {
				// nil notification means the listener reconnected
				continue
			}
			if err := s.redisClient.Publish(ctx, repository.SnapshotChannel, n.Extra).Err(); err != nil {
				zaplogger.Warn("failed to republish snapshot notification", zaplogger.Fields{
					"error": err.Error(),
				})
			}

		case <-time.After(listenerPingInterval):
			if err := listener.Ping(); err != nil {
				zaplogger.Warn("snapshot listener ping failed", zaplogger.Fields{
					"error": err.Error(),
				})
			}
		}
	}
}
