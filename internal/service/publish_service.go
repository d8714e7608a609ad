package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sosengine/databridge/internal/config"
	"github.com/sosengine/databridge/internal/models"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
)

// RedisChannel mirrors every message sent on the streaming connection, so
// local consumers can tap the feed without joining the websocket.
var RedisChannel = "ch_bridge_stream"

// Publish cadences
const (
	candleInterval    = 10 * time.Second
	sentimentInterval = 30 * time.Second
	chainInterval     = 60 * time.Second
)

// Reconnect backoff bounds
const (
	backoffFloor   = 1 * time.Second
	backoffCeiling = 60 * time.Second
)

// nextBackoff doubles the delay up to the ceiling
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > backoffCeiling {
		return backoffCeiling
	}
	return next
}

// connEpoch owns one websocket connection and the lifetime of the publish
// tasks bound to it. A failed send cancels the epoch, which stops every task
// of that connection; tasks of a dead epoch can never write to a newer one.
type connEpoch struct {
	conn    *websocket.Conn
	ctx     context.Context
	cancel  context.CancelFunc
	writeMu sync.Mutex
}

// send serializes and writes one message. The first write failure tears the
// whole epoch down.
func (e *connEpoch) send(msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	e.writeMu.Lock()
	err = e.conn.WriteMessage(websocket.TextMessage, payload)
	e.writeMu.Unlock()

	if err != nil {
		e.cancel()
		return err
	}
	return nil
}

// BridgeStatus is the supervisor state exposed over the API
type BridgeStatus struct {
	State       models.ConnectionState `json:"state"`
	Backoff     string                 `json:"backoff"`
	CandleTier  models.SourceTier      `json:"candle_tier"`
	LastError   string                 `json:"last_error,omitempty"`
	ConnectedAt int64                  `json:"connected_at,omitempty"`
}

// PublishService supervises the outbound streaming connection to the engine.
// It dials, runs the periodic publish tasks for the life of the connection
// and reconnects with doubling backoff when anything fails.
type PublishService struct {
	cfg         *config.Config
	candles     *CandleService
	sentiment   *SentimentService
	chains      *OptionChainService
	redisClient *redis.Client

	mu     sync.RWMutex
	status BridgeStatus
}

// NewPublishService creates a new publish service
func NewPublishService(cfg *config.Config, candles *CandleService, sentiment *SentimentService, chains *OptionChainService, redisClient *redis.Client) *PublishService {
	return &PublishService{
		cfg:         cfg,
		candles:     candles,
		sentiment:   sentiment,
		chains:      chains,
		redisClient: redisClient,
		status:      BridgeStatus{State: models.StateDisconnected, Backoff: backoffFloor.String()},
	}
}

// Status returns a copy of the supervisor status
func (s *PublishService) Status() BridgeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *PublishService) setState(state models.ConnectionState) {
	s.mu.Lock()
	s.status.State = state
	if state == models.StateConnected {
		s.status.ConnectedAt = time.Now().Unix()
		s.status.LastError = ""
	}
	s.mu.Unlock()
}

func (s *PublishService) recordError(err error) {
	s.mu.Lock()
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

func (s *PublishService) recordBackoff(backoff time.Duration) {
	s.mu.Lock()
	s.status.Backoff = backoff.String()
	s.mu.Unlock()
}

func (s *PublishService) recordCandleTier(tier models.SourceTier) {
	s.mu.Lock()
	s.status.CandleTier = tier
	s.mu.Unlock()
}

// Run is the supervisor loop. It returns only when ctx is cancelled.
func (s *PublishService) Run(ctx context.Context) {
	backoff := backoffFloor

	for ctx.Err() == nil {
		s.setState(models.StateConnecting)
		zaplogger.Info("connecting to engine", zaplogger.Fields{
			"url": s.cfg.EngineWSURL,
		})

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.EngineWSURL, nil)
		if err != nil {
			s.setState(models.StateDisconnected)
			s.recordError(err)
			zaplogger.Warn("engine connection failed", zaplogger.Fields{
				"error":   err.Error(),
				"retryIn": backoff.String(),
			})
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			s.recordBackoff(backoff)
			continue
		}

		// Connected; the backoff resets so the next failure starts over
		s.setState(models.StateConnected)
		backoff = backoffFloor
		s.recordBackoff(backoff)
		zaplogger.Info("connected to engine")

		s.runEpoch(ctx, conn)

		s.setState(models.StateDisconnected)
		zaplogger.Warn("engine connection lost", zaplogger.Fields{
			"retryIn": backoff.String(),
		})
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
		s.recordBackoff(backoff)
	}
}

// sleepCtx sleeps for d, returning false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// runEpoch runs the publish tasks against one connection until the epoch
// dies: send failure, remote close or supervisor shutdown.
func (s *PublishService) runEpoch(ctx context.Context, conn *websocket.Conn) {
	epochCtx, cancel := context.WithCancel(ctx)
	epoch := &connEpoch{conn: conn, ctx: epochCtx, cancel: cancel}
	defer cancel()
	defer conn.Close()

	// Drain inbound frames so remote closes surface as read errors
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.candleTask(epoch)
	}()
	go func() {
		defer wg.Done()
		s.sentimentTask(epoch)
	}()
	if s.cfg.IsOptionChainEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.chainTask(epoch)
		}()
	}
	wg.Wait()
}

// publish sends on the websocket and mirrors the message to Redis. Mirror
// failures are logged, never fatal; the stream is the primary surface.
func (s *PublishService) publish(epoch *connEpoch, msg models.Message) error {
	if err := epoch.send(msg); err != nil {
		s.recordError(err)
		return err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(msg)
		if err == nil {
			if err := s.redisClient.Publish(epoch.ctx, RedisChannel, payload).Err(); err != nil {
				zaplogger.Debug("redis mirror publish failed", zaplogger.Fields{
					"error": err.Error(),
				})
			}
		}
	}
	return nil
}

func (s *PublishService) candleTask(epoch *connEpoch) {
	ticker := time.NewTicker(candleInterval)
	defer ticker.Stop()

	for {
		batch, tier, err := s.candles.FetchAll(epoch.ctx)
		if err != nil {
			zaplogger.Warn("candle cycle exhausted all sources", zaplogger.Fields{
				"error": err.Error(),
			})
		} else {
			s.recordCandleTier(tier)
			for _, snapshot := range batch {
				if err := s.publish(epoch, models.CandleMessage(snapshot)); err != nil {
					return
				}
			}
		}

		select {
		case <-epoch.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *PublishService) sentimentTask(epoch *connEpoch) {
	ticker := time.NewTicker(sentimentInterval)
	defer ticker.Stop()

	for {
		state := s.sentiment.UpdateCycle(epoch.ctx)
		msg := models.Message{
			Type:      models.MessageSentimentUpdate,
			Timestamp: time.Now().UnixMilli(),
			Data:      models.SentimentPayload{Regime: string(state.Regime)},
		}
		if err := s.publish(epoch, msg); err != nil {
			return
		}

		select {
		case <-epoch.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *PublishService) chainTask(epoch *connEpoch) {
	ticker := time.NewTicker(chainInterval)
	defer ticker.Stop()

	for {
		for _, index := range TrackedIndices {
			chain, err := s.chains.RefreshChain(epoch.ctx, index)
			if err != nil || len(chain) == 0 {
				continue
			}
			msg := models.Message{
				Type:      models.MessageOptionChainUpdate,
				Timestamp: time.Now().UnixMilli(),
				Data:      models.OptionChainPayload{Symbol: index, Chain: chain},
			}
			if err := s.publish(epoch, msg); err != nil {
				return
			}
		}

		select {
		case <-epoch.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
