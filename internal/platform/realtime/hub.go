package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/olahol/melody"
	"github.com/redis/go-redis/v9"

	"hrdesk/internal/platform/metrics"
)

const (
	keyTenantID = "tenantId"
	keyUserID   = "userId"

	defaultChannel = "hrdesk:notifications"
)

type envelope struct {
	TenantID string          `json:"tenantId"`
	UserID   string          `json:"userId"`
	Payload  json.RawMessage `json:"payload"`
}

// Hub pushes JSON payloads to a user's open websocket sessions. With a Redis
// client every instance subscribes to one channel, so a publish on any
// instance reaches sessions held by the others.
type Hub struct {
	melody  *melody.Melody
	redis   *redis.Client
	channel string
	metrics *metrics.Collector
}

func New(client *redis.Client, collector *metrics.Collector) *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 1024
	h := &Hub{melody: m, redis: client, channel: defaultChannel, metrics: collector}
	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get(keyUserID)
		slog.Debug("websocket connected", "userId", userID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		slog.Debug("websocket error", "err", err)
	})
	return h
}

// Serve upgrades the request and binds the session to the caller.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, tenantID, userID string) error {
	return h.melody.HandleRequestWithKeys(w, r, map[string]any{
		keyTenantID: tenantID,
		keyUserID:   userID,
	})
}

func (h *Hub) Publish(ctx context.Context, tenantID, userID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := envelope{TenantID: tenantID, UserID: userID, Payload: raw}
	if h.redis == nil {
		return h.deliver(env)
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return h.redis.Publish(ctx, h.channel, msg).Err()
}

// Run relays messages from the Redis channel until ctx is done. Without Redis it returns at once.
func (h *Hub) Run(ctx context.Context) {
	if h.redis == nil {
		return
	}
	sub := h.redis.Subscribe(ctx, h.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("realtime message decode failed", "err", err)
				continue
			}
			if err := h.deliver(env); err != nil {
				slog.Warn("realtime deliver failed", "userId", env.UserID, "err", err)
			}
		}
	}
}

func (h *Hub) Sessions() int {
	return h.melody.Len()
}

func (h *Hub) Close() error {
	return h.melody.Close()
}

func (h *Hub) deliver(env envelope) error {
	err := h.melody.BroadcastFilter(env.Payload, func(s *melody.Session) bool {
		tenantID, _ := s.Get(keyTenantID)
		userID, _ := s.Get(keyUserID)
		return tenantID == env.TenantID && userID == env.UserID
	})
	if err == nil {
		h.metrics.Inc("realtime.pushed")
	}
	return err
}
