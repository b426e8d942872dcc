// Package session stores the state of in-flight interactive command flows
// in Redis. A flow starts when a command posts a component (a reason menu, a
// confirmation button) and ends when the invoker completes it or the TTL
// tears it down.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no session exists for the given key, either
// because it expired or because another invoker is poking at someone else's
// components.
var ErrNotFound = errors.New("session not found or expired")

// Kind identifies the interactive flow a session belongs to.
type Kind string

const (
	KindWarn Kind = "warn"
	KindMute Kind = "mute"
	KindBan  Kind = "ban"
	KindNote Kind = "note"
)

// State is the persisted state of one interactive flow. The ID doubles as
// the correlation token embedded in component custom IDs.
type State struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	InvokerID     uint64    `json:"invokerId"`
	TargetID      uint64    `json:"targetId"`
	Reason        string    `json:"reason,omitempty"`
	DurationHours int       `json:"durationHours,omitempty"`
	Page          int       `json:"page,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Manager stores flow state in Redis keyed by invoker and correlation ID, so
// a component interaction can only resume a flow its own invoker started.
type Manager struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager creates a session manager backed by the session Redis database.
func NewManager(redisManager *redis.Manager, cfg *config.Session, logger *zap.Logger) (*Manager, error) {
	client, err := redisManager.GetClient(redis.SessionDBIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get session Redis client: %w", err)
	}

	return NewManagerWithClient(client, cfg, logger), nil
}

// NewManagerWithClient creates a session manager on an existing Redis client.
func NewManagerWithClient(client rueidis.Client, cfg *config.Session, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		ttl:    time.Duration(cfg.TTLMinutes) * time.Minute,
		logger: logger.Named("session"),
	}
}

func sessionKey(invokerID uint64, id string) string {
	return fmt.Sprintf("session:%d:%s", invokerID, id)
}

// Create persists a new flow state and returns its correlation ID.
func (m *Manager) Create(ctx context.Context, state *State) (string, error) {
	state.ID = uuid.New().String()
	state.CreatedAt = time.Now()

	if err := m.put(ctx, state); err != nil {
		return "", err
	}

	m.logger.Debug("Created session",
		zap.String("sessionID", state.ID),
		zap.String("kind", string(state.Kind)),
		zap.Uint64("invokerID", state.InvokerID))

	return state.ID, nil
}

// Get loads the flow state for the invoker and correlation ID.
func (m *Manager) Get(ctx context.Context, invokerID uint64, id string) (*State, error) {
	key := sessionKey(invokerID, id)

	resp := m.client.Do(ctx, m.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read session data: %w", err)
	}

	var state State
	if err := sonic.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &state, nil
}

// Update re-persists the flow state, refreshing its TTL.
func (m *Manager) Update(ctx context.Context, state *State) error {
	if state.ID == "" {
		return ErrNotFound
	}

	return m.put(ctx, state)
}

// Delete tears down a completed or abandoned flow.
func (m *Manager) Delete(ctx context.Context, invokerID uint64, id string) error {
	key := sessionKey(invokerID, id)

	if err := m.client.Do(ctx, m.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (m *Manager) put(ctx context.Context, state *State) error {
	data, err := sonic.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(state.InvokerID, state.ID)

	err = m.client.Do(ctx,
		m.client.B().Set().Key(key).Value(string(data)).Ex(m.ttl).Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}
