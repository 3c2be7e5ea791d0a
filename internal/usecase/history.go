package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsrag/internal/domain"
	"newsrag/internal/port"
)

const (
	historyKeyPrefix   = "chat:"
	DefaultMaxMessages = 50
	DefaultHistoryTTL  = time.Hour
)

var _ port.HistoryStore = (*HistoryUseCase)(nil)

// HistoryUseCase keeps each session's messages as one JSON array in the KV
// store. Every write resets the session's expiry.
type HistoryUseCase struct {
	kv          port.KVStore
	ttl         time.Duration
	maxMessages int
	log         *slog.Logger
	now         func() time.Time
	newID       func() string

	// serializes read-modify-write appends within this process
	mu sync.Mutex
}

func NewHistoryUseCase(kv port.KVStore, ttl time.Duration, maxMessages int, log *slog.Logger) *HistoryUseCase {
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if log == nil {
		log = slog.Default()
	}
	return &HistoryUseCase{
		kv:          kv,
		ttl:         ttl,
		maxMessages: maxMessages,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// WithClock replaces the time source used for message timestamps.
func (u *HistoryUseCase) WithClock(now func() time.Time) *HistoryUseCase {
	u.now = now
	return u
}

func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

// Append adds msg to the session, filling in its id and timestamp when
// missing, and keeps only the newest messages.
func (u *HistoryUseCase) Append(ctx context.Context, sessionID string, msg domain.Message) (domain.Message, error) {
	if msg.ID == "" {
		msg.ID = u.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = u.now().UTC()
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	history := append(u.Read(ctx, sessionID), msg)
	if len(history) > u.maxMessages {
		history = history[len(history)-u.maxMessages:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return msg, err
	}
	key := historyKey(sessionID)
	if err := u.kv.Set(ctx, key, data, u.ttl); err != nil {
		return msg, &domain.StorageError{Op: "set", Key: key, Err: err}
	}
	return msg, nil
}

// Read returns the session's messages, oldest first. Missing, expired or
// unreadable histories read as empty.
func (u *HistoryUseCase) Read(ctx context.Context, sessionID string) []domain.Message {
	key := historyKey(sessionID)
	data, err := u.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			u.log.Warn("failed to read chat history", "session", sessionID, "error", err)
		}
		return []domain.Message{}
	}

	var history []domain.Message
	if err := json.Unmarshal(data, &history); err != nil {
		u.log.Warn("discarding malformed chat history", "session", sessionID, "error", err)
		return []domain.Message{}
	}
	if history == nil {
		history = []domain.Message{}
	}
	return history
}

func (u *HistoryUseCase) Clear(ctx context.Context, sessionID string) error {
	key := historyKey(sessionID)
	if err := u.kv.Delete(ctx, key); err != nil {
		return &domain.StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
