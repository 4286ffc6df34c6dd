package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rtchat/internal/database"
	"rtchat/internal/models"
	"rtchat/pkg/logger"
)

// History sources, reported for observability.
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

const DefaultHistoryLimit = 50

// RecentCache is the bounded per-room lookaside window in front of the log.
type RecentCache interface {
	FetchRecent(ctx context.Context, roomID string, limit int) ([]string, error)
	AppendAndTrim(ctx context.Context, roomID, payload string) error
	Invalidate(ctx context.Context, roomID string) error
	Fill(ctx context.Context, roomID string, payloads []string) error
	Capacity() int
}

// MessageService owns the write path (log append + incremental cache
// update) and the cache-aside read path for room history.
type MessageService struct {
	log   database.MessageLog
	cache RecentCache
}

func NewMessageService(log database.MessageLog, cache RecentCache) *MessageService {
	return &MessageService{log: log, cache: cache}
}

// Append durably persists one message, then updates the cache window
// incrementally so the hot path never re-reads the log. The log is the
// source of truth: a cache failure is logged and the append still
// succeeds, while a log failure aborts with the cache untouched.
func (s *MessageService) Append(ctx context.Context, roomID string, identity *models.Identity, content string) (*models.Message, error) {
	msg, err := s.log.AppendMessage(ctx, roomID, identity.UserID, identity.Username, content, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to serialize message %s for cache: %v", msg.ID, err)
		return msg, nil
	}
	if err := s.cache.AppendAndTrim(ctx, roomID, string(payload)); err != nil {
		logger.Error("Failed to cache message for room %s: %v", roomID, err)
	}

	return msg, nil
}

// History returns up to limit messages in chronological order, tagged
// with the source that served them.
//
// Cache-aside: an unpaginated request is served from the cache when it
// holds at least limit entries; otherwise the log is queried and, if it
// returned anything, the cache is refreshed with the newest window.
// Paginated requests (before set) address history outside the recent
// window and never touch the cache.
func (s *MessageService) History(ctx context.Context, roomID string, limit int, before *time.Time) ([]*models.Message, string, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	if before == nil {
		if msgs := s.fromCache(ctx, roomID, limit); msgs != nil {
			return msgs, SourceCache, nil
		}
	}

	rows, err := s.log.QueryMessages(ctx, roomID, limit, before)
	if err != nil {
		return nil, "", fmt.Errorf("query messages: %w", err)
	}

	if before == nil && len(rows) > 0 {
		s.refresh(ctx, roomID, rows)
	}

	// Newest-first from the log, chronological for the caller
	msgs := make([]*models.Message, len(rows))
	for i, row := range rows {
		msgs[len(rows)-1-i] = row
	}
	return msgs, SourceDatabase, nil
}

// fromCache returns the newest limit cached messages in chronological
// order, or nil when the cache cannot satisfy the request.
func (s *MessageService) fromCache(ctx context.Context, roomID string, limit int) []*models.Message {
	entries, err := s.cache.FetchRecent(ctx, roomID, limit)
	if err != nil {
		logger.Error("Cache read for room %s: %v", roomID, err)
		return nil
	}
	if len(entries) < limit {
		return nil
	}

	msgs := make([]*models.Message, 0, len(entries))
	for _, entry := range entries {
		msg := &models.Message{}
		if err := json.Unmarshal([]byte(entry), msg); err != nil {
			logger.Error("Corrupt cache entry for room %s: %v", roomID, err)
			return nil
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// refresh seeds the cache with the newest window after a miss. Failures
// only cost the next reader a log query.
func (s *MessageService) refresh(ctx context.Context, roomID string, newestFirst []*models.Message) {
	n := len(newestFirst)
	if capacity := s.cache.Capacity(); n > capacity {
		n = capacity
	}

	payloads := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		data, err := json.Marshal(newestFirst[i])
		if err != nil {
			logger.Error("Failed to serialize message %s for cache: %v", newestFirst[i].ID, err)
			return
		}
		payloads = append(payloads, string(data))
	}

	if err := s.cache.Invalidate(ctx, roomID); err != nil {
		logger.Error("Cache invalidate for room %s: %v", roomID, err)
		return
	}
	if err := s.cache.Fill(ctx, roomID, payloads); err != nil {
		logger.Error("Cache fill for room %s: %v", roomID, err)
	}
}
