// internal/store/cache/draftcache.go

// Package cache persists in-progress application drafts in Redis. It is
// the fallback tier of the draft synchronization logic: it must accept
// writes even when the caller is unauthenticated or the remote document
// store is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"student-portal/internal/models"
)

const draftKeyPrefix = "application_draft_"

// ErrNotFound is returned when no cached draft exists for the key.
var ErrNotFound = errors.New("draft not in cache")

// DraftCache stores JSON draft snapshots under application_draft_{draftId}.
type DraftCache struct {
	rdb *redis.Client
}

// NewDraftCache creates a draft cache over the given Redis client.
func NewDraftCache(rdb *redis.Client) *DraftCache {
	return &DraftCache{rdb: rdb}
}

func draftKey(draftID string) string {
	return draftKeyPrefix + draftID
}

// Put writes the draft snapshot. Drafts have no TTL: an abandoned draft
// stays until the user returns or the store is flushed.
func (c *DraftCache) Put(ctx context.Context, draft *models.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft %s: %w", draft.ID, err)
	}
	if err := c.rdb.Set(ctx, draftKey(draft.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache draft %s: %w", draft.ID, err)
	}
	return nil
}

// Get fetches a draft snapshot by id, or ErrNotFound.
func (c *DraftCache) Get(ctx context.Context, draftID string) (*models.Draft, error) {
	raw, err := c.rdb.Get(ctx, draftKey(draftID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cached draft %s: %w", draftID, err)
	}

	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal cached draft %s: %w", draftID, err)
	}
	return &draft, nil
}

// FindByEmail scans cached drafts for one whose stored owner email
// matches (case-insensitive). Returns ErrNotFound when none match.
func (c *DraftCache) FindByEmail(ctx context.Context, email string) (*models.Draft, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, draftKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan cached drafts: %w", err)
		}

		for _, key := range keys {
			raw, err := c.rdb.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and read
			}
			if err != nil {
				return nil, fmt.Errorf("read cached draft %s: %w", key, err)
			}

			var draft models.Draft
			if err := json.Unmarshal(raw, &draft); err != nil {
				// A corrupt snapshot should not poison the whole scan.
				continue
			}
			if strings.ToLower(draft.Email) == email {
				return &draft, nil
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil, ErrNotFound
}

// Delete removes a cached draft. Missing keys are not an error.
func (c *DraftCache) Delete(ctx context.Context, draftID string) error {
	if err := c.rdb.Del(ctx, draftKey(draftID)).Err(); err != nil {
		return fmt.Errorf("delete cached draft %s: %w", draftID, err)
	}
	return nil
}
