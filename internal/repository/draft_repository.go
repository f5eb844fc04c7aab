package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"slabdesk/internal/cache"
	"slabdesk/internal/workflow"
)

const draftKeyPrefix = "draft:"

// AnyVersion makes Save overwrite whatever is stored.
const AnyVersion = -1

var (
	ErrDraftNotFound = errors.New("draft not found")
	// ErrVersionConflict is returned when the stored draft changed since it was read.
	ErrVersionConflict = errors.New("draft was modified concurrently")
)

// DraftRepository persists link compositions between requests.
type DraftRepository interface {
	Save(ctx context.Context, draft workflow.Draft, base int) error
	FindByID(ctx context.Context, ownerID, id string) (workflow.Draft, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// CacheDraftRepository keeps drafts in the shared cache with a sliding TTL.
// Drafts are scoped by owner so one seller cannot load another's.
type CacheDraftRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewDraftRepository(c cache.Cache, ttl time.Duration) *CacheDraftRepository {
	return &CacheDraftRepository{cache: c, ttl: ttl}
}

func draftKey(ownerID, id string) string {
	return draftKeyPrefix + ownerID + ":" + id
}

// Save stores draft if the stored copy is still at base, the version the
// caller loaded. base 0 creates a new draft; AnyVersion overwrites.
func (r *CacheDraftRepository) Save(ctx context.Context, draft workflow.Draft, base int) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	check := func(current []byte) error {
		if base == AnyVersion {
			return nil
		}
		if current == nil {
			if base == 0 {
				return nil
			}
			return ErrDraftNotFound
		}
		var stored struct {
			Version int `json:"version"`
		}
		if err := json.Unmarshal(current, &stored); err != nil {
			return fmt.Errorf("decode stored draft: %w", err)
		}
		if stored.Version != base {
			return ErrVersionConflict
		}
		return nil
	}

	err = r.cache.Swap(ctx, draftKey(draft.OwnerID, draft.ID), check, data, r.ttl)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cache.ErrConcurrentUpdate):
		return ErrVersionConflict
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrDraftNotFound):
		return err
	}
	return fmt.Errorf("save draft: %w", err)
}

func (r *CacheDraftRepository) FindByID(ctx context.Context, ownerID, id string) (workflow.Draft, error) {
	var draft workflow.Draft
	err := cache.GetJSON(ctx, r.cache, draftKey(ownerID, id), &draft)
	if errors.Is(err, cache.ErrCacheMiss) {
		return workflow.Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return workflow.Draft{}, fmt.Errorf("load draft: %w", err)
	}
	return draft, nil
}

func (r *CacheDraftRepository) Delete(ctx context.Context, ownerID, id string) error {
	return r.cache.Delete(ctx, draftKey(ownerID, id))
}

// DeleteByOwner drops every draft of a seller, used when an account is deactivated.
func (r *CacheDraftRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	return r.cache.DeleteByPattern(ctx, draftKeyPrefix+ownerID+":*")
}
