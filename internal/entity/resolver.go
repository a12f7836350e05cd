// Package entity maps conversation identifiers to human readable labels.
package entity

import (
	"context"
	"strconv"
	"sync"

	"github.com/xaenox/relay-bot/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Lookup fetches entity metadata from the transport.
type Lookup interface {
	ResolveEntity(ctx context.Context, conv models.Conversation) (*models.Entity, error)
}

// DialogRefresher is implemented by transports that can reload their peer
// list. The resolver uses it for one retry after a failed lookup.
type DialogRefresher interface {
	RefreshDialogs(ctx context.Context) error
}

// Resolver memoizes labels for the life of the process. Failed lookups are
// not cached.
type Resolver struct {
	lookup Lookup
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[int64]string
	group singleflight.Group
}

func NewResolver(lookup Lookup, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: logger,
		cache:  make(map[int64]string),
	}
}

// Resolve returns the label for conv, falling back to the numeric id.
func (r *Resolver) Resolve(ctx context.Context, conv models.Conversation) string {
	if label, ok := r.cached(conv.ID); ok {
		return label
	}

	v, err, _ := r.group.Do(strconv.FormatInt(conv.ID, 10), func() (any, error) {
		if label, ok := r.cached(conv.ID); ok {
			return label, nil
		}
		label, err := r.fetch(ctx, conv)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[conv.ID] = label
		r.mu.Unlock()
		return label, nil
	})
	if err != nil {
		r.logger.Warn("Falling back to id label",
			zap.Error(err),
			zap.Int64("entity_id", conv.ID),
			zap.String("kind", string(conv.Kind)))
		return conv.String()
	}
	return v.(string)
}

// Len returns the number of cached labels.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) cached(id int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	label, ok := r.cache[id]
	return label, ok
}

func (r *Resolver) fetch(ctx context.Context, conv models.Conversation) (string, error) {
	ent, err := r.lookup.ResolveEntity(ctx, conv)
	if err == nil {
		return Label(conv, ent), nil
	}

	refresher, ok := r.lookup.(DialogRefresher)
	if !ok {
		return "", err
	}
	r.logger.Info("Entity lookup failed, refreshing dialogs",
		zap.Error(err),
		zap.Int64("entity_id", conv.ID))
	if rerr := refresher.RefreshDialogs(ctx); rerr != nil {
		r.logger.Error("Failed to refresh dialogs", zap.Error(rerr))
		return "", err
	}

	ent, err = r.lookup.ResolveEntity(ctx, conv)
	if err != nil {
		return "", err
	}
	return Label(conv, ent), nil
}

// Label picks the display label: title, then username, then first name, then
// the numeric id.
func Label(conv models.Conversation, ent *models.Entity) string {
	switch {
	case ent == nil:
		return conv.String()
	case ent.Title != "":
		return ent.Title
	case ent.Username != "":
		return ent.Username
	case ent.FirstName != "":
		return ent.FirstName
	default:
		return conv.String()
	}
}
