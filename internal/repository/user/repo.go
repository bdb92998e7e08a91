package user

import (
	"context"
	"fmt"

	"github.com/studydeck/studydeck/internal/domain"
)

// store is the consumer interface for user profiles (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo resolves user display names from profile hashes.
type Repo struct {
	store store
}

func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes a user profile hash.
func (r *Repo) Upsert(ctx context.Context, u domain.User) error {
	fields := map[string]string{"display_name": u.DisplayName}
	if err := r.store.HSet(ctx, Key(u.ID), fields); err != nil {
		return fmt.Errorf("hset user %s: %w", u.ID, err)
	}
	return nil
}

// ResolveNames maps user IDs to display names. Lookups run in batches of
// NameBatchSize; unknown users resolve to UnknownUserName instead of
// failing the whole call.
func (r *Repo) ResolveNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	// Dedupe while preserving one lookup per distinct ID.
	distinct := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	for start := 0; start < len(distinct); start += domain.NameBatchSize {
		end := start + domain.NameBatchSize
		if end > len(distinct) {
			end = len(distinct)
		}
		batch := distinct[start:end]

		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = Key(id)
		}

		results, err := r.store.HGetAllMulti(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("resolve user names: %w", err)
		}

		for i, fields := range results {
			name := fields["display_name"]
			if name == "" {
				name = domain.UnknownUserName
			}
			names[batch[i]] = name
		}
	}

	return names, nil
}

// ResolveName resolves a single user's display name.
func (r *Repo) ResolveName(ctx context.Context, userID string) (string, error) {
	names, err := r.ResolveNames(ctx, []string{userID})
	if err != nil {
		return "", err
	}
	return names[userID], nil
}

// Key returns the store key for a user profile hash.
func Key(id string) string {
	return domain.KeyPrefix + "user:" + id
}
