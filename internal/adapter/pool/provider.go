package pool

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"courtmatch/internal/adapter/storage"
	"courtmatch/internal/domain/match"
)

const candidateKeyPrefix = "candidate:"

// StoreProvider implements match.PoolProvider over the persistence store.
// Players publish their availability (location, time slots, venues) and each
// search ranks over a snapshot of everything published. Block-list filtering
// stays with the caller through SearchRequest.Excluded.
type StoreProvider struct {
	store storage.Store
	log   zerolog.Logger
}

// NewStoreProvider creates a store-backed candidate pool.
func NewStoreProvider(store storage.Store, log zerolog.Logger) *StoreProvider {
	return &StoreProvider{
		store: store,
		log:   log.With().Str("component", "pool").Logger(),
	}
}

// Upsert publishes or refreshes a player's candidacy.
func (p *StoreProvider) Upsert(ctx context.Context, c match.Candidate) error {
	data, err := json.Marshal(c)
	if err != nil {
		return eris.Wrapf(err, "encoding candidate %s", c.User.ID)
	}
	if err := p.store.Put(ctx, candidateKeyPrefix+c.User.ID, data); err != nil {
		return eris.Wrapf(err, "storing candidate %s", c.User.ID)
	}
	return nil
}

// Withdraw removes a player from the pool.
func (p *StoreProvider) Withdraw(ctx context.Context, userID string) error {
	if err := p.store.Delete(ctx, candidateKeyPrefix+userID); err != nil {
		return eris.Wrapf(err, "withdrawing candidate %s", userID)
	}
	return nil
}

// Candidates returns the current pool snapshot. The requester themselves is
// filtered out by the ranker.
func (p *StoreProvider) Candidates(ctx context.Context, requesterID string) ([]match.Candidate, error) {
	stored, err := p.store.Scan(ctx, candidateKeyPrefix)
	if err != nil {
		return nil, eris.Wrap(err, "scanning candidate pool")
	}

	out := make([]match.Candidate, 0, len(stored))
	for key, data := range stored {
		var c match.Candidate
		if err := json.Unmarshal(data, &c); err != nil {
			p.log.Warn().Err(err).Str("key", key).Msg("skipping undecodable candidate")
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
