package session

import (
	"context"
	"fmt"

	"rtchat/internal/models"
)

// Resolver authenticates a raw token against the session store. Read-only
// and without retries: a failed resolution is terminal for that attempt.
type Resolver struct {
	store    *Store
	decoders []TokenDecoder
}

// NewResolver builds a resolver that tries each decoder in order until
// one yields a session id that maps to a live record.
func NewResolver(store *Store, decoders ...TokenDecoder) *Resolver {
	return &Resolver{store: store, decoders: decoders}
}

func (r *Resolver) Resolve(ctx context.Context, rawToken string) (*models.Identity, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidSession)
	}

	for _, decoder := range r.decoders {
		sid, err := decoder.Decode(rawToken)
		if err != nil {
			continue
		}
		return r.store.Get(ctx, sid)
	}
	return nil, fmt.Errorf("%w: undecodable token", ErrInvalidSession)
}
