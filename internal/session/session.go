// Package session persists the signed-in user's auth token and profile
// in the same durable store the cache uses.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/skillswap/internal/cache"
)

// Well-known storage keys. The cache refuses any prefix that covers them.
const (
	AuthTokenKey = cache.SessionTokenKey
	UserDataKey  = cache.SessionUserKey
)

// Session reads and writes persisted session data.
type Session struct {
	store cache.Store
	log   *zerolog.Logger
}

// New creates a Session over store.
func New(store cache.Store, log *zerolog.Logger) *Session {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Session{store: store, log: log}
}

// Token returns the persisted auth token. Read failures are logged and reported as absent.
func (s *Session) Token(ctx context.Context) mo.Option[string] {
	data, err := s.store.Get(ctx, AuthTokenKey)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.log.Warn().Err(err).Msg("failed to read auth token")
		}
		return mo.None[string]()
	}
	if len(data) == 0 {
		return mo.None[string]()
	}
	return mo.Some(string(data))
}

// SetToken persists the auth token.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("session: empty token")
	}
	if err := s.store.Set(ctx, AuthTokenKey, []byte(token)); err != nil {
		return fmt.Errorf("session: store token: %w", err)
	}
	return nil
}

// UserData returns the persisted user profile as raw JSON.
func (s *Session) UserData(ctx context.Context) mo.Option[json.RawMessage] {
	data, err := s.store.Get(ctx, UserDataKey)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.log.Warn().Err(err).Msg("failed to read user data")
		}
		return mo.None[json.RawMessage]()
	}
	if !json.Valid(data) {
		s.log.Warn().Msg("persisted user data is not valid JSON")
		return mo.None[json.RawMessage]()
	}
	return mo.Some(json.RawMessage(data))
}

// SetUserData persists the user profile.
func (s *Session) SetUserData(ctx context.Context, user any) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user data: %w", err)
	}
	if err := s.store.Set(ctx, UserDataKey, data); err != nil {
		return fmt.Errorf("session: store user data: %w", err)
	}
	return nil
}

// Clear removes the token and profile, as on logout.
func (s *Session) Clear(ctx context.Context) error {
	return errors.Join(
		s.store.Delete(ctx, AuthTokenKey),
		s.store.Delete(ctx, UserDataKey),
	)
}
