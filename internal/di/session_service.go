package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/skillswap/internal/session"
)

// SessionService exposes the persisted auth session.
type SessionService struct {
	Session *session.Session
}

// NewSession creates the session over the durable store.
func NewSession(i do.Injector) (*SessionService, error) {
	storeSvc := do.MustInvoke[*StoreService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	lg := loggerSvc.Logger.With().Str("component", "session").Logger()
	return &SessionService{Session: session.New(storeSvc.Store, &lg)}, nil
}
