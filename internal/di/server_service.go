package di

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/skillswap/internal/eventserver"
)

// EventServerService owns the event server.
type EventServerService struct {
	Server *eventserver.Server
}

// NewEventServer creates the server from configuration. It does not listen.
func NewEventServer(i do.Injector) (*EventServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	srv, err := eventserver.New(cfgSvc.Get().Server, loggerSvc.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event server: %w", err)
	}
	return &EventServerService{Server: srv}, nil
}

// Serve accepts connections on l until Shutdown. A closed server is not an error.
func (s *EventServerService) Serve(l net.Listener) error {
	if err := s.Server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown implements do.Shutdowner.
func (s *EventServerService) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Server.Shutdown(ctx)
}
