package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/omarluq/skillswap/internal/channel"
	"github.com/omarluq/skillswap/internal/health"
)

// ChannelService owns the event-channel client. Tokens come from the
// persisted session when Connect is called without one.
type ChannelService struct {
	Client  *channel.Client
	tracker *health.Tracker
}

// NewChannel creates the client. It does not dial.
func NewChannel(i do.Injector) (*ChannelService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	sessionSvc := do.MustInvoke[*SessionService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	client, err := channel.New(
		cfgSvc.Get().Channel,
		channel.WithTokenSource(sessionSvc.Session),
		channel.WithLogger(loggerSvc.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel client: %w", err)
	}
	return &ChannelService{Client: client, tracker: trackerSvc.Tracker}, nil
}

// Connect dials the event server. Disconnect drops every listener, so the
// health listeners are registered again whenever they are missing.
func (s *ChannelService) Connect(ctx context.Context, token string) error {
	if s.Client.ListenerCount(channel.EventConnect) == 0 {
		trackChannel(s.Client, s.tracker)
	}
	return s.Client.Connect(ctx, token)
}

// Shutdown implements do.Shutdowner.
func (s *ChannelService) Shutdown() error {
	return s.Client.Close()
}
