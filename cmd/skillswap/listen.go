package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/omarluq/skillswap/internal/channel"
	"github.com/omarluq/skillswap/internal/di"
	"github.com/omarluq/skillswap/internal/ro"
)

func newListenCmd(a *app) *cobra.Command {
	var (
		token  string
		userID string
		count  int
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print realtime events as JSON lines",
		Long: `Connect to the event server and print every swap, message, notification
and presence event as one JSON object per line. The token defaults to the
persisted session token.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withContainer(func(c *di.Container) error {
				chSvc, err := di.Invoke[*di.ChannelService](c)
				if err != nil {
					return err
				}
				return runListen(cmd.Context(), chSvc, cmd.OutOrStdout(), userID, token, count)
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "auth token (default: persisted session token)")
	cmd.Flags().StringVar(&userID, "user", "", "join this user's room after connecting")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many events (0 waits for a signal)")
	return cmd
}

func runListen(ctx context.Context, chSvc *di.ChannelService, out io.Writer, userID, token string, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := chSvc.Client
	var (
		mu   sync.Mutex
		seen int
	)
	printer := func(event string) channel.Listener {
		return func(data json.RawMessage) error {
			line, err := eventLine(event, data)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if count > 0 && seen >= count {
				return nil
			}
			if _, err := fmt.Fprintln(out, string(line)); err != nil {
				return err
			}
			seen++
			if count > 0 && seen >= count {
				cancel()
			}
			return nil
		}
	}

	for _, event := range channel.DomainEvents {
		client.On(event, printer(event))
	}
	client.On(channel.EventDisconnect, func(data json.RawMessage) error {
		log.Warn().RawJSON("data", data).Msg("event channel disconnected")
		return nil
	})
	client.On(channel.EventReconnectFailed, func(json.RawMessage) error {
		cancel()
		return nil
	})

	if err := chSvc.Connect(ctx, token); err != nil {
		return err
	}

	if userID != "" {
		join := func() {
			if _, err := client.JoinUserRoom(ctx, userID); err != nil {
				log.Warn().Err(err).Str("user", userID).Msg("failed to join room")
			}
		}
		join()
		// Room membership does not survive a new connection.
		client.On(channel.EventConnect, func(json.RawMessage) error {
			go join()
			return nil
		})
	}

	sig, err := ro.WaitForShutdown(ctx)
	if sig != nil {
		log.Info().Str("signal", sig.String()).Msg("stopping listener")
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	mu.Lock()
	done := count > 0 && seen >= count
	mu.Unlock()
	if !done && client.Status() == channel.StatusDisconnected {
		return channel.ErrReconnectFailed
	}
	return nil
}

// eventLine renders {"event":..., "data":...}.
func eventLine(event string, data json.RawMessage) ([]byte, error) {
	line, err := sjson.SetBytes([]byte(`{}`), "event", event)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		data = json.RawMessage(`null`)
	}
	return sjson.SetRawBytes(line, "data", data)
}
