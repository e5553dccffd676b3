package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/omarluq/skillswap/internal/di"
)

func newEmitCmd(a *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "emit <event> [json]",
		Short: "Send one event and print the acknowledgement",
		Example: `  skillswap emit ping
  skillswap emit message '{"to":"u42","text":"hi"}'
  skillswap emit join_room '{"userId":"u42"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(args) == 2 {
				if !gjson.Valid(args[1]) {
					return errors.New("payload is not valid JSON")
				}
				payload = json.RawMessage(args[1])
			}

			return a.withContainer(func(c *di.Container) error {
				chSvc, err := di.Invoke[*di.ChannelService](c)
				if err != nil {
					return err
				}
				if err := chSvc.Connect(cmd.Context(), token); err != nil {
					return err
				}

				ack, err := chSvc.Client.Emit(cmd.Context(), args[0], payload)
				if err != nil {
					return err
				}
				if len(ack) == 0 {
					ack = json.RawMessage(`null`)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(ack))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "auth token (default: persisted session token)")
	return cmd
}
