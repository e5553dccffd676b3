package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/omarluq/skillswap/internal/di"
	"github.com/omarluq/skillswap/internal/session"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the persisted auth session",
	}
	cmd.AddCommand(newSessionLoginCmd(a), newSessionLogoutCmd(a), newSessionShowCmd(a))
	return cmd
}

func (a *app) withSession(fn func(*session.Session) error) error {
	return a.withContainer(func(c *di.Container) error {
		svc, err := di.Invoke[*di.SessionService](c)
		if err != nil {
			return err
		}
		return fn(svc.Session)
	})
}

func newSessionLoginCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "login <token>",
		Short: "Persist an auth token and optional user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if user != "" && !gjson.Valid(user) {
				return errors.New("--user is not valid JSON")
			}
			return a.withSession(func(s *session.Session) error {
				if err := s.SetToken(cmd.Context(), args[0]); err != nil {
					return err
				}
				if user != "" {
					if err := s.SetUserData(cmd.Context(), json.RawMessage(user)); err != nil {
						return err
					}
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "✓ session saved")
				return err
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user profile as JSON")
	return cmd
}

func newSessionLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the persisted token and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(func(s *session.Session) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "✓ session cleared")
				return err
			})
		},
	}
}

type sessionView struct {
	User     json.RawMessage `json:"user,omitempty"`
	Token    string          `json:"token,omitempty"`
	LoggedIn bool            `json:"logged_in"`
}

func newSessionShowCmd(a *app) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(func(s *session.Session) error {
				var view sessionView
				if token, ok := s.Token(cmd.Context()).Get(); ok {
					view.LoggedIn = true
					view.Token = maskToken(token)
					if reveal {
						view.Token = token
					}
				}
				view.User = s.UserData(cmd.Context()).OrEmpty()
				return writeJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the full token")
	return cmd
}

// maskToken keeps the last four characters.
func maskToken(token string) string {
	const visible = 4
	if len(token) <= visible {
		return "****"
	}
	return "****" + token[len(token)-visible:]
}
