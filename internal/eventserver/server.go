// Package eventserver is a development server speaking the event channel wire
// protocol. It authenticates the handshake, acknowledges every event, relays
// swap and message events between clients and tracks per-user rooms.
package eventserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/net/websocket"

	"github.com/omarluq/skillswap/internal/auth"
	"github.com/omarluq/skillswap/internal/channel"
)

var (
	ackOK   = json.RawMessage(`{"ok":true}`)
	ackPong = json.RawMessage(`{"pong":true}`)
)

// Server wraps http.Server with the websocket endpoint and a health route.
type Server struct {
	httpServer *http.Server
	hub        *Hub
	auth       auth.Authenticator
	log        *zerolog.Logger
	cfg        Config
}

// New creates a Server. A nil log discards output.
func New(cfg Config, log *zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	lg := log.With().Str("component", "eventserver").Logger()

	s := &Server{
		cfg:  cfg,
		log:  &lg,
		hub:  newHub(&lg),
		auth: auth.New(cfg.Secrets...),
	}

	// Timeouts: reads stay open for the life of a websocket, so only the
	// header read is bounded.
	s.httpServer = &http.Server{
		Addr:              cfg.GetListen(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Hub returns the connected-client registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving the websocket path and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.GetPath(), websocket.Server{
		Handler: s.serveConn,
		// Non-browser clients send no Origin worth checking.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
	})
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body, _ := sjson.SetBytes([]byte(`{"status":"ok"}`), "clients", s.hub.Len())
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		s.log.Debug().Err(err).Msg("health write failed")
	}
}

// ListenAndServe starts the server (blocks).
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("listen", s.httpServer.Addr).Str("path", s.cfg.GetPath()).Msg("event server listening")
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on l (blocks).
func (s *Server) Serve(l net.Listener) error {
	return s.httpServer.Serve(l)
}

// Shutdown stops accepting connections and closes every websocket.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.hub.closeAll()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) serveConn(ws *websocket.Conn) {
	defer func() {
		if err := ws.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close websocket")
		}
	}()

	p, ok := s.handshake(ws)
	if !ok {
		return
	}

	s.hub.add(p)
	defer s.hub.remove(p.id)

	log := s.log.With().Str("client", p.id).Str("subject", p.subject).Logger()
	log.Info().Int("clients", s.hub.Len()).Msg("client connected")

	for {
		var f channel.Frame
		if err := websocket.JSON.Receive(ws, &f); err != nil {
			log.Info().Err(err).Msg("client disconnected")
			return
		}
		if f.Type != channel.FrameEvent {
			log.Debug().Str("type", string(f.Type)).Msg("ignoring frame")
			continue
		}

		ack := s.handleEvent(p, f)
		if err := p.send(channel.Frame{Type: channel.FrameAck, ID: f.ID, Data: ack}); err != nil {
			log.Warn().Err(err).Str("event", f.Event).Msg("ack failed")
			return
		}
	}
}

// handshake reads the connect frame and authenticates it.
func (s *Server) handshake(ws *websocket.Conn) (*peer, bool) {
	if err := ws.SetReadDeadline(time.Now().Add(s.cfg.GetHandshakeTimeout())); err != nil {
		return nil, false
	}

	var hello channel.Frame
	if err := websocket.JSON.Receive(ws, &hello); err != nil {
		s.log.Debug().Err(err).Msg("handshake read failed")
		return nil, false
	}

	p := &peer{
		ws:           ws,
		id:           uuid.NewString(),
		rooms:        make(map[string]struct{}),
		writeTimeout: s.cfg.GetWriteTimeout(),
	}

	if hello.Type != channel.FrameConnect {
		s.refuse(p, "expected connect frame")
		return nil, false
	}

	token := ""
	if hello.Auth != nil {
		token = hello.Auth.Token
	}
	result := s.auth.Validate(token)
	if !result.Valid {
		s.log.Warn().Str("auth_type", string(result.Type)).Str("error", result.Error).Msg("handshake refused")
		s.refuse(p, result.Error)
		return nil, false
	}
	p.subject = result.Subject

	if err := ws.SetReadDeadline(time.Time{}); err != nil {
		return nil, false
	}

	welcome, _ := sjson.SetBytes([]byte(`{}`), "id", p.id)
	if err := p.send(channel.Frame{Type: channel.FrameConnect, Data: welcome}); err != nil {
		return nil, false
	}
	return p, true
}

func (s *Server) refuse(p *peer, reason string) {
	if err := p.send(channel.Frame{Type: channel.FrameConnectError, Error: reason}); err != nil {
		s.log.Debug().Err(err).Msg("refusal write failed")
	}
}

// handleEvent applies one client event and returns the ack payload.
func (s *Server) handleEvent(p *peer, f channel.Frame) json.RawMessage {
	switch f.Event {
	case channel.EventPing:
		return ackPong

	case channel.EventSwapRequest, channel.EventSwapUpdate, channel.EventMessage:
		s.relay(p, f)
		return ackOK

	case channel.EventJoinRoom:
		userID := gjson.GetBytes(f.Data, "userId").String()
		if userID == "" {
			return ackError("userId required")
		}
		p.join(roomFor(userID))
		return ackOK

	case channel.EventLeaveRoom:
		userID := gjson.GetBytes(f.Data, "userId").String()
		if userID == "" {
			return ackError("userId required")
		}
		p.leave(roomFor(userID))
		return ackOK

	case channel.EventUserStatus:
		status := gjson.GetBytes(f.Data, "status").String()
		if status == "" {
			return ackError("status required")
		}
		event := channel.EventUserOffline
		if status == "online" {
			event = channel.EventUserOnline
		}
		payload, _ := sjson.SetBytes([]byte(`{}`), "clientId", p.id)
		payload, _ = sjson.SetBytes(payload, "status", status)
		s.hub.Broadcast(event, payload, p.id)
		return ackOK

	default:
		return ackError("unknown event " + f.Event)
	}
}

// relay forwards a domain event. A "to" field targets that user's room,
// otherwise every other client receives it.
func (s *Server) relay(p *peer, f channel.Frame) {
	if to := gjson.GetBytes(f.Data, "to").String(); to != "" {
		n := s.hub.Publish(roomFor(to), f.Event, f.Data)
		s.log.Debug().Str("event", f.Event).Str("to", to).Int("delivered", n).Msg("relayed to room")
		return
	}
	n := s.hub.Broadcast(f.Event, f.Data, p.id)
	s.log.Debug().Str("event", f.Event).Int("delivered", n).Msg("broadcast")
}

// Notify publishes a notification to userID's room.
func (s *Server) Notify(userID string, data json.RawMessage) int {
	return s.hub.Publish(roomFor(userID), channel.EventNotification, data)
}

func roomFor(userID string) string {
	return "user:" + userID
}

func ackError(msg string) json.RawMessage {
	payload, _ := sjson.SetBytes([]byte(`{}`), "error", msg)
	return payload
}
