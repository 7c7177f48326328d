package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"popquiz-service/internal/app"
	"popquiz-service/internal/auth"
	"popquiz-service/internal/domain"
	"popquiz-service/internal/leaderboard"
	"popquiz-service/internal/logging"
)

// WSHandler runs one quiz screen per WebSocket connection: the connection
// owns an identity client, a session engine and at most one live leaderboard.
type WSHandler struct {
	service  *app.QuizService
	identity auth.Provider
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(service *app.QuizService, identity auth.Provider, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service:  service,
		identity: identity,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type restorePayload struct {
	Token string `json:"token"`
}

type startPayload struct {
	CategoryID string `json:"categoryId"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type identityPayload struct {
	Identity *domain.Identity `json:"identity"`
}

var (
	errBadPayload  = errors.New("invalid payload")
	errUnsupported = errors.New("unsupported message type")
)

// wsConn is the per-connection state shared by the read loop and forwarders.
type wsConn struct {
	h         *WSHandler
	sessionID string
	client    *auth.Client
	engine    *app.Engine
	view      *leaderboard.View
	logger    zerolog.Logger

	send         chan outboundMessage[any]
	closeSignals chan struct{}
	forwarders   sync.WaitGroup
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	client := auth.NewClient(h.identity)
	sessionID, engine := h.service.Open(client)
	defer h.service.Close(sessionID)

	c := &wsConn{
		h:            h,
		sessionID:    sessionID,
		client:       client,
		engine:       engine,
		view:         h.service.NewLeaderboardView(),
		logger:       h.logger.With().Str("session_id", sessionID).Logger(),
		send:         make(chan outboundMessage[any], 32),
		closeSignals: make(chan struct{}),
	}
	c.logger.Debug().Msg("connection opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.Debug().Err(err).Msg("ws write error")
				// Keep draining so senders never block on a dead peer.
				for range c.send {
				}
				return
			}
		}
	}()

	identities, cancelIdentity := client.Subscribe()
	forward(c, "identity", identities, func(id *domain.Identity) any { return identityPayload{Identity: id} })
	forward(c, "notice", engine.Notices(), func(n domain.Notice) any { return n })

	c.send <- outboundMessage[any]{Type: "categories", Payload: h.service.Categories()}
	c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := c.dispatch(r.Context(), inbound); err != nil {
			payload, _ := describeError(err)
			if errors.Is(err, errBadPayload) || errors.Is(err, errUnsupported) {
				payload = errorPayload{Code: CodeBadRequest, Message: err.Error()}
			}
			c.send <- outboundMessage[any]{Type: "error", Payload: payload}
		}
	}

	close(c.closeSignals)
	c.view.Stop()
	cancelIdentity()
	c.forwarders.Wait()
	close(c.send)
	<-writerDone
	c.logger.Debug().Msg("connection closed")
}

func (c *wsConn) dispatch(ctx context.Context, in inboundMessage) error {
	switch in.Type {
	case "signUp", "signIn":
		var p credentialsPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		signIn := c.client.SignIn
		if in.Type == "signUp" {
			signIn = c.client.SignUp
		}
		creds, err := signIn(ctx, p.Email, p.Password)
		if err != nil {
			return err
		}
		c.send <- outboundMessage[any]{Type: "credentials", Payload: creds}
		c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}
	case "restore":
		var p restorePayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		if _, err := c.client.Restore(ctx, p.Token); err != nil {
			return err
		}
		c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}
	case "signOut":
		if err := c.client.SignOut(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("token revocation failed")
		}
		c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}
	case "categories":
		c.send <- outboundMessage[any]{Type: "categories", Payload: c.h.service.Categories()}
	case "start":
		var p startPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		if _, err := c.h.service.Start(ctx, c.sessionID, p.CategoryID); err != nil {
			return err
		}
		c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}
	case "answer":
		var p answerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		outcome, err := c.engine.SelectAnswer(p.Option)
		if err != nil {
			return err
		}
		c.send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
		c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}
	case "next":
		phase, err := c.engine.Advance()
		if err != nil {
			return err
		}
		if phase == domain.PhaseCompleted {
			c.send <- outboundMessage[any]{Type: "completed", Payload: newCompletedView(c.engine.State())}
			return nil
		}
		c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}
	case "abandon":
		c.engine.Abandon()
		c.send <- outboundMessage[any]{Type: "session", Payload: c.sessionView()}
	case "watchLeaderboard":
		viewerID := ""
		if id := c.client.Current(); id != nil {
			viewerID = id.UserID
		}
		updates, err := c.view.Watch(ctx, viewerID)
		if err != nil {
			return err
		}
		forward(c, "leaderboard", updates, func(lb domain.Leaderboard) any { return lb })
	case "unwatchLeaderboard":
		c.view.Stop()
	default:
		return errUnsupported
	}
	return nil
}

func (c *wsConn) sessionView() sessionView {
	return newSessionView(c.engine.State(), c.engine.CanAnswer())
}

// forward relays ch to the writer until ch closes or the connection ends.
func forward[T any](c *wsConn, typ string, ch <-chan T, wrap func(T) any) {
	c.forwarders.Add(1)
	go func() {
		defer c.forwarders.Done()
		for {
			select {
			case v, ok := <-ch:
				if !ok {
					return
				}
				select {
				case c.send <- outboundMessage[any]{Type: typ, Payload: wrap(v)}:
				case <-c.closeSignals:
					return
				}
			case <-c.closeSignals:
				return
			}
		}
	}()
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}
