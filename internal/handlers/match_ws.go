// internal/handlers/match_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/match"
	"github.com/jason-s-yu/linot/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol must be offered by match websocket clients.
const Subprotocol = "linot"

const writeTimeout = 5 * time.Second

// syncStateMessage pushes a player's own view after every accepted operation.
type syncStateMessage struct {
	Type  string          `json:"type"`
	State game.PlayerView `json:"state"`
}

// MatchWSHandler attaches an authenticated user to a match. Any user may connect; they see
// state once they have joined with a join_match operation.
//
// Inbound messages are operation envelopes ({"type": "play_card", "card_index": 2, ...}) or
// {"type": "ping"}. Rejections come back as {"type": "error", "code": ..., "message": ...}.
func (s *Server) MatchWSHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.WithError(err).WithField("match_id", sess.ID()).Warn("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "internal server error during handler exit")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, "client must use the linot subprotocol")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	views, unsubscribe := sess.Subscribe(userID)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writeViews(ctx, cancel, c, views)

	err = s.readOperations(ctx, c, sess, userID)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		err = nil
	}
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
	c.Close(websocket.StatusNormalClosure, "")
}

// writeViews forwards the subscription until it closes or ctx ends.
func (s *Server) writeViews(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, views <-chan game.PlayerView) {
	for {
		select {
		case <-ctx.Done():
			return
		case view, open := <-views:
			if !open {
				if ctx.Err() != nil {
					return
				}
				c.Close(MatchClosedError, "match closed")
				cancel()
				return
			}
			if err := writeMessage(ctx, c, syncStateMessage{Type: "private_sync_state", State: view}); err != nil {
				s.Logger.WithError(err).WithField("match_id", view.MatchID).Debug("failed to push view")
				cancel()
				return
			}
		}
	}
}

// readOperations decodes and applies client messages until the connection ends.
func (s *Server) readOperations(ctx context.Context, c *websocket.Conn, sess *match.Session, userID uuid.UUID) error {
	entry := s.Logger.WithFields(logrus.Fields{"match_id": sess.ID(), "user_id": userID})
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			entry.Warn("ignoring non-text websocket message")
			continue
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			s.sendError(ctx, c, errorMessage{Type: "error", Code: "invalid_message", Message: "invalid JSON format"})
			continue
		}
		if probe.Type == "ping" {
			if err := writeMessage(ctx, c, map[string]string{"type": "pong"}); err != nil {
				return err
			}
			continue
		}

		op, err := game.DecodeOperation(data)
		if err != nil {
			msg := newErrorMessage(err)
			if !errors.Is(err, game.ErrUnknownOperation) {
				msg = errorMessage{Type: "error", Code: "invalid_message", Message: err.Error()}
			}
			s.sendError(ctx, c, msg)
			continue
		}

		entry.WithField("operation", op.Type()).Debug("operation received")
		if err := sess.Apply(ctx, userID, op); err != nil {
			s.sendError(ctx, c, newErrorMessage(err))
			if errors.Is(err, match.ErrSessionClosed) {
				return err
			}
		}
	}
}

func (s *Server) sendError(ctx context.Context, c *websocket.Conn, msg errorMessage) {
	if err := writeMessage(ctx, c, msg); err != nil {
		s.Logger.WithError(err).Debug("failed to send websocket error")
	}
}

// writeMessage marshals v and writes it with a bounded timeout.
func writeMessage(ctx context.Context, c *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}
