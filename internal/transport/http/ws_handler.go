package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mcq-practice-service/internal/domain"
)

type WSHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
}

func NewWSHandler(handler *Handler) *WSHandler {
	return &WSHandler{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
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

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS streams the caller's reconciled profile. Every published view is
// pushed as a "profile" message; the stream ends with "signedOut" when the
// session is torn down. Clients may send "refresh" and "answer" messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "not signed in")
		return
	}
	logger := h.handler.logger.With(zap.String("uid", ident.UID))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, ok := h.handler.reconciler.Session(ident.UID)
	if !ok {
		h.handler.sessions.Publish(r.Context(), domain.SessionEvent{Kind: domain.SessionSignedIn, Identity: ident})
		session, ok = h.handler.reconciler.Session(ident.UID)
	}
	if !ok {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "session not established"}})
		return
	}

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write error", zap.Error(err))
				return
			}
			if msg.Type == "signedOut" {
				// unblocks the reader once the client answers the close
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
					time.Now().Add(time.Second))
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					select {
					case send <- outboundMessage[any]{Type: "signedOut", Payload: struct{}{}}:
					case <-closeSignals:
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "profile", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "refresh":
			// the refreshed view arrives through the subscription
			if _, err := h.handler.reconciler.Refresh(ctx, ident.UID); err != nil {
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "answer":
			var submission domain.AnswerSubmission
			if err := json.Unmarshal(inbound.Payload, &submission); err != nil {
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				break
			}
			result, err := h.handler.service.AnswerMCQ(ctx, ident.UID, submission)
			if err != nil {
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				break
			}
			reply = outboundMessage[any]{Type: "answerResult", Payload: result}
			if result.Awarded > 0 {
				h.handler.refreshAfterAward(ctx, ident.UID)
			}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		if reply.Type == "" {
			continue
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
