package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler plays quizzes over a websocket. Signed-in users share one host
// per user across connections; anonymous connections get a private host.
type WSHandler struct {
	logger   *slog.Logger
	identity *Identity
	hosts    app.HostRegistry
	newHost  func() *app.Host
	upgrader websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, identity *Identity, hosts app.HostRegistry, newHost func() *app.Host) *WSHandler {
	return &WSHandler{
		logger:   logger,
		identity: identity,
		hosts:    hosts,
		newHost:  newHost,
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

type startPayload struct {
	InputText string `json:"inputText"`
}

type answerPayload struct {
	Index int `json:"index"`
}

type answerResult struct {
	Accepted bool `json:"accepted"`
	Correct  bool `json:"correct"`
	Awarded  int  `json:"awarded"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into a quiz host.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID string
	if h.identity != nil {
		userID, _ = h.identity.UserID(r)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var (
		host    *app.Host
		updates <-chan domain.View
		cancel  func()
	)
	shared := userID != "" && h.hosts != nil
	if shared {
		host, updates, cancel = h.hosts.Attach(userID)
		defer h.hosts.DeleteIfIdle(userID)
	} else {
		host = h.newHost()
		defer host.Close()
		updates, cancel = host.Subscribe()
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "view", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if shared {
			h.hosts.Touch(userID)
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid start payload")
				continue
			}
			_, err := host.StartSession(r.Context(), payload.InputText)
			switch {
			case err == nil, errors.Is(err, domain.ErrNoSession):
				// ErrNoSession: another tab went back to the menu meanwhile.
			default:
				send <- errorMessage(failureMessage(err, host))
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			outcome, err := host.Select(payload.Index)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				Accepted: outcome.Accepted,
				Correct:  outcome.Correct,
				Awarded:  outcome.Awarded,
			}}
		case "restart":
			if _, err := host.Restart(r.Context()); err != nil {
				send <- errorMessage(restartMessage(err, host))
			}
		case "menu":
			host.Exit()
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

func restartMessage(err error, host *app.Host) string {
	if errors.Is(err, domain.ErrNoSession) {
		return "no previous input to restart from"
	}
	return failureMessage(err, host)
}

// failureMessage prefers the text the host shows in its view and falls back
// to the error itself for failures the view does not carry.
func failureMessage(err error, host *app.Host) string {
	if msg := host.View().Error; msg != "" {
		return msg
	}
	return err.Error()
}
