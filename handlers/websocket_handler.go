package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/shuttlehq/federation-system/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the federation frontends before exposing publicly.
		return true
	},
}

type WebSocketHandler struct {
	hub    *events.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *events.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeWs subscribes the caller to live updates for one bracket.
// Clients connect to /ws/brackets/{bracketID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	bracketID, err := getIDFromURL(r, "bracketID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Error("ws upgrade failed", slog.Int("bracket_id", bracketID), slog.Any("error", err))
		return
	}

	client := &events.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: events.BracketRoom(bracketID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
