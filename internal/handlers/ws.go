package handlers

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"livechat/internal/config"
	appwebsocket "livechat/internal/websocket"

	"github.com/gorilla/websocket"
)

// WSHandler handles the WebSocket connection lifecycle.
type WSHandler struct {
	Hub       *appwebsocket.Hub
	Assistant appwebsocket.Assistant
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a new WSHandler and configures the WebSocket upgrader.
func NewWSHandler(hub *appwebsocket.Hub, assistant appwebsocket.Assistant, cfg *config.AppConfig) *WSHandler {
	// CORSAllowedOrigins is a comma-separated list of allowed origins.
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")

	upgrader := websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		// CheckOrigin validates the origin of the WebSocket request to prevent
		// Cross-Site WebSocket Hijacking. It should only allow origins from
		// the frontend application.
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., from native clients or tools like Postman).
				return true
			}
			originURL, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, allowed := range origins {
				if strings.EqualFold(allowed, originURL.String()) || strings.EqualFold(allowed, originURL.Hostname()) {
					return true
				}
			}
			log.Printf("WebSocket connection from disallowed origin rejected: %s", origin)
			return false
		},
	}

	return &WSHandler{
		Hub:       hub,
		Assistant: assistant,
		upgrader:  upgrader,
	}
}

// ServeWs handles the initial HTTP request and upgrades it to a WebSocket
// connection. Connections start anonymous; authentication happens through
// the access token of the join event.
func (h *WSHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader writes a response to the client on error, so we just log it.
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// Create a new session to handle this specific connection.
	client := appwebsocket.NewClient(h.Hub, conn, h.Assistant)

	// Start the session loop and the read and write pumps.
	go client.Run()
	go client.WritePump()
	go client.ReadPump()
}
