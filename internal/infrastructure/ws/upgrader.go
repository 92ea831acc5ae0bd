package ws

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
)

func NewUpgrader(readBufferSize, writeBufferSize int, allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  readBufferSize,
		WriteBufferSize: writeBufferSize,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}

		origin := r.Header.Get("Origin")
		// Non-browser clients don't send one.
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}
