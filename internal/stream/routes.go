package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Browser widgets connect from arbitrary origins
	},
}

// RegisterRoutes wires the now-playing WebSocket endpoint to the router.
func RegisterRoutes(router chi.Router, hub *Hub) {
	router.HandleFunc("/v1/stream/now-playing", websocketHandler(hub))
}

func websocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade failed - error already written to response
			return
		}

		hub.Add(conn)
	}
}
