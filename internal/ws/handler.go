package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API listens on loopback by default; origin is not checked.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades the request and streams events matching the ?types= and
// ?entity_id= query filters.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ParseFilter(q.Get("types"), q.Get("entity_id"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("ws: upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			return
		}
		client := hub.NewClient(conn, filter)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}
}
