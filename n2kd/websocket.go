package n2kd

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// wsUpgrader is shared across connections; CheckOrigin is permissive
// because n2kd has no notion of same-origin (it is a LAN instrument, not a
// browser-facing app).
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocketHandler streams every decoded-message JSON line to a connected
// WebSocket client, an additional client flavour beyond the three literal
// TCP ports spec §4.G requires (SPEC_FULL.md's n2kd enrichment list).
func WebSocketHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub := s.subscribeLines()
		defer s.unsubscribeLines(sub)

		for line := range sub {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}
}
