package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wastejobs-backend/internal/middleware"
	"wastejobs-backend/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer and the bearer token
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades an authenticated request to the live job feed.
// Browsers cannot set headers on upgrade requests, so the token may also
// come from the "token" query parameter. "feed=contractor" subscribes to
// newly active jobs.
func HandleWebSocket(hub *Hub, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			tokenString, _ = middleware.BearerToken(r)
		}
		user, err := middleware.ParseToken(tokenString, secret)
		if err != nil {
			zap.L().Debug("websocket: rejected token", zap.Error(err))
			utils.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.L().Warn("websocket: upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(user.UserID, r.URL.Query().Get("feed") == "contractor", conn, hub)
		if !hub.Register(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
