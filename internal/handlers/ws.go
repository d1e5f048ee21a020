// internal/handlers/ws.go
package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/notify"
)

// NotificationWSHandler upgrades /ws connections and registers them with the
// notification hub. The socket is push-only; incoming frames are drained and
// discarded until the client goes away.
func NotificationWSHandler(logger *logrus.Logger, hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.UserFromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"notifications"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "notifications" {
			c.Close(websocket.StatusPolicyViolation, "client must speak the notifications subprotocol")
			return
		}

		hub.Register(userID, c)
		defer hub.Unregister(userID, c)

		logger.WithFields(logrus.Fields{
			"user_id": userID,
			"remote":  r.RemoteAddr,
		}).Info("notification socket connected")

		ctx := r.Context()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				closeStatus := websocket.CloseStatus(err)
				if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway || ctx.Err() != nil {
					c.Close(websocket.StatusNormalClosure, "bye")
				} else {
					logger.WithError(err).Debug("notification socket read ended")
				}
				return
			}
		}
	}
}
